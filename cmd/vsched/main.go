package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"vsched/internal/app"
	"vsched/internal/config"
	"vsched/internal/daemon"
	"vsched/internal/sched"
	"vsched/internal/secrets"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "Plan", "Upload").
func newApp(operation string) (*app.App, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewApp(cfg, operation, app.Options{Passphrase: promptPassphrase})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase() (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:   "vsched",
	Short: "Media upload scheduler",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Outbox:   %s\n", cfg.Publisher.OutboxDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:   %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Store:      %s\n", cfg.Store.Type)
		fmt.Printf("Publisher:  %s\n", cfg.Publisher.Type)
		fmt.Printf("Defaults:   %d/day at %s (%s)\n",
			cfg.Scheduling.PerDay, cfg.Scheduling.DayStart, cfg.Scheduling.Timezone)
		return nil
	},
}

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectInitCmd = &cobra.Command{
	Use:   "init NAME",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		timezone, _ := cmd.Flags().GetString("timezone")
		perDay, _ := cmd.Flags().GetInt("per-day")
		dayStart, _ := cmd.Flags().GetString("day-start")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		a, err := newApp("InitProject")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.InitProject(args[0], app.ProjectSetup{
			Directory:   dir,
			Timezone:    timezone,
			PerDay:      perDay,
			DayStart:    dayStart,
			Title:       title,
			Description: description,
			Tags:        tags,
		})
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		fmt.Printf("Created project %s: %d/day at %s (%s)\n",
			p.Name, p.PerDay, p.DayStart, p.Timezone)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListProjects")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListProjects()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a project's state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteProject")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted project %s\n", args[0])
		return nil
	},
}

// plan command
var planCmd = &cobra.Command{
	Use:   "plan NAME",
	Short: "Preview the upload schedule without submitting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := planOptionsFromFlags(cmd)

		a, err := newApp("Plan")
		if err != nil {
			return err
		}
		defer a.Close()

		plan, err := a.Plan(args[0], opts)
		if err != nil {
			return err
		}

		printPlan(plan)
		return nil
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload NAME",
	Short: "Submit new files on their scheduled slots",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planOpts := planOptionsFromFlags(cmd)
		continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
		throttle, _ := cmd.Flags().GetDuration("throttle")
		meta := metadataFromFlags(cmd)

		a, err := newApp("Upload")
		if err != nil {
			return err
		}
		defer a.Close()

		execOpts := sched.ExecuteOptions{
			ContinueOnError: continueOnError || a.ContinueOnError(),
			Throttle:        throttle,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		plan, summary, runErr := a.Upload(ctx, args[0], planOpts, execOpts, meta)
		if plan != nil {
			printPlan(plan)
		}
		if summary != nil {
			fmt.Printf("\nSubmitted %d, skipped %d duplicate(s), %d failed\n",
				summary.Submitted, summary.Duplicates, summary.Failed)
		}
		return runErr
	},
}

// metadataFromFlags builds the per-run metadata override. Nil when no title
// was given, which falls back to the project's stored default.
func metadataFromFlags(cmd *cobra.Command) *sched.Metadata {
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		return nil
	}
	description, _ := cmd.Flags().GetString("description")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	return &sched.Metadata{
		Title:       title,
		Description: description,
		Tags:        tags,
	}
}

func planOptionsFromFlags(cmd *cobra.Command) sched.PlanOptions {
	dir, _ := cmd.Flags().GetString("dir")
	perDay, _ := cmd.Flags().GetInt("per-day")
	startDate, _ := cmd.Flags().GetString("start-date")
	return sched.PlanOptions{
		Directory: dir,
		PerDay:    perDay,
		StartDate: startDate,
	}
}

func printPlan(plan *sched.Plan) {
	if len(plan.Items) == 0 && len(plan.Duplicates) == 0 {
		fmt.Println("Nothing to do.")
		return
	}
	for _, item := range plan.Items {
		line := fmt.Sprintf("%s  %s  %s",
			item.State,
			item.ScheduledAt.Format("2006-01-02 15:04 MST"),
			item.File.Name,
		)
		if item.RemoteID != "" {
			line += "  " + item.RemoteID
		}
		if item.Err != nil {
			line += "  " + item.Err.Error()
		}
		fmt.Println(line)
	}
	for _, dup := range plan.Duplicates {
		fmt.Printf("duplicate  %s (matches %s)\n", dup.File.Name, dup.Fingerprint[:12])
	}
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup NAME",
	Short: "Delete local files that were already uploaded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp("Cleanup")
		if err != nil {
			return err
		}
		defer a.Close()

		// Without --yes this is a preview, same as --dry-run.
		report, err := a.Cleanup(args[0], sched.CleanupOptions{
			Directory: dir,
			DryRun:    dryRun || !yes,
		})
		if err != nil {
			return err
		}

		if len(report.Files) == 0 {
			fmt.Println("Nothing to clean up.")
			return nil
		}
		for _, f := range report.Files {
			fmt.Printf("%s  %d bytes\n", f.Name, f.Size)
		}
		if report.Deleted > 0 {
			fmt.Printf("Deleted %d file(s), %d bytes\n", report.Deleted, report.TotalBytes)
		} else {
			fmt.Printf("%d file(s), %d bytes eligible. Re-run with --yes to delete.\n",
				len(report.Files), report.TotalBytes)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log NAME",
	Short: "View a project's upload history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ProjectLog")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ProjectLog(args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No uploads recorded.")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %s  %d  scheduled:%s  %s\n",
				r.Fingerprint[:12],
				r.SubmittedAt.Format("2006-01-02 15:04:05"),
				r.Size,
				r.ScheduledAt.Format("2006-01-02 15:04"),
				r.RemoteID,
			)
		}
		return nil
	},
}

// auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage publisher credentials",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store publisher credentials, encrypted with a passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		if cfg.Publisher.CredentialsPath == "" {
			return fmt.Errorf("publisher.credentials_path is not set in the config")
		}

		reader := bufio.NewReader(os.Stdin)
		fmt.Fprint(os.Stderr, "Access key ID: ")
		accessKey, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading access key: %w", err)
		}

		fmt.Fprint(os.Stderr, "Secret access key: ")
		secretBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading secret key: %w", err)
		}

		passphrase, err := promptPassphrase()
		if err != nil {
			return err
		}

		store := secrets.NewStore(cfg.Publisher.CredentialsPath)
		err = store.Save(secrets.Credentials{
			AccessKeyID:     strings.TrimSpace(accessKey),
			SecretAccessKey: string(secretBytes),
		}, passphrase)
		if err != nil {
			return fmt.Errorf("storing credentials: %w", err)
		}

		fmt.Printf("Credentials stored at %s\n", cfg.Publisher.CredentialsPath)
		return nil
	},
}

// daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled uploads unattended",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		a, err := app.NewApp(cfg, "Daemon", app.Options{Passphrase: promptPassphrase})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		d, err := daemon.New(cfg.Daemon.Cron, cfg.Daemon.Projects, &daemonRunner{a: a}, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Daemon running (%s), %d project(s). Ctrl-C to stop.\n",
			cfg.Daemon.Cron, len(cfg.Daemon.Projects))
		return d.Run(ctx)
	},
}

// daemonRunner adapts App to the daemon's Runner interface using each
// project's stored preferences.
type daemonRunner struct {
	a *app.App
}

func (r *daemonRunner) Upload(ctx context.Context, project string) error {
	execOpts := sched.ExecuteOptions{ContinueOnError: r.a.ContinueOnError()}
	_, _, err := r.a.Upload(ctx, project, sched.PlanOptions{}, execOpts, nil)
	return err
}

// where command
var whereCmd = &cobra.Command{
	Use:   "where",
	Short: "Print config and data locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return err
		}
		fmt.Printf("config: %s\n", defaults["config_path"])
		fmt.Printf("data:   %s\n", defaults["base_dir"])
		fmt.Printf("logs:   %s\n", defaults["log_dir"])
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// project subcommands
	projectCmd.AddCommand(projectInitCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectInitCmd.Flags().String("dir", "", "Upload directory")
	projectInitCmd.Flags().String("timezone", "", "IANA timezone for slot times")
	projectInitCmd.Flags().Int("per-day", 0, "Uploads per day")
	projectInitCmd.Flags().String("day-start", "", "First slot of the day (HH:MM)")
	projectInitCmd.Flags().String("title", "", "Default media title")
	projectInitCmd.Flags().String("description", "", "Default media description")
	projectInitCmd.Flags().StringSlice("tags", nil, "Default media tags")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().String("dir", "", "Override the upload directory")
	planCmd.Flags().Int("per-day", 0, "Override uploads per day")
	planCmd.Flags().String("start-date", "", "Schedule from this date (today or YYYY-MM-DD)")
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().String("dir", "", "Override the upload directory")
	uploadCmd.Flags().Int("per-day", 0, "Override uploads per day")
	uploadCmd.Flags().String("start-date", "", "Schedule from this date (today or YYYY-MM-DD)")
	uploadCmd.Flags().Bool("continue-on-error", false, "Keep going after a failed submission")
	uploadCmd.Flags().Duration("throttle", 0, "Delay between submissions (e.g. 2s)")
	uploadCmd.Flags().String("title", "", "Metadata title for this run (overrides the stored default)")
	uploadCmd.Flags().String("description", "", "Metadata description for this run")
	uploadCmd.Flags().StringSlice("tags", nil, "Metadata tags for this run")
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().String("dir", "", "Override the upload directory")
	cleanupCmd.Flags().Bool("dry-run", false, "List files without deleting")
	cleanupCmd.Flags().Bool("yes", false, "Actually delete the files")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(whereCmd)
}
