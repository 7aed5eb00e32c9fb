package sched

// Candidate is a discovered file paired with its content fingerprint.
// For duplicates, Record points at the prior upload of the same content.
type Candidate struct {
	File        MediaFile
	Fingerprint string
	Record      *UploadRecord
}

// Partition is the result of classifying discovered files against a project's
// processed set.
type Partition struct {
	New        []Candidate
	Duplicates []Candidate
}

// Deduper classifies discovered files as new or duplicate. Classification is
// purely a function of content fingerprint: two differently named files with
// identical bytes are the same item.
type Deduper struct {
	fsmgr FilesystemManager
}

func NewDeduper(fsmgr FilesystemManager) *Deduper {
	return &Deduper{fsmgr: fsmgr}
}

// Partition fingerprints each discovered file and tests membership in the
// project's processed set. It preserves the discovery order of files, does
// not mutate the project, and propagates read errors.
//
// A file whose content matches an earlier file in the same listing is also a
// duplicate: only the first occurrence of any fingerprint is classified new.
func (d *Deduper) Partition(project *Project, files []MediaFile) (*Partition, error) {
	part := &Partition{}
	seen := make(map[string]struct{}, len(files))

	for _, f := range files {
		sum, _, err := FingerprintFile(d.fsmgr, f.Path)
		if err != nil {
			return nil, err
		}

		c := Candidate{File: f, Fingerprint: sum}
		if rec, ok := project.Uploads[sum]; ok {
			r := rec
			c.Record = &r
			part.Duplicates = append(part.Duplicates, c)
			continue
		}
		if _, ok := seen[sum]; ok {
			part.Duplicates = append(part.Duplicates, c)
			continue
		}
		seen[sum] = struct{}{}
		part.New = append(part.New, c)
	}

	return part, nil
}
