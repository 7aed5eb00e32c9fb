package sched

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Fingerprint computes the SHA-256 digest of r as a hex string, along with
// the number of bytes read. The digest depends only on content, never on
// path, name, or timestamps, and streams so arbitrarily large files are
// handled without buffering them in memory.
func Fingerprint(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// FingerprintFile opens the file at path via fsmgr and fingerprints its content.
// Read errors propagate to the caller.
func FingerprintFile(fsmgr FilesystemManager, path string) (string, int64, error) {
	f, err := fsmgr.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sum, n, err := Fingerprint(f)
	if err != nil {
		return "", 0, fmt.Errorf("fingerprinting %s: %w", path, err)
	}
	return sum, n, nil
}
