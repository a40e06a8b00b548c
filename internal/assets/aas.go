package assets

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

const (
	// AASMagic is the Q3Rally AAS signature.
	AASMagic = "EAAS"
	// VanillaAASMagic is the stock Quake III signature. Q3Rally's bot code
	// rejects it.
	VanillaAASMagic = "AASF"

	CheckExists     = "exists"
	CheckNonEmpty   = "non_empty"
	CheckMagicMatch = "magic_match"
)

// ValidationCheck is the outcome of one named check.
type ValidationCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Note   string `json:"note,omitempty"`
}

// ValidationReport holds every check run against one file, in order.
type ValidationReport struct {
	Path   string            `json:"path"`
	Size   int64             `json:"size"`
	Checks []ValidationCheck `json:"checks"`
	OK     bool              `json:"ok"`
}

// Check returns the named check.
func (r *ValidationReport) Check(name string) (ValidationCheck, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return ValidationCheck{}, false
}

func (r *ValidationReport) add(name string, passed bool, note string) {
	r.Checks = append(r.Checks, ValidationCheck{Name: name, Passed: passed, Note: note})
}

func (r *ValidationReport) finish() *ValidationReport {
	r.OK = len(r.Checks) > 0
	for _, c := range r.Checks {
		r.OK = r.OK && c.Passed
	}
	return r
}

// ValidateAAS checks that path is a non-empty file starting with the
// Q3Rally AAS signature.
func ValidateAAS(path string) *ValidationReport {
	return ValidateAASWithMagic(path, []byte(AASMagic))
}

// ValidateAASWithMagic is ValidateAAS with a caller-chosen signature. All
// three checks are always recorded; a check that cannot be attempted is
// recorded as failed with a note saying why.
func ValidateAASWithMagic(path string, magic []byte) *ValidationReport {
	report := &ValidationReport{Path: path}

	f, size, err := openRegular(path)
	if err != nil {
		report.add(CheckExists, false, err.Error())
		report.add(CheckNonEmpty, false, "file missing")
		report.add(CheckMagicMatch, false, "file missing")
		return report.finish()
	}
	defer f.Close()

	report.Size = size
	report.add(CheckExists, true, "")

	if size == 0 {
		report.add(CheckNonEmpty, false, "file is empty (0 bytes)")
		report.add(CheckMagicMatch, false, "empty file")
		return report.finish()
	}
	report.add(CheckNonEmpty, true, "")

	want := len(magic)
	if want == 0 {
		report.add(CheckMagicMatch, false, "no expected magic given")
		return report.finish()
	}
	if size < int64(want) {
		report.add(CheckMagicMatch, false, fmt.Sprintf("insufficient bytes (%d of %d)", size, want))
		return report.finish()
	}

	header := make([]byte, want)
	if _, err := io.ReadFull(f, header); err != nil {
		report.add(CheckMagicMatch, false, fmt.Sprintf("read header: %v", err))
		return report.finish()
	}
	if !bytes.Equal(header, magic) {
		report.add(CheckMagicMatch, false, fmt.Sprintf("unexpected magic bytes %q (expected %q)", header, magic))
		return report.finish()
	}
	report.add(CheckMagicMatch, true, "")

	return report.finish()
}

func openRegular(path string) (*os.File, int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("file does not exist")
		}
		return nil, 0, err
	}
	if !fi.Mode().IsRegular() {
		return nil, 0, fmt.Errorf("not a regular file (%s)", fi.Mode().Type())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("not readable: %w", err)
	}
	return f, fi.Size(), nil
}
