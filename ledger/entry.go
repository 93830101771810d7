package ledger

import (
	"time"

	"github.com/verifile/verifile/digest"
)

// Status classifies the last known verification outcome of a tracked file.
type Status string

// The verification outcomes. An entry starts as StatusIntact when added
// and moves between states on every subsequent check.
const (
	StatusIntact   Status = "intact"
	StatusModified Status = "modified"
	StatusMissing  Status = "missing"
	StatusError    Status = "error"
)

// Valid reports whether st is one of the known statuses.
func (st Status) Valid() bool {
	switch st {
	case StatusIntact, StatusModified, StatusMissing, StatusError:
		return true
	default:
		return false
	}
}

func (st Status) String() string {
	return string(st)
}

// Entry is one tracked file record. Path doubles as the ledger key and is
// not serialized into the stored value.
type Entry struct {
	// Path is the absolute path of the tracked file, unique within the
	// ledger.
	Path string `json:"-"`

	// Algorithm is the digest algorithm fixed when the entry was added.
	Algorithm digest.Algorithm `json:"algorithm"`

	// Digest is the lowercase hexadecimal reference digest recorded at
	// add time. Checks compare against it but never rewrite it.
	Digest string `json:"digest"`

	// Size is the file length in bytes as last observed: at add time, or
	// at the latest check that found the file modified.
	Size int64 `json:"size"`

	// LastModified is the file modification time as last observed, on
	// the same schedule as Size.
	LastModified time.Time `json:"last_modified"`

	// AddedAt is when the entry was created or last re-added.
	AddedAt time.Time `json:"added_at"`

	// LastChecked is the time of the most recent verification attempt,
	// updated on every check regardless of outcome.
	LastChecked time.Time `json:"last_checked"`

	// Status is the last known classification.
	Status Status `json:"status"`
}

// CheckResult is the structured outcome of verifying one tracked file.
type CheckResult struct {
	// Path is the absolute path of the checked file.
	Path string

	// Status is the freshly assigned classification.
	Status Status

	// PreviousStatus is the classification the entry held before this
	// check.
	PreviousStatus Status

	// ReferenceDigest is the stored baseline digest.
	ReferenceDigest string

	// CurrentDigest is the digest computed during this check. Empty when
	// the file was missing or could not be read.
	CurrentDigest string

	// CheckedAt is when this verification ran.
	CheckedAt time.Time

	// Err carries the digest computation failure when Status is
	// StatusError, nil otherwise.
	Err error
}

// Summary aggregates per-status counts over a verification run.
type Summary struct {
	Intact   int
	Modified int
	Missing  int
	Errors   int
}

// Total returns the number of files covered by the run.
func (s Summary) Total() int {
	return s.Intact + s.Modified + s.Missing + s.Errors
}

// Clean reports whether the run found no deviation of any kind.
func (s Summary) Clean() bool {
	return s.Modified == 0 && s.Missing == 0 && s.Errors == 0
}

// count tallies one outcome.
func (s *Summary) count(st Status) {
	switch st {
	case StatusIntact:
		s.Intact++
	case StatusModified:
		s.Modified++
	case StatusMissing:
		s.Missing++
	case StatusError:
		s.Errors++
	}
}

// BatchFailure pairs a candidate path with the error that kept it out of
// the ledger.
type BatchFailure struct {
	Path string
	Err  error
}

// BatchResult aggregates a bulk add. Skipped counts candidates rejected
// for not being regular files; Failed counts every other per-file
// failure.
type BatchResult struct {
	Added    int
	Failed   int
	Skipped  int
	Failures []BatchFailure
}
