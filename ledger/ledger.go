package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/verifile/verifile/digest"
)

var (
	// ErrNotTracked reports an operation on a path with no ledger entry.
	ErrNotTracked = errors.New("path is not tracked")

	// ErrNotRegularFile reports an add target that is a directory or
	// other non-regular file.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrCorruptLedger reports a storage file that exists but cannot be
	// parsed as a ledger. Recorded baselines are never silently
	// discarded; recovery is deleting the file and re-adding.
	ErrCorruptLedger = errors.New("corrupt integrity ledger")
)

// storageMode keeps the ledger private to its owner. Entries reveal which
// files are watched.
const storageMode = 0o600

// Ledger owns the mapping from absolute path to Entry plus its storage
// location. Every mutating operation rewrites the storage file before
// returning, so on-disk state never lags behind the last completed
// operation.
type Ledger struct {
	path    string
	entries map[string]*Entry
}

// Open loads the ledger stored at path, or starts an empty one when no
// file exists yet. A file that exists but does not parse as a ledger
// fails with ErrCorruptLedger.
func Open(path string) (*Ledger, error) {
	const errCtx = "opening ledger"

	led := &Ledger{
		path:    path,
		entries: make(map[string]*Entry),
	}

	raw, err := os.ReadFile(path) //nolint:gosec // location comes from configuration
	if errors.Is(err, os.ErrNotExist) {
		return led, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := json.Unmarshal(raw, &led.entries); err != nil {
		return nil, fmt.Errorf(
			"%s: %w: %w",
			errCtx,
			ErrCorruptLedger,
			err,
		)
	}

	// A null document unmarshals to a nil map instead of failing.
	if led.entries == nil {
		return nil, fmt.Errorf(
			"%s: %w: null document",
			errCtx,
			ErrCorruptLedger,
		)
	}

	for pa, en := range led.entries {
		if err := validateEntry(pa, en); err != nil {
			return nil, fmt.Errorf(
				"%s: %w: %w",
				errCtx,
				ErrCorruptLedger,
				err,
			)
		}

		en.Path = pa
	}

	return led, nil
}

// validateEntry rejects stored values the rest of the package could not
// honor.
func validateEntry(pa string, en *Entry) error {
	if en == nil {
		return fmt.Errorf("entry %q: null value", pa)
	}

	if !en.Algorithm.Valid() {
		return fmt.Errorf(
			"entry %q: unknown algorithm %q",
			pa,
			en.Algorithm,
		)
	}

	if !en.Status.Valid() {
		return fmt.Errorf(
			"entry %q: unknown status %q",
			pa,
			en.Status,
		)
	}

	return nil
}

// Path returns the ledger storage location.
func (led *Ledger) Path() string {
	return led.path
}

// Len returns the number of tracked files.
func (led *Ledger) Len() int {
	return len(led.entries)
}

// Entries returns a snapshot of every tracked entry in lexical path
// order. The copies are the caller's to keep; mutating them does not
// touch the ledger.
func (led *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(led.entries))

	for _, pa := range led.sortedPaths() {
		out = append(out, *led.entries[pa])
	}

	return out
}

// Add computes a baseline digest for the file at path and creates or
// replaces its ledger entry, which starts as StatusIntact. Re-adding a
// tracked path rebuilds the entry from scratch, so a new algorithm or a
// changed file becomes the new baseline. On failure the ledger is left
// unchanged.
func (led *Ledger) Add(path string, al digest.Algorithm) (Entry, error) {
	const errCtx = "adding file"

	abs, err := resolve(path)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !info.Mode().IsRegular() {
		return Entry{}, fmt.Errorf(
			"%s: %w: %s",
			errCtx,
			ErrNotRegularFile,
			abs,
		)
	}

	dg, err := digest.Compute(abs, al)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	// Stat again after hashing so size and mtime describe the same bytes
	// the digest does.
	info, err = os.Stat(abs)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	now := time.Now()
	en := &Entry{
		Path:         abs,
		Algorithm:    al,
		Digest:       dg,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		AddedAt:      now,
		LastChecked:  now,
		Status:       StatusIntact,
	}

	prev, replaced := led.entries[abs]
	led.entries[abs] = en

	if err := led.persist(); err != nil {
		if replaced {
			led.entries[abs] = prev
		} else {
			delete(led.entries, abs)
		}

		return Entry{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"file tracked",
		"path", abs,
		"algorithm", al,
		"digest", dg,
	)

	return *en, nil
}

// AddBatch adds every candidate path in order, collecting per-file
// failures instead of aborting on the first one. Non-regular candidates
// count as skipped; every other failure counts as failed and is retained
// in Failures.
func (led *Ledger) AddBatch(paths []string, al digest.Algorithm) BatchResult {
	var res BatchResult

	for _, pa := range paths {
		_, err := led.Add(pa, al)

		switch {
		case err == nil:
			res.Added++

		case errors.Is(err, ErrNotRegularFile):
			res.Skipped++

		default:
			res.Failed++
			res.Failures = append(res.Failures, BatchFailure{
				Path: pa,
				Err:  err,
			})
		}
	}

	return res
}

// Remove deletes the entry for path and persists the ledger. Removing an
// untracked path fails with ErrNotTracked.
func (led *Ledger) Remove(path string) error {
	const errCtx = "removing file"

	abs, err := resolve(path)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	en, found := led.entries[abs]
	if !found {
		return fmt.Errorf("%s: %w: %s", errCtx, ErrNotTracked, abs)
	}

	delete(led.entries, abs)

	if err := led.persist(); err != nil {
		led.entries[abs] = en

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug("file untracked", "path", abs)

	return nil
}

// Check verifies one tracked file and persists the outcome. The path must
// already be tracked; checking an unknown path fails with ErrNotTracked
// and mutates nothing. A file that no longer exists is missing, a file
// whose digest cannot be computed is error, and otherwise the fresh
// digest decides between intact and modified.
func (led *Ledger) Check(path string) (CheckResult, error) {
	const errCtx = "checking file"

	abs, err := resolve(path)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	en, found := led.entries[abs]
	if !found {
		return CheckResult{}, fmt.Errorf(
			"%s: %w: %s",
			errCtx,
			ErrNotTracked,
			abs,
		)
	}

	res, err := led.checkEntry(en)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return res, nil
}

// CheckAll verifies every tracked file in lexical path order. A missing
// or unreadable file never aborts the rest of the run; the error return
// only reports ledger persistence failure, alongside the results gathered
// up to that point.
func (led *Ledger) CheckAll() ([]CheckResult, Summary, error) {
	const errCtx = "checking all files"

	var sum Summary

	paths := led.sortedPaths()
	results := make([]CheckResult, 0, len(paths))

	for _, pa := range paths {
		res, err := led.checkEntry(led.entries[pa])
		if err != nil {
			return results, sum, fmt.Errorf(
				"%s: %s: %w",
				errCtx,
				pa,
				err,
			)
		}

		results = append(results, res)
		sum.count(res.Status)
	}

	return results, sum, nil
}

// checkEntry classifies one entry, stamps it, and persists the ledger.
// On persistence failure the entry is restored so memory and disk stay
// in agreement.
func (led *Ledger) checkEntry(en *Entry) (CheckResult, error) {
	saved := *en

	res := led.classify(en)
	res.CheckedAt = time.Now()

	en.LastChecked = res.CheckedAt
	en.Status = res.Status

	if err := led.persist(); err != nil {
		*en = saved

		return CheckResult{}, err
	}

	return res, nil
}

// classify computes the fresh status for en. The reference digest is
// never rewritten here; a modified file only gets its size and mtime
// refreshed so listings describe the file as last seen.
func (led *Ledger) classify(en *Entry) CheckResult {
	res := CheckResult{
		Path:            en.Path,
		PreviousStatus:  en.Status,
		ReferenceDigest: en.Digest,
	}

	info, statErr := os.Stat(en.Path)
	if errors.Is(statErr, os.ErrNotExist) {
		res.Status = StatusMissing

		return res
	}

	current, err := digest.Compute(en.Path, en.Algorithm)
	if err != nil {
		// The file can vanish between the stat and the read.
		if errors.Is(err, os.ErrNotExist) {
			res.Status = StatusMissing

			return res
		}

		res.Status = StatusError
		res.Err = err

		return res
	}

	res.CurrentDigest = current

	if current == en.Digest {
		res.Status = StatusIntact

		return res
	}

	res.Status = StatusModified

	if statErr == nil {
		en.Size = info.Size()
		en.LastModified = info.ModTime()
	}

	return res
}

// persist rewrites the storage file from the in-memory entries.
func (led *Ledger) persist() error {
	const errCtx = "persisting ledger"

	buf, err := json.MarshalIndent(led.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(led.path, buf, storageMode); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// sortedPaths returns every tracked path in lexical order. A JSON object
// carries no reliable order, so sorting keeps runs and listings stable.
func (led *Ledger) sortedPaths() []string {
	paths := make([]string, 0, len(led.entries))

	for pa := range led.entries {
		paths = append(paths, pa)
	}

	sort.Strings(paths)

	return paths
}

// resolve normalizes a user supplied path into the absolute form used as
// ledger key.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	return abs, nil
}
