package ledger_test

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifile/verifile/digest"
	"github.com/verifile/verifile/ledger"
)

const helloSHA256 = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func tempLedger(t *testing.T, dir string) (*ledger.Ledger, string) {
	t.Helper()

	dbPath := filepath.Join(dir, "integrity_database.json")

	led, err := ledger.Open(dbPath)
	require.NoError(t, err)

	return led, dbPath
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	pa := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func assertEntryEqual(t *testing.T, want, got ledger.Entry) {
	t.Helper()

	assert.Equal(t, want.Path, got.Path)
	assert.Equal(t, want.Algorithm, got.Algorithm)
	assert.Equal(t, want.Digest, got.Digest)
	assert.Equal(t, want.Size, got.Size)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, want.LastModified.Equal(got.LastModified))
	assert.True(t, want.AddedAt.Equal(got.AddedAt))
	assert.True(t, want.LastChecked.Equal(got.LastChecked))
}

func TestOpenMissingStorage(t *testing.T) {
	t.Parallel()

	led, dbPath := tempLedger(t, t.TempDir())

	assert.Zero(t, led.Len())
	assert.Empty(t, led.Entries())
	assert.Equal(t, dbPath, led.Path())
}

func TestOpenCorruptStorage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "definitely not json"},
		{name: "empty file", raw: ""},
		{name: "null document", raw: "null"},
		{name: "wrong shape", raw: `["a", "b"]`},
		{name: "null entry", raw: `{"/etc/hosts": null}`},
		{
			name: "unknown algorithm",
			raw: `{"/etc/hosts": {"algorithm": "rot13", "digest": "aa",
				"size": 1, "last_modified": "2026-01-01T00:00:00Z",
				"added_at": "2026-01-01T00:00:00Z",
				"last_checked": "2026-01-01T00:00:00Z", "status": "intact"}}`,
		},
		{
			name: "unknown status",
			raw: `{"/etc/hosts": {"algorithm": "sha256", "digest": "aa",
				"size": 1, "last_modified": "2026-01-01T00:00:00Z",
				"added_at": "2026-01-01T00:00:00Z",
				"last_checked": "2026-01-01T00:00:00Z", "status": "fine"}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			dbPath := writeFile(t, dir, "integrity_database.json", tc.raw)

			_, err := ledger.Open(dbPath)
			require.Error(t, err)
			assert.ErrorIs(t, err, ledger.ErrCorruptLedger)
		})
	}
}

func TestAdd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	en, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	assert.Equal(t, pa, en.Path)
	assert.True(t, filepath.IsAbs(en.Path))
	assert.Equal(t, digest.SHA256, en.Algorithm)
	assert.Equal(t, helloSHA256, en.Digest)
	assert.Equal(t, int64(len("hello")), en.Size)
	assert.Equal(t, ledger.StatusIntact, en.Status)
	assert.False(t, en.AddedAt.IsZero())
	assert.False(t, en.LastChecked.IsZero())
	assert.False(t, en.LastModified.IsZero())
	assert.Equal(t, 1, led.Len())
}

func TestAddRelativePath(t *testing.T) {
	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	writeFile(t, dir, "notes.txt", "content")

	t.Chdir(dir)

	en, err := led.Add("notes.txt", digest.SHA256)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(en.Path))
	assert.Equal(t, filepath.Join(dir, "notes.txt"), en.Path)
}

func TestAddMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)

	_, err := led.Add(filepath.Join(dir, "ghost.txt"), digest.SHA256)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, led.Len())
}

func TestAddDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)

	_, err := led.Add(dir, digest.SHA256)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNotRegularFile)
	assert.Zero(t, led.Len())
}

func TestAddUnknownAlgorithm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.Algorithm("blake3"))
	require.Error(t, err)
	assert.ErrorIs(t, err, digest.ErrUnknownAlgorithm)
	assert.Zero(t, led.Len())
}

func TestAddReplacesExisting(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	first, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	writeFile(t, dir, "report.txt", "hello!")

	second, err := led.Add(pa, digest.MD5)
	require.NoError(t, err)

	assert.Equal(t, 1, led.Len())
	assert.Equal(t, digest.MD5, second.Algorithm)
	assert.NotEqual(t, first.Digest, second.Digest)
	assert.Equal(t, int64(len("hello!")), second.Size)
	assert.Equal(t, ledger.StatusIntact, second.Status)

	// The rebuilt baseline is what later checks compare against.
	res, err := led.Check(pa)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusIntact, res.Status)
}

func TestCheckIntact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	en, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	res, err := led.Check(pa)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusIntact, res.Status)
	assert.Equal(t, ledger.StatusIntact, res.PreviousStatus)
	assert.Equal(t, en.Digest, res.ReferenceDigest)
	assert.Equal(t, en.Digest, res.CurrentDigest)
	assert.NoError(t, res.Err)
	assert.False(t, res.CheckedAt.Before(en.LastChecked))
}

func TestCheckModified(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	en, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	writeFile(t, dir, "report.txt", "hello!")

	res, err := led.Check(pa)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusModified, res.Status)
	assert.Equal(t, helloSHA256, res.ReferenceDigest)
	assert.NotEqual(t, res.ReferenceDigest, res.CurrentDigest)

	want, err := digest.Compute(pa, digest.SHA256)
	require.NoError(t, err)
	assert.Equal(t, want, res.CurrentDigest)

	// The reference digest is never rebaselined by a check; size and
	// mtime track the file as last seen.
	entries := led.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, en.Digest, entries[0].Digest)
	assert.Equal(t, int64(len("hello!")), entries[0].Size)
	assert.Equal(t, ledger.StatusModified, entries[0].Status)

	// Unchanged content keeps reporting modified on repeat checks.
	again, err := led.Check(pa)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusModified, again.Status)
	assert.Equal(t, ledger.StatusModified, again.PreviousStatus)
}

func TestCheckMissingThenRestored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	require.NoError(t, os.Remove(pa))

	res, err := led.Check(pa)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusMissing, res.Status)
	assert.Empty(t, res.CurrentDigest)

	// Restoring identical content brings the file back to intact.
	writeFile(t, dir, "report.txt", "hello")

	res, err = led.Check(pa)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusIntact, res.Status)
	assert.Equal(t, ledger.StatusMissing, res.PreviousStatus)
}

func TestCheckReadFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	// Swap the file for a directory: stat succeeds, reading fails.
	require.NoError(t, os.Remove(pa))
	require.NoError(t, os.Mkdir(pa, 0o700))

	res, err := led.Check(pa)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusError, res.Status)
	assert.Error(t, res.Err)
	assert.Empty(t, res.CurrentDigest)
	assert.Equal(t, helloSHA256, res.ReferenceDigest)

	entries := led.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, helloSHA256, entries[0].Digest)
	assert.Equal(t, ledger.StatusError, entries[0].Status)
}

func TestCheckUntracked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, dbPath := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	before, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	_, err = led.Check(filepath.Join(dir, "other.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNotTracked)

	after, err := os.ReadFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCheckPersistsEveryOutcome(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, dbPath := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	en, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	require.NoError(t, os.Remove(pa))

	res, err := led.Check(pa)
	require.NoError(t, err)
	require.Equal(t, ledger.StatusMissing, res.Status)

	// A fresh instance sees the missing verdict and the new timestamp.
	reopened, err := ledger.Open(dbPath)
	require.NoError(t, err)

	entries := reopened.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusMissing, entries[0].Status)
	assert.True(t, entries[0].LastChecked.Equal(res.CheckedAt))
	assert.False(t, entries[0].LastChecked.Equal(en.LastChecked))
}

func TestCheckAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)

	intact := writeFile(t, dir, "a_intact.txt", "steady")
	missing := writeFile(t, dir, "b_missing.txt", "soon gone")
	modified := writeFile(t, dir, "c_modified.txt", "before")
	broken := writeFile(t, dir, "d_broken.txt", "readable")

	for _, pa := range []string{intact, missing, modified, broken} {
		_, err := led.Add(pa, digest.SHA256)
		require.NoError(t, err)
	}

	require.NoError(t, os.Remove(missing))
	writeFile(t, dir, "c_modified.txt", "after")
	require.NoError(t, os.Remove(broken))
	require.NoError(t, os.Mkdir(broken, 0o700))

	results, sum, err := led.CheckAll()
	require.NoError(t, err)
	require.Len(t, results, 4)

	// Lexical path order, one result per tracked file.
	assert.Equal(t, intact, results[0].Path)
	assert.Equal(t, ledger.StatusIntact, results[0].Status)
	assert.Equal(t, missing, results[1].Path)
	assert.Equal(t, ledger.StatusMissing, results[1].Status)
	assert.Equal(t, modified, results[2].Path)
	assert.Equal(t, ledger.StatusModified, results[2].Status)
	assert.Equal(t, broken, results[3].Path)
	assert.Equal(t, ledger.StatusError, results[3].Status)

	assert.Equal(t, 1, sum.Intact)
	assert.Equal(t, 1, sum.Modified)
	assert.Equal(t, 1, sum.Missing)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, 4, sum.Total())
	assert.False(t, sum.Clean())
}

func TestCheckAllEmpty(t *testing.T) {
	t.Parallel()

	led, _ := tempLedger(t, t.TempDir())

	results, sum, err := led.CheckAll()
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, sum.Total())
	assert.True(t, sum.Clean())
}

func TestAddBatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)

	good1 := writeFile(t, dir, "one.txt", "one")
	good2 := writeFile(t, dir, "two.txt", "two")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o700))
	ghost := filepath.Join(dir, "ghost.txt")

	res := led.AddBatch([]string{good1, ghost, sub, good2}, digest.SHA256)

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, ghost, res.Failures[0].Path)
	assert.ErrorIs(t, res.Failures[0].Err, os.ErrNotExist)
	assert.Equal(t, 2, led.Len())
}

func TestRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	require.NoError(t, led.Remove(pa))
	assert.Zero(t, led.Len())

	err = led.Remove(pa)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNotTracked)
}

func TestRemoveKeepsFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)
	require.NoError(t, led.Remove(pa))

	// Untracking never touches the file itself.
	_, err = os.Stat(pa)
	assert.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, dbPath := tempLedger(t, dir)

	one := writeFile(t, dir, "one.txt", "first file")
	two := writeFile(t, dir, "two.txt", "second file")

	_, err := led.Add(one, digest.MD5)
	require.NoError(t, err)
	_, err = led.Add(two, digest.SHA512)
	require.NoError(t, err)

	reopened, err := ledger.Open(dbPath)
	require.NoError(t, err)

	want := led.Entries()
	got := reopened.Entries()
	require.Len(t, got, len(want))

	for idx := range want {
		assertEntryEqual(t, want[idx], got[idx])
	}
}

func TestStorageFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, dbPath := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	raw, err := os.ReadFile(dbPath)
	require.NoError(t, err)

	var stored map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))

	require.Len(t, stored, 1)
	value, found := stored[pa]
	require.True(t, found, "entries are keyed by absolute path")

	keys := make([]string, 0, len(value))
	for key := range value {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	assert.Equal(t, []string{
		"added_at",
		"algorithm",
		"digest",
		"last_checked",
		"last_modified",
		"size",
		"status",
	}, keys)

	assert.Equal(t, "sha256", value["algorithm"])
	assert.Equal(t, helloSHA256, value["digest"])
	assert.Equal(t, "intact", value["status"])
	assert.EqualValues(t, len("hello"), value["size"])

	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteThrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, dbPath := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	_, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)

	reopened, err := ledger.Open(dbPath)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())

	writeFile(t, dir, "report.txt", "hello!")

	_, err = led.Check(pa)
	require.NoError(t, err)

	reopened, err = ledger.Open(dbPath)
	require.NoError(t, err)
	entries := reopened.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.StatusModified, entries[0].Status)

	require.NoError(t, led.Remove(pa))

	reopened, err = ledger.Open(dbPath)
	require.NoError(t, err)
	assert.Zero(t, reopened.Len())
}

func TestTamperDetectionLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	led, _ := tempLedger(t, dir)
	pa := writeFile(t, dir, "report.txt", "hello")

	en, err := led.Add(pa, digest.SHA256)
	require.NoError(t, err)
	require.Equal(t, helloSHA256, en.Digest)

	writeFile(t, dir, "report.txt", "hello!")

	res, err := led.Check(pa)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusModified, res.Status)
	assert.Equal(t, helloSHA256, res.ReferenceDigest)

	require.NoError(t, os.Remove(pa))

	res, err = led.Check(pa)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusMissing, res.Status)

	// The baseline survives the whole ordeal untouched.
	entries := led.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, helloSHA256, entries[0].Digest)
}
