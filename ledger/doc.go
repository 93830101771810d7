// Package ledger implements the integrity ledger: a collection of tracked
// file entries keyed by absolute path and backed by a JSON file that is
// loaded once at construction and rewritten after every mutation.
// Verification recomputes each tracked file's digest and classifies the
// file as intact, modified, missing, or error against the recorded
// baseline. A modified file is never silently re-baselined; the recorded
// digest keeps flagging it until the file is explicitly re-added.
//
// A Ledger is not safe for concurrent use, and two processes must not
// share the same storage file.
package ledger
