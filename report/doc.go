// Package report renders the structured outcomes of ledger operations as
// plain text: full verification reports, tracked-file listings, and
// one-line check results. The ledger itself never formats user-facing
// text; this package is the presentation seam.
package report
