package report

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasttemplate"

	"github.com/verifile/verifile/ledger"
)

// timeLayout is the timestamp format for rendered text. Ledger storage
// keeps full RFC 3339 precision; reports favor readability.
const timeLayout = "2006-01-02 15:04:05"

// reportMode leaves reports readable by reviewers other than the owner.
const reportMode = 0o644

const headerTemplate = `FILE INTEGRITY REPORT
==================================================
Run ID:    {ID}
Generated: {DATE}

SUMMARY
-------
Files checked: {TOTAL}
Intact:        {INTACT}
Modified:      {MODIFIED}
Missing:       {MISSING}
Errors:        {ERRORS}
`

const modifiedTemplate = `File: {PATH}
  Reference digest: {REFERENCE}
  Current digest:   {CURRENT}
  Checked:          {CHECKED}
`

const errorTemplate = `File: {PATH}
  Reason: {REASON}
`

const listTemplate = `{PATH} [{STATUS}]
  Algorithm:    {ALGORITHM}
  Size:         {SIZE} bytes
  Added:        {ADDED}
  Last checked: {CHECKED}
`

// Report is an assembled verification run ready for rendering.
type Report struct {
	// ID uniquely identifies the run.
	ID string

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time

	// Results holds the per-file outcomes in ledger order.
	Results []ledger.CheckResult

	// Summary aggregates the outcome counts.
	Summary ledger.Summary
}

// New assembles a report from a verification run.
func New(results []ledger.CheckResult, sum ledger.Summary) Report {
	return Report{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now(),
		Results:     results,
		Summary:     sum,
	}
}

// Render produces the plain-text report: a summary header followed by one
// section per deviation kind. Sections with nothing to say are omitted.
func (rp Report) Render() string {
	var sb strings.Builder

	sb.WriteString(fasttemplate.ExecuteStringStd(
		headerTemplate,
		"{", "}",
		map[string]interface{}{
			"ID":       rp.ID,
			"DATE":     rp.GeneratedAt.Format(timeLayout),
			"TOTAL":    strconv.Itoa(rp.Summary.Total()),
			"INTACT":   strconv.Itoa(rp.Summary.Intact),
			"MODIFIED": strconv.Itoa(rp.Summary.Modified),
			"MISSING":  strconv.Itoa(rp.Summary.Missing),
			"ERRORS":   strconv.Itoa(rp.Summary.Errors),
		},
	))

	rp.renderModified(&sb)
	rp.renderMissing(&sb)
	rp.renderErrors(&sb)

	if rp.Summary.Clean() {
		sb.WriteString("\nAll tracked files are intact.\n")
	}

	return sb.String()
}

func (rp Report) renderModified(sb *strings.Builder) {
	results := rp.filter(ledger.StatusModified)
	if len(results) == 0 {
		return
	}

	sb.WriteString("\nMODIFIED FILES\n--------------\n")

	for _, res := range results {
		sb.WriteString(fasttemplate.ExecuteStringStd(
			modifiedTemplate,
			"{", "}",
			map[string]interface{}{
				"PATH":      res.Path,
				"REFERENCE": res.ReferenceDigest,
				"CURRENT":   res.CurrentDigest,
				"CHECKED":   res.CheckedAt.Format(timeLayout),
			},
		))
	}
}

func (rp Report) renderMissing(sb *strings.Builder) {
	results := rp.filter(ledger.StatusMissing)
	if len(results) == 0 {
		return
	}

	sb.WriteString("\nMISSING FILES\n-------------\n")

	for _, res := range results {
		fmt.Fprintf(sb, "- %s\n", res.Path)
	}
}

func (rp Report) renderErrors(sb *strings.Builder) {
	results := rp.filter(ledger.StatusError)
	if len(results) == 0 {
		return
	}

	sb.WriteString("\nCHECK ERRORS\n------------\n")

	for _, res := range results {
		reason := "unknown"
		if res.Err != nil {
			reason = res.Err.Error()
		}

		sb.WriteString(fasttemplate.ExecuteStringStd(
			errorTemplate,
			"{", "}",
			map[string]interface{}{
				"PATH":   res.Path,
				"REASON": reason,
			},
		))
	}
}

// filter returns the results carrying the given status, in run order.
func (rp Report) filter(st ledger.Status) []ledger.CheckResult {
	var out []ledger.CheckResult

	for _, res := range rp.Results {
		if res.Status == st {
			out = append(out, res)
		}
	}

	return out
}

// Write renders the report and writes it to path.
func (rp Report) Write(path string) error {
	const errCtx = "writing report"

	err := os.WriteFile(path, []byte(rp.Render()), reportMode) //nolint:gosec // reports are meant to be shared
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// RenderList renders the tracked-file listing.
func RenderList(entries []ledger.Entry) string {
	if len(entries) == 0 {
		return "No files are tracked.\n"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Tracked files (%d):\n\n", len(entries))

	for _, en := range entries {
		sb.WriteString(fasttemplate.ExecuteStringStd(
			listTemplate,
			"{", "}",
			map[string]interface{}{
				"PATH":      en.Path,
				"STATUS":    string(en.Status),
				"ALGORITHM": strings.ToUpper(string(en.Algorithm)),
				"SIZE":      strconv.FormatInt(en.Size, 10),
				"ADDED":     en.AddedAt.Format(timeLayout),
				"CHECKED":   en.LastChecked.Format(timeLayout),
			},
		))
	}

	return sb.String()
}

// RenderResult renders a one-line outcome for a single check. Deviations
// shout, intact files do not.
func RenderResult(res ledger.CheckResult) string {
	switch res.Status {
	case ledger.StatusIntact:
		return fmt.Sprintf("intact: %s", res.Path)

	case ledger.StatusModified:
		return fmt.Sprintf(
			"MODIFIED: %s (reference %s, current %s)",
			res.Path,
			res.ReferenceDigest,
			res.CurrentDigest,
		)

	case ledger.StatusMissing:
		return fmt.Sprintf("MISSING: %s", res.Path)

	case ledger.StatusError:
		return fmt.Sprintf("ERROR: %s (%v)", res.Path, res.Err)

	default:
		return fmt.Sprintf("%s: %s", res.Status, res.Path)
	}
}
