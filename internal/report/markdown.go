// Package report renders a completed trace session as Markdown, suitable
// for sharing with a takedown service or keeping as evidence.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/NomadBuilder/facetrace/internal/face"
	"github.com/NomadBuilder/facetrace/internal/match"
	"github.com/NomadBuilder/facetrace/internal/session"
)

// MarkdownWriter renders session results as GitHub-flavored Markdown.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that writes to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full report.
func (w *MarkdownWriter) Write(result *session.Result) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeDeepfake(md, result)
	w.writeResults(md, result)
	w.writeFooter(md)

	return md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *session.Result) {
	md.H1("Face Trace Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + result.SessionID + "`"},
			{"Generated", time.Now().Format("2006-01-02 15:04:05 MST")},
			{"Results", strconv.Itoa(result.TotalResults)},
			{"Flagged", strconv.Itoa(result.FlaggedCount)},
			{"Elapsed", result.Elapsed.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	switch {
	case result.FlaggedCount > 0:
		md.Cautionf("%d result(s) appear on known abusive sites. Consider a takedown request.", result.FlaggedCount)
	case result.TotalResults > 0:
		md.Note("Matches were found, but none on known abusive sites.")
	default:
		md.Tip("No appearances of this face were found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeDeepfake(md *markdown.Markdown, result *session.Result) {
	md.H2("Deepfake Assessment")
	md.PlainText("")

	df := result.Deepfake
	if df == nil {
		md.PlainText("No assessment was produced.")
		md.PlainText("")
		return
	}

	verdict := "No manipulation detected"
	if df.IsDeepfake {
		verdict = "Likely manipulated"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Verdict", verdict},
			{"Confidence", fmt.Sprintf("%.2f", df.Confidence)},
			{"Method", df.Method},
		},
	})
	md.PlainText("")

	if len(df.Indicators) > 0 {
		md.BulletList(df.Indicators...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, result *session.Result) {
	md.H2("Matches")
	md.PlainText("")

	if result.TotalResults == 0 {
		md.PlainText("No candidate pages were found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(result.Results))
	for _, r := range result.Results {
		rows = append(rows, []string{
			truncateString(r.URL, 60),
			r.SourceName,
			similarityCell(&r),
			flagCell(&r),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Engine", "Match", "Flag"},
		Rows:   rows,
	})
	md.PlainText("")
}

func similarityCell(r *match.Result) string {
	if !r.Verified {
		return "unverified"
	}
	if r.DuplicateOf != "" {
		return "duplicate"
	}
	if r.MatchConfidence == string(face.TierNoMatch) {
		return "no match"
	}
	return fmt.Sprintf("%s (%.2f)", r.MatchConfidence, r.FaceSimilarity)
}

func flagCell(r *match.Result) string {
	if !r.Flagged {
		return "-"
	}
	return r.FlagReason
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by facetrace. The uploaded image was published only for the duration of the search and has been deleted.*")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
