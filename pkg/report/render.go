package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/panbanda/scry/internal/output"
	"github.com/panbanda/scry/pkg/analyzer/deadcode"
	"github.com/panbanda/scry/pkg/findings"
)

// RenderData returns the report itself for JSON and TOON encoding.
func (r *QualityReport) RenderData() any {
	return r
}

// RenderText writes the console report.
func (r *QualityReport) RenderText(w io.Writer, colored bool) error {
	title := "Code Quality Report"
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintln(w)

	grade := r.Grade
	if colored {
		grade = output.GradeColor(grade)
	}
	fmt.Fprintf(w, "Score: %.2f / 100   Grade: %s\n\n", r.Score, grade)

	if err := r.metricsTable().RenderText(w, colored); err != nil {
		return err
	}

	for _, group := range r.Findings {
		if err := groupTable(group, colored).RenderText(w, colored); err != nil {
			return err
		}
		if group.Kind == findings.KindDeadCode {
			fmt.Fprintln(w, deadcode.Disclaimer)
			fmt.Fprintln(w)
		}
	}

	if len(r.Files) > 0 {
		if err := r.filesTable().RenderText(w, colored); err != nil {
			return err
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations")
		fmt.Fprintln(w, strings.Repeat("-", len("Recommendations")))
		for i, rec := range r.Recommendations {
			fmt.Fprintf(w, "%d. %s\n", i+1, rec)
		}
		fmt.Fprintln(w)
	}

	if len(r.SkippedFiles) > 0 {
		fmt.Fprintf(w, "Skipped %d file(s):\n", len(r.SkippedFiles))
		for _, sf := range r.SkippedFiles {
			fmt.Fprintf(w, "  %s: %s\n", sf.Path, sf.Reason)
		}
	}

	return nil
}

// RenderMarkdown writes the report as markdown.
func (r *QualityReport) RenderMarkdown(w io.Writer) error {
	fmt.Fprintf(w, "# Code Quality Report\n\n")
	fmt.Fprintf(w, "**Score:** %.2f / 100   **Grade:** %s\n\n", r.Score, r.Grade)

	if err := r.metricsTable().RenderMarkdown(w); err != nil {
		return err
	}

	for _, group := range r.Findings {
		if err := groupTable(group, false).RenderMarkdown(w); err != nil {
			return err
		}
		if group.Kind == findings.KindDeadCode {
			fmt.Fprintf(w, "> %s\n\n", deadcode.Disclaimer)
		}
	}

	if len(r.Files) > 0 {
		if err := r.filesTable().RenderMarkdown(w); err != nil {
			return err
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(w, "## Recommendations\n\n")
		for i, rec := range r.Recommendations {
			fmt.Fprintf(w, "%d. %s\n", i+1, rec)
		}
		fmt.Fprintln(w)
	}

	if len(r.SkippedFiles) > 0 {
		fmt.Fprintf(w, "## Skipped files\n\n")
		for _, sf := range r.SkippedFiles {
			fmt.Fprintf(w, "- `%s`: %s\n", sf.Path, sf.Reason)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// metricsTable lays out ProjectMetrics as a two-column table.
func (r *QualityReport) metricsTable() *output.Table {
	rows := [][]string{
		{"Files analyzed", fmt.Sprintf("%d", r.Metrics.FilesAnalyzed)},
		{"Files skipped", fmt.Sprintf("%d", r.Metrics.FilesSkipped)},
		{"Declarations", fmt.Sprintf("%d", r.Metrics.TotalDeclarations)},
		{"Branch points", fmt.Sprintf("%d", r.Metrics.TotalBranches)},
		{"Loops", fmt.Sprintf("%d", r.Metrics.TotalLoops)},
		{"Avg cyclomatic", fmt.Sprintf("%.2f", r.Metrics.AvgCyclomatic)},
		{"P95 cyclomatic", fmt.Sprintf("%.1f", r.Metrics.P95Cyclomatic)},
	}
	return output.NewTable("Project Metrics", []string{"Metric", "Value"}, rows, nil, r.Metrics)
}

// filesTable lays out the per-file summary.
func (r *QualityReport) filesTable() *output.Table {
	rows := make([][]string, 0, len(r.Files))
	for _, fs := range r.Files {
		rows = append(rows, []string{
			fs.Path,
			fmt.Sprintf("%d", fs.Functions),
			fmt.Sprintf("%d", fs.Complexity),
			fmt.Sprintf("%d", fs.EstimatedTests),
			fmt.Sprintf("%.1f", fs.Maintainability),
		})
	}
	headers := []string{"File", "Functions", "Complexity", "Est. Tests", "Maintainability"}
	return output.NewTable("Files", headers, rows, nil, r.Files)
}

// groupTable lays out one finding kind as a table.
func groupTable(group KindGroup, colored bool) *output.Table {
	title := fmt.Sprintf("%s (%d)", kindTitle(group.Kind), group.Count)

	headers := []string{"Name", "Location", "Severity", "Detail"}
	if group.Kind == findings.KindDeadCode {
		headers = []string{"Name", "Location", "Severity", "Confidence", "Detail"}
	}

	rows := make([][]string, 0, len(group.Findings))
	for _, f := range group.Findings {
		severity := string(f.Severity)
		if colored {
			severity = output.SeverityColor(string(f.Severity), severity)
		}
		location := fmt.Sprintf("%s:%d", f.File, f.Line)
		if group.Kind == findings.KindDeadCode {
			rows = append(rows, []string{f.Name, location, severity, string(f.Confidence), f.Detail})
		} else {
			rows = append(rows, []string{f.Name, location, severity, f.Detail})
		}
	}

	return output.NewTable(title, headers, rows, nil, group)
}

// kindTitle returns a human heading for a finding kind.
func kindTitle(kind findings.Kind) string {
	switch kind {
	case findings.KindDeadCode:
		return "Dead Code"
	case findings.KindComplexFunction:
		return "Complex Functions"
	case findings.KindLongFunction:
		return "Long Functions"
	case findings.KindNamingViolation:
		return "Naming Violations"
	case findings.KindMissingDocstring:
		return "Missing Docstrings"
	case findings.KindErrorHandlingGap:
		return "Error Handling Gaps"
	case findings.KindMagicNumber:
		return "Magic Numbers"
	default:
		return string(kind)
	}
}
