package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ReportVersion is the schema version of Report.
const ReportVersion = "1.0.0"

// Report describes a single run of a benchmark case with its metadata.
type Report struct {
	Version     string        `json:"version"`
	GeneratedAt time.Time     `json:"generated_at"`
	GitCommit   string        `json:"git_commit,omitempty"`
	GitBranch   string        `json:"git_branch,omitempty"`
	Environment string        `json:"environment,omitempty"`
	Inbox       string        `json:"inbox"`
	Case        string        `json:"case"`
	Params      Params        `json:"params"`
	Result      *Result       `json:"result"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Throughput returns processed envelopes per second.
func (r *Report) Throughput() float64 {
	if r.Result == nil || r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Result.Processed) / r.Elapsed.Seconds()
}

// SaveReport saves the report as JSON.
func SaveReport(report *Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// OutputFormat represents output format type
type OutputFormat string

const (
	FormatJSON     OutputFormat = "json"
	FormatMarkdown OutputFormat = "markdown"
	FormatText     OutputFormat = "text"
)

// FormatReport formats the report in the given format.
func FormatReport(report *Report, format OutputFormat, w io.Writer) error {
	switch format {
	case FormatJSON:
		return formatJSON(report, w)
	case FormatMarkdown:
		return formatMarkdown(report, w)
	case FormatText:
		return formatText(report, w)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func formatJSON(report *Report, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func formatMarkdown(report *Report, w io.Writer) error {
	var sb strings.Builder
	p := report.Params

	sb.WriteString("# Benchmark Results\n\n")
	sb.WriteString(fmt.Sprintf("**Case:** %s  \n", report.Case))
	sb.WriteString(fmt.Sprintf("**Inbox:** %s  \n", report.Inbox))
	sb.WriteString(fmt.Sprintf("**Generated:** %s  \n", report.GeneratedAt.Format(time.RFC3339)))
	if report.GitCommit != "" {
		sb.WriteString(fmt.Sprintf("**Commit:** %s  \n", report.GitCommit))
	}
	sb.WriteString("\n")

	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Agents | %d |\n", p.AgentsNum))
	sb.WriteString(fmt.Sprintf("| Skills | %d |\n", p.SkillsNum))
	sb.WriteString(fmt.Sprintf("| Envelopes per inbox | %d |\n", p.InboxNum))
	sb.WriteString(fmt.Sprintf("| Loop timeout | %s |\n", p.AgentLoopTimeout))
	sb.WriteString("\n")

	sb.WriteString("## Result\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Elapsed | %dms |\n", report.Elapsed.Milliseconds()))
	if r := report.Result; r != nil {
		sb.WriteString(fmt.Sprintf("| Envelopes | %d |\n", r.Envelopes))
		sb.WriteString(fmt.Sprintf("| Processed | %d |\n", r.Processed))
		sb.WriteString(fmt.Sprintf("| Loop ticks | %d |\n", r.Ticks))
	}
	sb.WriteString(fmt.Sprintf("| Throughput | %.1f/s |\n", report.Throughput()))

	_, err := w.Write([]byte(sb.String()))
	return err
}

func formatText(report *Report, w io.Writer) error {
	var sb strings.Builder
	p := report.Params

	sb.WriteString("=== BENCHMARK RESULTS ===\n\n")
	sb.WriteString(fmt.Sprintf("Case:       %s\n", report.Case))
	sb.WriteString(fmt.Sprintf("Inbox:      %s\n", report.Inbox))
	sb.WriteString(fmt.Sprintf("Generated:  %s\n", report.GeneratedAt.Format(time.RFC3339)))
	if report.GitCommit != "" {
		sb.WriteString(fmt.Sprintf("Commit:     %s\n", report.GitCommit))
	}
	sb.WriteString("\n--- Parameters ---\n")
	sb.WriteString(fmt.Sprintf("Agents:       %d\n", p.AgentsNum))
	sb.WriteString(fmt.Sprintf("Skills:       %d\n", p.SkillsNum))
	sb.WriteString(fmt.Sprintf("Inbox:        %d\n", p.InboxNum))
	sb.WriteString(fmt.Sprintf("Loop timeout: %s\n", p.AgentLoopTimeout))

	sb.WriteString("\n--- Result ---\n")
	sb.WriteString(fmt.Sprintf("Elapsed:    %dms\n", report.Elapsed.Milliseconds()))
	if r := report.Result; r != nil {
		sb.WriteString(fmt.Sprintf("Processed:  %d/%d\n", r.Processed, r.Envelopes))
		sb.WriteString(fmt.Sprintf("Ticks:      %d\n", r.Ticks))
	}
	sb.WriteString(fmt.Sprintf("Throughput: %.1f/s\n", report.Throughput()))

	_, err := w.Write([]byte(sb.String()))
	return err
}
