package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sift/sift/internal/logging"
)

const (
	topN         = 5
	maxLineBytes = 1 << 20
)

type Summary struct {
	Findings    int         `json:"findings"`
	Scans       int         `json:"scans"`
	Clean       int         `json:"clean"`
	Flagged     int         `json:"flagged"`
	Blocked     int         `json:"blocked"`
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	TopRules    []CountItem `json:"top_rules"`
	TopPatterns []CountItem `json:"top_patterns"`
	TopSources  []CountItem `json:"top_sources"`
}

type CountItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Reader struct {
	Since time.Time
}

func (r *Reader) Read(path string) ([]logging.Finding, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return r.Decode(file)
}

// Decode reads findings JSONL, skipping blank lines and findings older than
// Since.
func (r *Reader) Decode(in io.Reader) ([]logging.Finding, error) {
	var findings []logging.Finding
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var f logging.Finding
		if err := json.Unmarshal([]byte(text), &f); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !r.Since.IsZero() && f.Timestamp.Before(r.Since) {
			continue
		}
		findings = append(findings, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return findings, nil
}

// Summarize counts findings and the scans they belong to. A scan's verdict
// is taken from its findings, which all carry the same one.
func Summarize(findings []logging.Finding) Summary {
	var summary Summary
	if len(findings) == 0 {
		return summary
	}

	summary.Start = findings[0].Timestamp
	summary.End = findings[0].Timestamp

	ruleCounts := map[string]int{}
	patternCounts := map[string]int{}
	sourceCounts := map[string]int{}
	verdicts := map[string]string{}

	for _, f := range findings {
		summary.Findings++
		if f.Timestamp.Before(summary.Start) {
			summary.Start = f.Timestamp
		}
		if f.Timestamp.After(summary.End) {
			summary.End = f.Timestamp
		}

		ruleCounts[f.RuleID]++
		patternCounts[f.RuleID+": "+f.Pattern]++
		sourceCounts[f.Source]++
		verdicts[f.ScanID] = f.Verdict
	}

	summary.Scans = len(verdicts)
	for _, verdict := range verdicts {
		switch verdict {
		case "clean":
			summary.Clean++
		case "flagged":
			summary.Flagged++
		case "blocked":
			summary.Blocked++
		}
	}

	summary.TopRules = topCounts(ruleCounts, topN)
	summary.TopPatterns = topCounts(patternCounts, topN)
	summary.TopSources = topCounts(sourceCounts, topN)

	return summary
}

func topCounts(counts map[string]int, n int) []CountItem {
	items := make([]CountItem, 0, len(counts))
	for key, count := range counts {
		items = append(items, CountItem{Key: key, Count: count})
	}
	if len(items) == 0 {
		return nil
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].Key < items[j].Key
		}
		return items[i].Count > items[j].Count
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

func timeRange(summary Summary) string {
	if summary.Findings == 0 {
		return "none"
	}
	return summary.Start.UTC().Format(time.RFC3339) + " .. " + summary.End.UTC().Format(time.RFC3339)
}

func RenderText(summary Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Findings: %d\n", summary.Findings)
	fmt.Fprintf(&b, "Scans: %d (clean %d, flagged %d, blocked %d)\n", summary.Scans, summary.Clean, summary.Flagged, summary.Blocked)
	fmt.Fprintf(&b, "Range: %s\n", timeRange(summary))

	writeCounts(&b, "Top rules", summary.TopRules)
	writeCounts(&b, "Top patterns", summary.TopPatterns)
	writeCounts(&b, "Top sources", summary.TopSources)

	return b.String()
}

func RenderMarkdown(summary Summary) string {
	var b strings.Builder
	b.WriteString("# Sift Report\n\n")
	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Findings: %d\n", summary.Findings)
	fmt.Fprintf(&b, "- Scans: %d\n", summary.Scans)
	fmt.Fprintf(&b, "- Clean: %d\n", summary.Clean)
	fmt.Fprintf(&b, "- Flagged: %d\n", summary.Flagged)
	fmt.Fprintf(&b, "- Blocked: %d\n", summary.Blocked)
	fmt.Fprintf(&b, "- Range: %s\n\n", timeRange(summary))

	writeCountsMarkdown(&b, "Top rules", summary.TopRules)
	writeCountsMarkdown(&b, "Top patterns", summary.TopPatterns)
	writeCountsMarkdown(&b, "Top sources", summary.TopSources)

	return b.String()
}

func RenderJSON(summary Summary) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

// Render picks a renderer by format name: text, md or json.
func Render(summary Summary, format string) ([]byte, error) {
	switch format {
	case "", "text":
		return []byte(RenderText(summary)), nil
	case "md", "markdown":
		return []byte(RenderMarkdown(summary)), nil
	case "json":
		return RenderJSON(summary)
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func writeCounts(b *strings.Builder, title string, items []CountItem) {
	if len(items) == 0 {
		fmt.Fprintf(b, "%s: none\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
}

func writeCountsMarkdown(b *strings.Builder, title string, items []CountItem) {
	b.WriteString("## ")
	b.WriteString(title)
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("- none\n\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s: %d\n", item.Key, item.Count)
	}
	b.WriteString("\n")
}

// WriteOutput writes content to path, or to stdout when path is empty.
func WriteOutput(path string, content []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(content)
		return err
	}
	return os.WriteFile(path, content, 0o600)
}
