// Package observability provides the service logger and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/width"

	"github.com/jonathan/flyer-scout/internal/types"
)

const (
	// boxWidth is the width of formatted output boxes in terminal columns
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer writes human-readable summaries for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// columns returns the terminal width of s. Wide and fullwidth runes take two columns.
func columns(s string) int {
	n := 0
	for _, r := range s {
		n += runeColumns(r)
	}
	return n
}

func runeColumns(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// fit truncates s to at most n columns, marking the cut with "...", and pads it to n.
func fit(s string, n int) string {
	if columns(s) > n {
		var sb strings.Builder
		used := 0
		for _, r := range s {
			c := runeColumns(r)
			if used+c > n-3 {
				break
			}
			sb.WriteRune(r)
			used += c
		}
		s = sb.String() + "..."
	}
	return s + strings.Repeat(" ", max(0, n-columns(s)))
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", fit(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", fit(line, inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func writeWarnings(sb *strings.Builder, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	fmt.Fprintf(sb, "\nWarnings (%d):\n", len(warnings))
	count := min(len(warnings), maxItemsToShow)
	for _, w := range warnings[:count] {
		fmt.Fprintf(sb, "  ! %s\n", w)
	}
	if len(warnings) > count {
		fmt.Fprintf(sb, "  ... and %d more\n", len(warnings)-count)
	}
}

// PrintStores outputs the configured stores.
func (p *Printer) PrintStores(stores []types.StoreSummary) {
	var sb strings.Builder
	for _, s := range stores {
		fmt.Fprintf(&sb, "%-10s %-8s %s\n", s.ID, s.Strategy, s.Name)
	}
	if len(stores) == 0 {
		sb.WriteString("no stores configured\n")
	}
	p.printBox("STORES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCandidates outputs discovery or resolve candidates.
func (p *Printer) PrintCandidates(title string, storeID types.StoreID, candidates []types.Candidate, warnings []string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Store: %s\n", storeID)
	fmt.Fprintf(&sb, "Candidates: %d\n\n", len(candidates))

	count := min(len(candidates), maxItemsToShow)
	for i, c := range candidates[:count] {
		fmt.Fprintf(&sb, "%d. [%s/%s] %s\n", i+1, c.Kind, c.Source, c.URL)
		if c.Title != "" {
			fmt.Fprintf(&sb, "   %s\n", c.Title)
		}
	}
	if len(candidates) > count {
		fmt.Fprintf(&sb, "... and %d more\n", len(candidates)-count)
	}
	writeWarnings(&sb, warnings)
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExtraction outputs an extraction summary with the first items.
func (p *Printer) PrintExtraction(resp *types.ExtractResponse) {
	if resp == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Store: %s   Mode: %s\n", resp.StoreID, resp.Mode)
	fmt.Fprintf(&sb, "Pages: %d   Tiles: %d   Items: %d   %dms\n", resp.Meta.Pages, resp.Meta.Tiles, resp.Count, resp.Meta.ElapsedMs)
	if resp.RunID != "" {
		fmt.Fprintf(&sb, "Run: %s\n", resp.RunID)
	}
	sb.WriteString("\n")

	count := min(len(resp.Items), maxItemsToShow)
	for _, item := range resp.Items[:count] {
		line := fmt.Sprintf("%s  ¥%d", item.Name, item.PriceYen)
		if item.Unit != "" {
			line += " / " + item.Unit
		}
		fmt.Fprintf(&sb, "• [%s] %s\n", item.Category, line)
	}
	if len(resp.Items) > count {
		fmt.Fprintf(&sb, "... and %d more items\n", len(resp.Items)-count)
	}
	writeWarnings(&sb, resp.Warnings)
	p.printBox("EXTRACTION", strings.TrimSuffix(sb.String(), "\n"))
}
