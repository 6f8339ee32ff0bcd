package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", fmt.Errorf("failed to create renderer: %w", err)
		}
		return r.Render(markdown)
	}
}

// Summary is the data shown by `reticula infer --summary`.
type Summary struct {
	Newick         string
	Trees          int
	Taxa           int
	Quartets       int
	Irreconcilable int
	Reticulations  int
	Root           string
	Cached         bool
}

// Markdown formats s as a markdown report.
func (s Summary) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# Inferred network\n\n")
	sb.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Trees | %d |\n", s.Trees)
	fmt.Fprintf(&sb, "| Taxa | %d |\n", s.Taxa)
	if s.Quartets > 0 {
		fmt.Fprintf(&sb, "| Quartets | %d |\n", s.Quartets)
	}
	fmt.Fprintf(&sb, "| Irreconcilable quartets | %d |\n", s.Irreconcilable)
	fmt.Fprintf(&sb, "| Reticulations | %d |\n", s.Reticulations)
	if s.Root != "" {
		fmt.Fprintf(&sb, "| Rooting | %s |\n", s.Root)
	}
	if s.Cached {
		sb.WriteString("| Source | cache |\n")
	}
	sb.WriteString("\n```\n")
	sb.WriteString(s.Newick)
	sb.WriteString("\n```\n")
	return sb.String()
}
