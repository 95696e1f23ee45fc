package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"ember/internal/feedback"
)

// TableOptions controls profile rendering.
type TableOptions struct {
	Color bool
	// Width caps the line width; zero means 100 columns.
	Width int
	// Kind, when set, keeps only sites that observed it.
	Kind *feedback.Kind
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	siteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	countStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderProfile writes p as a table, one row per site.
func RenderProfile(w io.Writer, p *feedback.Profile, opts TableOptions) error {
	width := opts.Width
	if width <= 0 {
		width = 100
	}
	printer := message.NewPrinter(language.English)
	style := func(s lipgloss.Style, text string) string {
		if !opts.Color {
			return text
		}
		return s.Render(text)
	}

	rows := make([][4]string, 0, len(p.Sites))
	for _, sp := range p.Sites {
		if opts.Kind != nil && !sp.Kinds.Has(*opts.Kind) {
			continue
		}
		rows = append(rows, [4]string{
			sp.Site.String(),
			sp.Kinds.String(),
			formatCounts(printer, sp.Counts),
			strings.Join(sp.Keys, ","),
		})
	}

	header := [4]string{"SITE", "KINDS", "COUNTS", "KEYS"}
	cols := [4]int{}
	for i, h := range header {
		cols[i] = runewidth.StringWidth(h)
	}
	for _, r := range rows {
		for i := 0; i < 3; i++ {
			cols[i] = max(cols[i], runewidth.StringWidth(r[i]))
		}
	}
	// The last column takes what is left.
	cols[3] = max(width-cols[0]-cols[1]-cols[2]-6, 8)

	created := time.Unix(p.Created, 0).UTC().Format(time.RFC3339)
	title := fmt.Sprintf("profile %s (schema %d, %s): %s sites", p.RunID, p.Schema, created, printer.Sprintf("%d", len(rows)))
	if _, err := fmt.Fprintln(w, style(headerStyle, title)); err != nil {
		return err
	}
	line := func(cells [4]string, styles [4]lipgloss.Style) error {
		var sb strings.Builder
		for i, c := range cells {
			c = truncate(c, cols[i])
			if i < 3 {
				c = runewidth.FillRight(c, cols[i])
			}
			sb.WriteString(style(styles[i], c))
			if i < 3 {
				sb.WriteString("  ")
			}
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
		return err
	}
	if err := line(header, [4]lipgloss.Style{headerStyle, headerStyle, headerStyle, headerStyle}); err != nil {
		return err
	}
	plain := lipgloss.NewStyle()
	for _, r := range rows {
		if err := line(r, [4]lipgloss.Style{siteStyle, plain, countStyle, dimStyle}); err != nil {
			return err
		}
	}
	return nil
}

// formatCounts lists counts in kind declaration order.
func formatCounts(p *message.Printer, counts map[string]uint64) string {
	parts := make([]string, 0, len(counts))
	for _, k := range feedback.Kinds() {
		if n, ok := counts[k.String()]; ok {
			parts = append(parts, p.Sprintf("%s=%d", k.String(), n))
		}
	}
	return strings.Join(parts, " ")
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
