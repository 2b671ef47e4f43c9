package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/capture"
	"github.com/rbright/voxsearch/internal/catalog"
	"github.com/rbright/voxsearch/internal/history"
)

var (
	colorRed    = lipgloss.Color("#FF0000")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGray   = lipgloss.Color("#666666")
)

// styles are bound to one output so color support follows that writer.
type styles struct {
	plain     lipgloss.Style
	title     lipgloss.Style
	label     lipgloss.Style
	dim       lipgloss.Style
	recording lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	progress  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		plain:     r.NewStyle(),
		title:     r.NewStyle().Bold(true).Foreground(colorCyan),
		label:     r.NewStyle().Foreground(colorCyan),
		dim:       r.NewStyle().Foreground(colorGray),
		recording: r.NewStyle().Bold(true).Foreground(colorRed),
		success:   r.NewStyle().Foreground(colorGreen),
		failure:   r.NewStyle().Bold(true).Foreground(colorRed),
		progress:  r.NewStyle().Foreground(colorYellow),
	}
}

// renderStatus formats one status snapshot as a single terminal line.
func (s styles) renderStatus(status capture.StatusSnapshot) string {
	switch {
	case status.IsRecording:
		return s.recording.Render("● recording") + s.dim.Render("  speak your query; silence or `voxsearch stop` ends it")
	case status.IsTranscribing:
		return s.progress.Render(fmt.Sprintf("◌ transcribing %3.0f%%", status.Progress))
	case status.Progress >= 100:
		return s.success.Render("✓ done 100%")
	default:
		return s.dim.Render("○ idle")
	}
}

func (s styles) renderNotification(n capture.Notification) string {
	if n.Kind == capture.KindError {
		return s.failure.Render("✗ " + n.Message)
	}
	return s.success.Render("✓ " + n.Message)
}

func (s styles) renderSearch(query string, result catalog.SearchResult) string {
	var b strings.Builder
	b.WriteString(s.title.Render(query))
	b.WriteString("\n")
	writeField(&b, s, "Purpose", result.Purpose)
	writeField(&b, s, "Origin", result.Origin)
	writeList(&b, s, "Benefits", result.Benefits)
	writeList(&b, s, "Contraindications", result.Contraindications)
	return strings.TrimSuffix(b.String(), "\n")
}

func (s styles) renderProduct(p catalog.Product) string {
	var b strings.Builder
	b.WriteString(s.title.Render(p.Name))
	b.WriteString(s.dim.Render(" #" + string(p.ID)))
	b.WriteString("\n")
	writeField(&b, s, "Category", p.Category)
	writeField(&b, s, "Price", formatPrice(p.Price))
	writeField(&b, s, "Promotion", p.Promotion)
	writeField(&b, s, "Description", p.Description)
	writeField(&b, s, "Image", p.ImageURL)
	return strings.TrimSuffix(b.String(), "\n")
}

func (s styles) renderProducts(products []catalog.Product) string {
	if len(products) == 0 {
		return s.dim.Render("no products")
	}

	idWidth, nameWidth := 2, 4
	for _, p := range products {
		idWidth = max(idWidth, lipgloss.Width(string(p.ID)))
		nameWidth = max(nameWidth, lipgloss.Width(p.Name))
	}
	idCol := s.label.Width(idWidth + 2)
	nameCol := s.plain.Width(nameWidth + 2)

	var b strings.Builder
	for _, p := range products {
		b.WriteString(idCol.Render(string(p.ID)))
		b.WriteString(nameCol.Render(p.Name))
		b.WriteString(s.dim.Render(p.Category + "  " + formatPrice(p.Price)))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (s styles) renderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return s.dim.Render("no history")
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(s.dim.Render(e.CreatedAt.Local().Format(time.DateTime)))
		b.WriteString(" ")
		b.WriteString(s.label.Render(fmt.Sprintf("%-10s", e.Source)))
		if e.Success {
			b.WriteString(s.success.Render(e.Text))
			if e.Confidence != nil {
				b.WriteString(s.dim.Render(fmt.Sprintf(" (%.2f)", *e.Confidence)))
			}
		} else {
			b.WriteString(s.failure.Render(e.Reason))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// renderDevices lists input sources, marking the default with "*" and
// flagging sources a recording cannot use.
func (s styles) renderDevices(devices []audio.Device) string {
	idWidth := 2
	for _, d := range devices {
		idWidth = max(idWidth, lipgloss.Width(d.ID))
	}
	idCol := s.plain.Width(idWidth + 2)

	var b strings.Builder
	for _, d := range devices {
		mark := "  "
		if d.Default {
			mark = s.success.Render("* ")
		}
		b.WriteString(mark)
		b.WriteString(idCol.Render(d.ID))
		b.WriteString(s.dim.Render(fmt.Sprintf("%q %s", d.Description, d.State)))
		if d.Muted {
			b.WriteString(s.failure.Render(" muted"))
		}
		if !d.Available {
			b.WriteString(s.failure.Render(" unavailable"))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeField(b *strings.Builder, s styles, name string, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(s.label.Render(name + ": "))
	b.WriteString(value)
	b.WriteString("\n")
}

func writeList(b *strings.Builder, s styles, name string, values []string) {
	if len(values) == 0 {
		return
	}
	b.WriteString(s.label.Render(name + ":"))
	b.WriteString("\n")
	for _, v := range values {
		b.WriteString("  - ")
		b.WriteString(v)
		b.WriteString("\n")
	}
}

var pricePrinter = message.NewPrinter(language.BrazilianPortuguese)

// formatPrice renders prices as Brazilian reais (R$ 1.250,00).
func formatPrice(price float64) string {
	return pricePrinter.Sprintf("R$ %.2f", price)
}
