package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rbright/voxsearch/internal/audio"
	"github.com/rbright/voxsearch/internal/catalog"
	"github.com/rbright/voxsearch/internal/history"
)

func plainStyles() styles {
	return newStyles(&bytes.Buffer{})
}

func TestFormatPrice(t *testing.T) {
	require.Equal(t, "R$ 129,90", formatPrice(129.9))
	require.Equal(t, "R$ 45,00", formatPrice(45))
	require.Equal(t, "R$ 1.250,00", formatPrice(1250))
}

func TestRenderSearchSkipsEmptySections(t *testing.T) {
	out := plainStyles().renderSearch("whey protein", catalog.SearchResult{
		Purpose:  "suplementação proteica",
		Benefits: []string{"recuperação muscular", "saciedade"},
	})

	require.Equal(t, strings.Join([]string{
		"whey protein",
		"Purpose: suplementação proteica",
		"Benefits:",
		"  - recuperação muscular",
		"  - saciedade",
	}, "\n"), out)
}

func TestRenderProduct(t *testing.T) {
	out := plainStyles().renderProduct(catalog.Product{ID: "7", Name: "Creatina", Category: "Suplementos", Price: 89.5})

	require.Equal(t, "Creatina #7\nCategory: Suplementos\nPrice: R$ 89,50", out)
}

func TestRenderProductsAlignsColumns(t *testing.T) {
	out := plainStyles().renderProducts([]catalog.Product{
		{ID: "1", Name: "Whey Protein", Category: "Suplementos", Price: 129.9},
		{ID: "12", Name: "BCAA", Category: "Aminoácidos", Price: 60},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	require.Equal(t, strings.Index(lines[0], "Suplementos"), strings.Index(lines[1], "Aminoácidos"))
	require.True(t, strings.HasSuffix(lines[1], "R$ 60,00"))

	require.Equal(t, "no products", plainStyles().renderProducts(nil))
}

func TestRenderHistory(t *testing.T) {
	confidence := 0.91
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.Local)
	out := plainStyles().renderHistory([]history.Entry{
		{Source: history.SourceMicrophone, Success: true, Text: "creatina", Confidence: &confidence, CreatedAt: at},
		{Source: history.SourceImport, Success: false, Reason: "audio-too-short", CreatedAt: at},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "2026-03-01 12:30:00"))
	require.True(t, strings.HasSuffix(lines[0], "creatina (0.91)"))
	require.True(t, strings.HasSuffix(lines[1], "audio-too-short"))

	require.Equal(t, "no history", plainStyles().renderHistory(nil))
}

func TestRenderDevices(t *testing.T) {
	out := plainStyles().renderDevices([]audio.Device{
		{ID: "alsa_input.usb-headset", Description: "USB Headset", State: "running", Available: true, Default: true},
		{ID: "alsa_input.webcam", Description: "C920", State: "suspended", Muted: true},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "* alsa_input.usb-headset"))
	require.Contains(t, lines[0], `"USB Headset" running`)
	require.NotContains(t, lines[0], "muted")
	require.True(t, strings.HasPrefix(lines[1], "  alsa_input.webcam"))
	require.True(t, strings.HasSuffix(lines[1], `"C920" suspended muted unavailable`))
}
