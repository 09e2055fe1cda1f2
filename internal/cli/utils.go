// Package cli provides output formatting for the Osusume command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/ranking"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecommendations writes ranked results to w in the given format.
func WriteRecommendations(w io.Writer, resp *models.RecommendResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No recommendations.")
		return nil
	}
	fmt.Fprintf(w, "\n%d recommendations\n\n", len(resp.Results))
	for i, r := range resp.Results {
		fmt.Fprintf(w, "%2d. [%d] %s  score=%.4f", i+1, r.ID, r.Name, r.Score)
		if r.Category != "" {
			fmt.Fprintf(w, "  category=%s", r.Category)
		}
		if r.Price != nil {
			fmt.Fprintf(w, "  price=%d", *r.Price)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteExplain writes the score breakdown of each result.
func WriteExplain(w io.Writer, rows []*ranking.ScoreBreakdown, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, rows)
	}
	for i, r := range rows {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. [%d] %s\n", i+1, r.ID, r.Name)
		fmt.Fprintf(w, "   cosine   %.4f\n", r.Base)
		for _, b := range r.Boosts {
			fmt.Fprintf(w, "   +%-7s %.4f\n", b.Name, b.Score)
		}
		if r.Clamped {
			fmt.Fprintf(w, "   capped   %.4f\n", ranking.ScoreCap)
		}
		fmt.Fprintf(w, "   final    %.4f\n", r.Final)
	}
	return nil
}

// WriteItems writes the catalog listing.
func WriteItems(w io.Writer, items []models.Item, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, items)
	}
	for _, it := range items {
		line := fmt.Sprintf("[%d] %s", it.ID, it.Name)
		if it.Category != "" {
			line += " (" + it.Category + ")"
		}
		fmt.Fprintln(w, line)
		if it.Desc != "" {
			fmt.Fprintf(w, "    %s\n", utils.Truncate(it.Desc, 80))
		}
	}
	_, err := fmt.Fprintf(w, "\n%d items\n", len(items))
	return err
}

// WriteStatus writes catalog and cache state.
func WriteStatus(w io.Writer, st *recommend.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Catalog:    %s (%d items)\n", st.CatalogPath, st.CatalogItems)
	fmt.Fprintf(w, "Cache:      %s [%s]\n", st.CachePath, st.CacheBackend)
	fmt.Fprintf(w, "Entries:    %d\n", st.CacheEntries)
	if st.CacheDimensions > 0 {
		fmt.Fprintf(w, "Dimensions: %d\n", st.CacheDimensions)
	}
	fmt.Fprintf(w, "Disk usage: %s\n", formatBytes(st.CacheBytes))
	if st.EmbeddingModel != "" {
		fmt.Fprintf(w, "Embedding:  %s (%s)\n", st.EmbeddingModel, st.EmbeddingBackend)
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
