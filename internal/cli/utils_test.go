package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/ranking"
	"github.com/hyperjump/osusume/internal/recommend"
)

func sampleResponse() *models.RecommendResponse {
	price := 300
	return &models.RecommendResponse{Results: []*models.ScoredItem{
		{ID: 3, Name: "Dorayaki", Score: 0.9999, Category: "sweet", Price: &price},
		{ID: 2, Name: "Hojicha Latte", Score: 0.4321},
	}}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteRecommendations_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.RecommendResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Results) != 2 || decoded.Results[0].ID != 3 || *decoded.Results[0].Price != 300 {
		t.Errorf("decoded: %+v", decoded.Results)
	}
	if strings.Contains(buf.String(), `"category": ""`) {
		t.Error("empty category should be omitted")
	}
}

func TestWriteRecommendations_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecommendations(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2 recommendations", "[3] Dorayaki", "score=0.9999", "category=sweet", "price=300", "[2] Hojicha Latte"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	_ = WriteRecommendations(&buf, &models.RecommendResponse{}, OutputText)
	if !strings.Contains(buf.String(), "No recommendations") {
		t.Errorf("empty output: %q", buf.String())
	}
}

func TestWriteExplain_Text(t *testing.T) {
	rows := []*ranking.ScoreBreakdown{{
		ID: 2, Name: "Hojicha Latte", Base: 0.6, Final: ranking.ScoreCap, Clamped: true,
		Boosts: []ranking.AppliedBoost{{Name: "category", Score: 1.2}, {Name: "pair", Score: 1.35}},
	}}
	var buf bytes.Buffer
	if err := WriteExplain(&buf, rows, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"[2] Hojicha Latte", "cosine   0.6000", "+category", "+pair", "capped", "final    0.9999"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteItems_Text(t *testing.T) {
	items := []models.Item{
		{ID: 1, Name: "Matcha Latte", Desc: strings.Repeat("抹茶", 60), Category: "drink"},
		{ID: 2, Name: "Water"},
	}
	var buf bytes.Buffer
	if err := WriteItems(&buf, items, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "[1] Matcha Latte (drink)") || !strings.Contains(out, "...") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "2 items") {
		t.Errorf("missing count:\n%s", out)
	}
}

func TestWriteStatus_Text(t *testing.T) {
	st := &recommend.Status{
		CatalogPath: "/data/items.json", CatalogItems: 12, CacheBackend: "json",
		CachePath: "/data/items_with_vecs.json", CacheEntries: 12, CacheDimensions: 384,
		CacheBytes: 2048, EmbeddingBackend: "huggingface", EmbeddingModel: "sentence-transformers/all-MiniLM-L6-v2",
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"12 items", "Dimensions: 384", "2.0 KiB", "all-MiniLM-L6-v2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
