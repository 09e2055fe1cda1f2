package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/cli"
	"github.com/hyperjump/osusume/internal/models"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"flags first", []string{"--top", "5", "1"}, []string{"--top", "5", "1"}},
		{"flags after ids", []string{"1", "4", "--top", "5"}, []string{"--top", "5", "1", "4"}},
		{"no flags", []string{"1", "4"}, []string{"1", "4"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := argsReorder(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("argsReorder(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseHistory(t *testing.T) {
	tests := []struct {
		name       string
		flagValue  string
		positional []string
		want       []int
		wantErr    bool
	}{
		{"flag only", "1,4,8", nil, []int{1, 4, 8}, false},
		{"positional only", "", []string{"2", "3"}, []int{2, 3}, false},
		{"both", "1", []string{"5,6"}, []int{1, 5, 6}, false},
		{"empty", "", nil, nil, false},
		{"bad flag", "1,x", nil, nil, true},
		{"bad positional", "", []string{"abc"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHistory(tt.flagValue, tt.positional)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func newRecommendFlagSet(f *recommendFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	fs.StringVar(&f.history, "history", "", "")
	fs.IntVar(&f.top, "top", 3, "")
	fs.BoolVar(&f.noCache, "no-cache", false, "")
	fs.Float64Var(&f.categoryBoost, "category-boost", 1.0, "")
	fs.Float64Var(&f.pairBoost, "pair-boost", 0.15, "")
	return fs
}

func TestBuildRecommendRequest_OnlySetFlags(t *testing.T) {
	var f recommendFlags
	fs := newRecommendFlagSet(&f)
	if err := fs.Parse([]string{"--history", "1,4"}); err != nil {
		t.Fatal(err)
	}
	req, err := buildRecommendRequest(fs, f)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(req.History, []int{1, 4}) {
		t.Errorf("history = %v", req.History)
	}
	if req.Top != nil || req.UseCache != nil || req.CategoryBoost != nil || req.PairBoost != nil {
		t.Errorf("unset flags should leave fields nil: %+v", req)
	}
}

func TestBuildRecommendRequest_AllFlags(t *testing.T) {
	var f recommendFlags
	fs := newRecommendFlagSet(&f)
	args := []string{"--top", "5", "--no-cache", "--category-boost", "2", "--pair-boost", "0", "7"}
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	req, err := buildRecommendRequest(fs, f)
	if err != nil {
		t.Fatal(err)
	}
	want := &models.RecommendRequest{History: []int{7}}
	if !reflect.DeepEqual(req.History, want.History) {
		t.Errorf("history = %v", req.History)
	}
	if req.Top == nil || *req.Top != 5 {
		t.Errorf("top = %v", req.Top)
	}
	if req.UseCache == nil || *req.UseCache {
		t.Errorf("use_cache should be false")
	}
	if req.CategoryBoost == nil || *req.CategoryBoost != 2 {
		t.Errorf("category_boost = %v", req.CategoryBoost)
	}
	if req.PairBoost == nil || *req.PairBoost != 0 {
		t.Errorf("explicit zero pair_boost lost: %v", req.PairBoost)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  catalog_path: "./menu.json"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if filepath.Base(cfg.Storage.CatalogPath) != "menu.json" && os.Getenv("OSUSUME_CATALOG") == "" {
		t.Errorf("catalog path = %s", cfg.Storage.CatalogPath)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_builtinDefaultsWhenNoFile(t *testing.T) {
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("system config present")
	}
	if os.Getenv("OSUSUME_CATALOG") != "" {
		t.Skip("OSUSUME_CATALOG set")
	}
	dir := t.TempDir()
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved = %q, want empty for built-in defaults", resolved)
	}
	cwd, _ := os.Getwd()
	if want := filepath.Join(cwd, "data", "items.json"); cfg.Storage.CatalogPath != want {
		t.Errorf("catalog path = %s, want %s", cfg.Storage.CatalogPath, want)
	}
}

func TestLoadConfig_explicitMissing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestInitializeComponents_Mock(t *testing.T) {
	dir := t.TempDir()
	catalogPath := filepath.Join(dir, "items.json")
	catalogJSON := `[{"id":1,"name":"Matcha","desc":"green tea","category":"drink"},{"id":2,"name":"Sencha","desc":"green tea leaves","category":"drink"}]`
	if err := os.WriteFile(catalogPath, []byte(catalogJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "config.yaml")
	content := `
storage:
  catalog_path: "./items.json"
  cache_path: "./cache.db"
  cache_backend: sqlite
embedding:
  backend: mock
  dimensions: 8
precompute:
  delay: 0s
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"EMBED_BACKEND", "OSUSUME_CATALOG", "OSUSUME_CACHE", "PRECOMPUTE_DELAY"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	components, err := initializeComponents(cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer components.Close()

	resp, err := components.Service.Recommend(context.Background(), &models.RecommendRequest{History: []int{1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 2 {
		t.Errorf("results = %+v", resp.Results)
	}
	if _, err := os.Stat(filepath.Join(dir, "cache.db")); err != nil {
		t.Errorf("sqlite cache not created: %v", err)
	}
}

func TestPostJSON_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"no history item found in catalog"}`))
	}))
	defer ts.Close()

	var out models.RecommendResponse
	err := postJSON(ts.URL+"/recommend", &models.RecommendRequest{History: []int{9}}, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "no history item") {
		t.Errorf("error = %v", err)
	}
}

func TestGetRaw(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("  [{\"id\":1}]\n"))
	}))
	defer ts.Close()

	raw, err := getRaw(ts.URL + "/items")
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `[{"id":1}]` {
		t.Errorf("raw = %q", raw)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteItems(t *testing.T) {
	raw := []byte(`[{"id":1,"name":"Matcha Latte","category":"drink","desc":"Green tea."}]`)

	var buf bytes.Buffer
	if err := writeItems(&buf, raw, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "[1] Matcha Latte (drink)") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	if err := writeItems(&buf, raw, cli.OutputJSON); err != nil {
		t.Fatal(err)
	}
	if buf.String() != string(raw)+"\n" {
		t.Errorf("json output = %q", buf.String())
	}

	tests := []struct {
		name   string
		format cli.OutputFormat
	}{
		{"text write error", cli.OutputText},
		{"json write error", cli.OutputJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := writeItems(failingWriter{}, raw, tt.format); err == nil {
				t.Error("expected write error")
			}
		})
	}

	if err := writeItems(&bytes.Buffer{}, []byte(`{"id":1}`), cli.OutputText); err == nil {
		t.Error("expected parse error for non-array catalog")
	}
}
