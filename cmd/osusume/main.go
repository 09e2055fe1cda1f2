// Package main is the Osusume CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/osusume/internal/catalog"
	"github.com/hyperjump/osusume/internal/cli"
	"github.com/hyperjump/osusume/internal/config"
	"github.com/hyperjump/osusume/internal/embedding"
	"github.com/hyperjump/osusume/internal/indexer"
	"github.com/hyperjump/osusume/internal/models"
	"github.com/hyperjump/osusume/internal/recommend"
	"github.com/hyperjump/osusume/internal/server"
	"github.com/hyperjump/osusume/internal/storage"
	"github.com/hyperjump/osusume/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/osusume/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if present; if neither exists the built-in defaults are used
// with relative paths resolved against the current directory.
// Returns the config and the path that was actually loaded ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	fallback := filepath.Join(cwd, "config.yaml")
	if _, statErr := os.Stat(fallback); statErr == nil {
		cfg, loadErr := config.Load(fallback)
		if loadErr != nil {
			return nil, "", loadErr
		}
		return cfg, fallback, nil
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg, defErr := config.Default(cwd)
		if defErr != nil {
			return nil, "", defErr
		}
		return cfg, "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "precompute":
		runPrecompute()
	case "items":
		runItems()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("osusume version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("catalog", cfg.Storage.CatalogPath),
		zap.String("cache", cfg.Storage.CachePath),
		zap.String("embedding_backend", cfg.Embedding.Backend),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Service, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// argsReorder moves any flags (and their values) that appear after positional
// arguments to the front so that flag.Parse() sees them. Go's flag package stops
// at the first non-flag argument, so "osusume recommend 1 4 --top 5" would
// otherwise leave --top unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseHistory merges the --history list with positional ids.
func parseHistory(flagValue string, positional []string) ([]int, error) {
	ids, err := utils.ParseIntList(flagValue)
	if err != nil {
		return nil, fmt.Errorf("--history: %w", err)
	}
	for _, p := range positional {
		more, err := utils.ParseIntList(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, more...)
	}
	return ids, nil
}

// recommendFlags holds the raw flag values of the recommend command.
type recommendFlags struct {
	history       string
	top           int
	noCache       bool
	categoryBoost float64
	pairBoost     float64
}

// buildRecommendRequest copies only the flags the user set, so unset fields
// fall back to the configured defaults.
func buildRecommendRequest(fs *flag.FlagSet, f recommendFlags) (*models.RecommendRequest, error) {
	history, err := parseHistory(f.history, fs.Args())
	if err != nil {
		return nil, err
	}
	req := &models.RecommendRequest{History: history}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "top":
			top := f.top
			req.Top = &top
		case "no-cache":
			useCache := !f.noCache
			req.UseCache = &useCache
		case "category-boost":
			v := f.categoryBoost
			req.CategoryBoost = &v
		case "pair-boost":
			v := f.pairBoost
			req.PairBoost = &v
		}
	})
	return req, nil
}

func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: osusume recommend [flags] [id ...]\n\n")
	fmt.Fprintf(fs.Output(), "History ids come from --history and any remaining arguments.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  osusume recommend --history 1,4,8
  osusume recommend 1 4 8 --top 5
  osusume recommend --history 2 --no-cache --explain
  osusume recommend --server http://localhost:8080 --history 3 --output json
`)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run the engine locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	explain := fs.Bool("explain", false, "show the score breakdown of each result (local only)")
	debug := fs.Bool("debug", false, "enable debug logging")
	var f recommendFlags
	fs.StringVar(&f.history, "history", "", "comma-separated history item ids")
	fs.IntVar(&f.top, "top", 3, "number of results")
	fs.BoolVar(&f.noCache, "no-cache", false, "recompute every vector and rewrite the cache")
	fs.Float64Var(&f.categoryBoost, "category-boost", 1.0, "multiplier for items sharing a history category")
	fs.Float64Var(&f.pairBoost, "pair-boost", 0.15, "bonus for items paired with a history item")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req, err := buildRecommendRequest(fs, f)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(req.History) == 0 {
		printRecommendUsage(fs)
		os.Exit(1)
	}

	if *serverURL != "" {
		if *explain {
			fmt.Fprintln(os.Stderr, "--explain is only available without --server")
			os.Exit(1)
		}
		var resp models.RecommendResponse
		if err := postJSON(*serverURL+"/recommend", req, &resp); err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRecommendations(os.Stdout, &resp, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	components, closeFn := mustLocalComponents(*configPath, *debug)
	defer closeFn()
	ctx := context.Background()
	if *explain {
		rows, err := components.Service.Explain(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteExplain(os.Stdout, rows, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	resp, err := components.Service.Recommend(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendations(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runPrecompute() {
	fs := flag.NewFlagSet("precompute", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = run the engine locally)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	var resp *models.PrecomputeResponse
	if *serverURL != "" {
		resp = &models.PrecomputeResponse{}
		if err := postJSON(*serverURL+"/precompute", struct{}{}, resp); err != nil {
			fmt.Fprintf(os.Stderr, "Precompute failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, closeFn := mustLocalComponents(*configPath, *debug)
		defer closeFn()
		var err error
		start := time.Now()
		resp, err = components.Service.Precompute(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Precompute failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Precomputed %d items in %s\n", resp.Count, time.Since(start).Round(time.Millisecond))
		return
	}
	fmt.Printf("Precomputed %d items\n", resp.Count)
}

func runItems() {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the catalog file)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var raw json.RawMessage
	if *serverURL != "" {
		raw, err = getRaw(*serverURL + "/items")
	} else {
		var cfg *config.Config
		cfg, _, err = loadConfig(*configPath)
		if err == nil {
			raw, err = catalog.Raw(cfg.Storage.CatalogPath)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Items failed: %v\n", err)
		os.Exit(1)
	}
	if err := writeItems(os.Stdout, raw, format); err != nil {
		fmt.Fprintf(os.Stderr, "Items failed: %v\n", err)
		os.Exit(1)
	}
}

// writeItems prints the catalog. JSON output passes the catalog through unchanged.
func writeItems(w io.Writer, raw json.RawMessage, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		_, err := w.Write(append(raw, '\n'))
		return err
	}
	items, err := catalog.Parse(raw)
	if err != nil {
		return err
	}
	return cli.WriteItems(w, items, format)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = inspect local files)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	status := &recommend.Status{}
	if *serverURL != "" {
		raw, err := getRaw(*serverURL + "/status")
		if err == nil {
			err = json.Unmarshal(raw, status)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, closeFn := mustLocalComponents(*configPath, false)
		defer closeFn()
		status, err = components.Service.Status(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// mustLocalComponents loads config and builds the engine for one-shot commands.
func mustLocalComponents(configPath string, debug bool) (*Components, func()) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewCLILogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, func() {
		components.Close()
		_ = logger.Sync()
	}
}

var httpClient = &http.Client{Timeout: 15 * time.Minute}

func postJSON(url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return serverError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func getRaw(url string) (json.RawMessage, error) {
	resp, err := httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serverError(resp)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return bytes.TrimSpace(b), nil
}

func serverError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}

// Components holds initialized services.
type Components struct {
	Provider embedding.Provider
	Embedder embedding.Embedder
	Store    storage.CacheStore
	Service  *recommend.Service
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Provider != nil {
		_ = c.Provider.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, provider, err := embedding.New(cfg.EmbeddingSettings(), embedding.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding backend: %w", err)
	}

	store, err := storage.NewCacheStore(cfg.Storage.CacheBackend, cfg.Storage.CachePath, storage.WithLogger(logger))
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}

	idxOpts := []indexer.Option{
		indexer.WithDimensions(cfg.Embedding.Dimensions),
		indexer.WithPairPhrase(cfg.Precompute.PairPhrase),
	}
	if cfg.Precompute.Delay != nil {
		idxOpts = append(idxOpts, indexer.WithDelay(*cfg.Precompute.Delay))
	}
	svc := recommend.NewService(cfg.Storage.CatalogPath, embedder, store,
		recommend.WithLogger(logger),
		recommend.WithDefaults(cfg.RecommendDefaults()),
		recommend.WithIndexerOptions(idxOpts...),
		recommend.WithEmbeddingInfo(cfg.Embedding.Backend, cfg.Embedding.Model),
	)

	logger.Debug("components initialized",
		zap.String("cache_backend", cfg.Storage.CacheBackend),
		zap.String("embedding_backend", cfg.Embedding.Backend),
		zap.String("model", cfg.Embedding.Model),
	)

	return &Components{
		Provider: provider,
		Embedder: embedder,
		Store:    store,
		Service:  svc,
	}, nil
}

func printUsage() {
	fmt.Println(`osusume - Embedding-based item recommendations

Usage:
  osusume server [flags]              Start the HTTP server
  osusume recommend [flags] [id ...]  Recommend items for a purchase history
  osusume precompute [flags]          Embed the whole catalog and rewrite the cache
  osusume items [flags]               List catalog items
  osusume status [flags]              Show catalog and cache status
  osusume version                     Show version
  osusume help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/osusume/config.yaml)
  --debug            Enable debug logging

Recommend Flags:
  --config string          Config file path
  --server string          Server URL. Empty (default) runs the engine locally.
  --history string         Comma-separated history ids (positional ids are added)
  --top int                Number of results (default from config, 3)
  --no-cache               Recompute every vector and rewrite the cache
  --category-boost float   Multiplier for items sharing a history category (default 1.0)
  --pair-boost float       Bonus for items paired with a history item (default 0.15)
  --output string          Output format: text or json (default: text)
  --explain                Show the score breakdown of each result

Precompute Flags:
  --config string    Config file path
  --server string    Server URL. Empty (default) runs locally.

Items / Status Flags:
  --config string    Config file path
  --server string    Server URL. Empty (default) reads local files.
  --output string    Output format: text or json (default: text)

Environment:
  HF_TOKEN, HF_MODEL, HF_PROVIDER, HF_ENDPOINT, HF_TIMEOUT, EMBED_BACKEND,
  EMBED_RETRIES, EMBED_BACKOFF, PRECOMPUTE_DELAY, OSUSUME_CATALOG, OSUSUME_CACHE
  A .env file in the current directory is loaded first.

Examples:
  osusume server
  osusume precompute
  osusume recommend --history 1,4,8
  osusume recommend --history 1 --top 5 --output json
  osusume recommend --history 2 --explain
  osusume items
  osusume status --output json`)
}
