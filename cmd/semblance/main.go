// Package main is the Semblance CLI entry point.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/semblance/internal/cache"
	"github.com/hyperjump/semblance/internal/config"
	"github.com/hyperjump/semblance/internal/encoder"
	"github.com/hyperjump/semblance/internal/hub"
	"github.com/hyperjump/semblance/internal/registry"
	"github.com/hyperjump/semblance/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/semblance/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if neither
// exists, built-in defaults are used so the CLI works without a config file.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, nil
		}
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "embed":
		runEmbed()
	case "similarity":
		runSimilarity()
	case "rank":
		runRank()
	case "tokenize":
		runTokenize()
	case "version", "--version", "-v":
		fmt.Printf("semblance version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are shared by every embedding command.
type commonFlags struct {
	configPath *string
	model      *string
	cpu        *bool
	maxLength  *int
	debug      *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		model:      fs.String("model", "", "model id (overrides config; empty uses config or the built-in default)"),
		cpu:        fs.Bool("cpu", true, "force CPU inference"),
		maxLength:  fs.Int("max-length", 0, "max token length (0 uses the configured default)"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
	}
}

// setup builds a registry from config and flags and initializes the model.
// Returns the registry, the effective max length, and a cleanup function.
func setup(fs *flag.FlagSet, cf *commonFlags) (*registry.Registry, int, func()) {
	cfg, err := loadConfig(*cf.configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	debugMode := cfg.Debug || *cf.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	modelID := cfg.Model.ID
	if *cf.model != "" {
		modelID = *cf.model
	}
	useCPU := cfg.Model.UseCPUOrDefault()
	if visited(fs, "cpu") {
		useCPU = *cf.cpu
	}
	maxLength := cfg.Model.MaxLength
	if *cf.maxLength > 0 {
		maxLength = *cf.maxLength
	}

	var embCache *cache.Tiered
	if cfg.Cache.EnabledOrDefault() {
		var store *cache.Store
		if cfg.Cache.DatabasePath != "" {
			store, err = cache.NewStore(cfg.Cache.DatabasePath)
			if err != nil {
				logger.Warn("embedding cache database unavailable", zap.Error(err))
			}
		}
		embCache = cache.NewTiered(cache.NewLRU(cfg.Cache.MemorySize), store)
	}

	resolver := hub.NewResolver(cfg.Model.Endpoint, cfg.Model.CacheDir, logger)
	loader := registry.NewLoader(resolver, encoder.Options{
		LibraryPath: cfg.Runtime.LibraryPath,
	}, logger)
	reg := registry.New(loader, embCache, logger)

	if err := reg.Initialize(modelID, useCPU); err != nil {
		fmt.Printf("Failed to initialize model: %v\n", err)
		os.Exit(1)
	}

	cleanup := func() {
		_ = embCache.Close()
		_ = logger.Sync()
	}
	return reg, maxLength, cleanup
}

func visited(fs *flag.FlagSet, name string) bool {
	seen := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			seen = true
		}
	})
	return seen
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	cf := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Println("Usage: semblance embed [flags] <text>")
		os.Exit(1)
	}

	reg, maxLength, cleanup := setup(fs, cf)
	defer cleanup()

	emb, err := reg.Embed(fs.Arg(0), maxLength)
	if err != nil {
		fmt.Printf("Embedding failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(struct {
		Dimensions int       `json:"dimensions"`
		Embedding  []float32 `json:"embedding"`
	}{len(emb), emb})
}

func runSimilarity() {
	fs := flag.NewFlagSet("similarity", flag.ExitOnError)
	cf := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 2 {
		fmt.Println("Usage: semblance similarity [flags] <text1> <text2>")
		os.Exit(1)
	}

	reg, maxLength, cleanup := setup(fs, cf)
	defer cleanup()

	score, err := reg.Similarity(fs.Arg(0), fs.Arg(1), maxLength)
	if err != nil {
		fmt.Printf("Similarity failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(struct {
		Score float32 `json:"score"`
	}{score})
}

func runRank() {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	cf := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() < 2 {
		fmt.Println("Usage: semblance rank [flags] <query> <candidate>...")
		os.Exit(1)
	}

	reg, maxLength, cleanup := setup(fs, cf)
	defer cleanup()

	candidates := fs.Args()[1:]
	m, err := reg.Rank(fs.Arg(0), candidates, maxLength)
	if err != nil {
		fmt.Printf("Ranking failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(struct {
		Index int     `json:"index"`
		Text  string  `json:"text"`
		Score float32 `json:"score"`
	}{m.Index, candidates[m.Index], m.Score})
}

func runTokenize() {
	fs := flag.NewFlagSet("tokenize", flag.ExitOnError)
	cf := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])
	if fs.NArg() != 1 {
		fmt.Println("Usage: semblance tokenize [flags] <text>")
		os.Exit(1)
	}

	reg, maxLength, cleanup := setup(fs, cf)
	defer cleanup()

	res, err := reg.Tokenize(fs.Arg(0), maxLength)
	if err != nil {
		fmt.Printf("Tokenization failed: %v\n", err)
		os.Exit(1)
	}
	printJSON(struct {
		IDs    []int32  `json:"token_ids"`
		Tokens []string `json:"tokens"`
	}{res.IDs, res.Tokens})
}

func printUsage() {
	fmt.Println(`Semblance - text embedding and semantic similarity engine

Usage:
  semblance <command> [flags] [args]

Commands:
  embed <text>                    Print the embedding vector for a text
  similarity <text1> <text2>      Print the cosine similarity of two texts
  rank <query> <candidate>...     Print the candidate most similar to the query
  tokenize <text>                 Print token ids and tokens for a text
  version                         Print version
  help                            Show this help

Common flags:
  -config <path>    Config file path (default ` + defaultConfigPath + `)
  -model <id>       Model id (empty uses config or the built-in default)
  -cpu              Force CPU inference (default true)
  -max-length <n>   Max token length (0 uses the configured default)
  -debug            Enable debug logging`)
}
