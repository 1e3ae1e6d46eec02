package main

import (
	"context"
	"errors"
	"os"

	"github.com/matsen/searchforest/internal/cluster"
	"github.com/matsen/searchforest/internal/config"
	"github.com/matsen/searchforest/internal/corpus"
	"github.com/matsen/searchforest/internal/embedding"
	"github.com/matsen/searchforest/internal/explore"
	"github.com/matsen/searchforest/internal/logger"
	"github.com/matsen/searchforest/internal/selector"
	"github.com/matsen/searchforest/internal/semantic"
	"github.com/matsen/searchforest/internal/storage"
	"github.com/matsen/searchforest/internal/tree"
	"github.com/spf13/cobra"
)

// app holds the collaborators of one command invocation. Everything is
// built at most once and passed down explicitly.
type app struct {
	root string
	cfg  *config.Config
	db   *storage.DB

	provider embedding.Provider
	ollama   *embedding.OllamaProvider
	corpus   *corpus.Corpus
	index    *semantic.Index
	table    *cluster.Table
}

// mustOpenApp finds the repository, loads its config with cmd's flags
// layered on top, and opens the SQLite cache.
func mustOpenApp(cmd *cobra.Command) *app {
	root := mustFindRepository()
	cfg, err := config.Load(root, cmd.Flags())
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return &app{root: root, cfg: cfg, db: db}
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// mustProvider builds the configured embedding provider, memoized through
// an LRU.
func (a *app) mustProvider() embedding.Provider {
	if a.provider != nil {
		return a.provider
	}

	ec := a.cfg.Embedding
	var inner embedding.Provider
	switch ec.Provider {
	case "hash":
		inner = embedding.NewHashProvider(ec.Dimensions)
	default:
		url := ec.URL
		if global := config.GetOllamaURL(); global != "" && url == embedding.DefaultOllamaURL {
			url = global
		}
		a.ollama = embedding.NewOllamaProvider(
			embedding.WithBaseURL(url),
			embedding.WithModel(ec.Model),
			embedding.WithDimensions(ec.Dimensions),
			embedding.WithTimeout(ec.Timeout),
			embedding.WithBatchSize(ec.BatchSize),
			embedding.WithConcurrency(ec.Concurrency),
			embedding.WithRateLimit(ec.RateLimit),
		)
		inner = a.ollama
	}

	cached, err := embedding.NewCachedProvider(inner, ec.CacheSize)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	a.provider = cached
	return a.provider
}

// mustCheckProvider verifies that Ollama is reachable and has the model.
// The hash provider always passes.
func (a *app) mustCheckProvider(ctx context.Context) {
	a.mustProvider()
	if a.ollama == nil {
		return
	}
	if err := a.ollama.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}
	hasModel, err := a.ollama.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitModelNotFound, "embedding model %q not found\n\nRun 'ollama pull %s' to download it.", a.ollama.ModelName(), a.ollama.ModelName())
	}
}

func (a *app) mustCorpus() *corpus.Corpus {
	if a.corpus != nil {
		return a.corpus
	}
	c, err := corpus.FromStore(a.db)
	if err != nil {
		exitWithError(ExitError, "loading corpus: %v", err)
	}
	if c.Len() == 0 {
		logger.Warn("corpus is empty, run 'sf import' or 'sf rebuild'")
	}
	a.corpus = c
	return c
}

func (a *app) mustIndex() *semantic.Index {
	idx, err := a.loadIndex()
	if err != nil {
		if errors.Is(err, semantic.ErrIndexNotFound) {
			exitWithError(ExitConfigError, "Semantic index not found\n\nRun 'sf index build' to create the index.")
		}
		exitWithError(ExitError, "loading index: %v", err)
	}
	return idx
}

func (a *app) loadIndex() (*semantic.Index, error) {
	if a.index != nil {
		return a.index, nil
	}
	idx, err := semantic.Load(a.root)
	if err != nil {
		return nil, err
	}
	a.index = idx
	return idx, nil
}

func (a *app) mustTable() *cluster.Table {
	if a.table != nil {
		return a.table
	}
	t, err := cluster.LoadTable(a.root)
	if err != nil {
		if errors.Is(err, cluster.ErrTableNotFound) {
			exitWithError(ExitConfigError, "Cluster table not found\n\nRun 'sf cluster import' to create it.")
		}
		exitWithError(ExitError, "loading cluster table: %v", err)
	}
	a.table = t
	return t
}

// searcher returns the vector search used for backfill, or nil when
// backfill is disabled or no compatible index exists.
func (a *app) searcher() tree.Searcher {
	if !a.cfg.Tree.Backfill {
		return nil
	}
	idx, err := a.loadIndex()
	if err != nil {
		logger.Warn("vector search backfill disabled", "err", err)
		return nil
	}
	p := a.mustProvider()
	if idx.ModelName != p.ModelName() || idx.Dimensions != p.Dimensions() {
		logger.Warn("vector search backfill disabled, index was built with another model",
			"index_model", idx.ModelName, "provider_model", p.ModelName())
		return nil
	}
	return semantic.NewTextSearcher(idx, p)
}

// builders returns the tree builder and, unless strict, a fallback without
// vector search for when backfill fails.
func (a *app) builders(strict bool) (primary, fallback *tree.Builder) {
	tc := a.cfg.Tree
	sel := selector.New(nil,
		selector.WithLambda(tc.Lambda),
		selector.WithWeights(selector.Weights{
			Query:     tc.Weights.Query,
			Parent:    tc.Weights.Parent,
			Frequency: tc.Weights.Frequency,
		}),
	)
	opts := []tree.Option{
		tree.WithSelector(sel),
		tree.WithSimScale(tc.SimScale),
		tree.WithSemanticFallback(tc.SemanticFallback),
	}

	c := a.mustCorpus()
	p := a.mustProvider()
	if s := a.searcher(); s != nil {
		primary = tree.NewBuilder(c, p, append(opts, tree.WithSearcher(s))...)
		if !strict {
			fallback = tree.NewBuilder(c, p, opts...)
		}
		return primary, fallback
	}
	return tree.NewBuilder(c, p, opts...), nil
}

// explorer wires router, cluster table, builders, and the tree cache.
func (a *app) explorer(strict, useCache bool) *explore.Service {
	table := a.mustTable()
	primary, fallback := a.builders(strict)

	var opts []explore.Option
	if fallback != nil {
		opts = append(opts, explore.WithFallback(fallback))
	}
	if useCache && a.cfg.Cache.Enabled {
		opts = append(opts, explore.WithCache(a.db, a.cfg.Cache.TTL))
	}
	return explore.New(cluster.NewRouter(table, a.mustProvider()), table, primary, opts...)
}

// treeFlags registers the per-request tree parameters bound to config.
func treeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("k1", 0, "Keywords per hop-1 paper and root fan-out (default from config)")
	cmd.Flags().Int("k2", 0, "Keywords per hop-2 paper and per-parent fan-out (default from config)")
	cmd.Flags().Int("pid-limit", 0, "Papers kept per keyword (default from config)")
	cmd.Flags().Float64("lambda", 0, "MMR relevance/diversity trade-off (default from config)")
	cmd.Flags().String("provider", "", "Embedding provider: ollama or hash (default from config)")
	cmd.Flags().Bool("strict", false, "Fail instead of rebuilding without vector search when backfill fails")
}
