package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/durgesh-code/ai-job-agent/internal/aggregate"
	"github.com/durgesh-code/ai-job-agent/internal/config"
	"github.com/durgesh-code/ai-job-agent/internal/crawler"
	"github.com/durgesh-code/ai-job-agent/internal/encode"
	"github.com/durgesh-code/ai-job-agent/internal/match"
	"github.com/durgesh-code/ai-job-agent/internal/refresh"
	"github.com/durgesh-code/ai-job-agent/internal/scaling"
	"github.com/durgesh-code/ai-job-agent/internal/secrets"
	"github.com/durgesh-code/ai-job-agent/internal/store"
	"github.com/durgesh-code/ai-job-agent/internal/vecindex"
)

func main() {
	var (
		dataDirFlag = flag.String("data-dir", "", "data directory (default $JOB_AGENT_DATA_DIR or ./data)")
		once        = flag.Bool("once", false, "run one discovery+aggregation+match cycle and exit")
		matchOnly   = flag.Bool("match", false, "skip refresh, just print matches for the configured profile")
		debug       = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	log := newLogger(*debug)
	defer log.Sync()

	dataDir := *dataDirFlag
	if dataDir == "" {
		dataDir = os.Getenv("JOB_AGENT_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal("data dir", zap.Error(err))
	}

	// one process per data dir; sqlite plus the in-memory index assume it
	lock := flock.New(filepath.Join(dataDir, "agent.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatal("data dir lock", zap.Error(err))
	}
	if !locked {
		log.Fatal("another instance already holds this data dir", zap.String("dir", dataDir))
	}
	defer lock.Unlock()

	cfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatal("config bootstrap", zap.Error(err))
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("config load", zap.String("path", cfgPath), zap.Error(err))
	}
	if err := config.OverlaySeeds(&cfg, filepath.Join(dataDir, "seeds.yml")); err != nil {
		log.Fatal("seeds overlay", zap.Error(err))
	}
	cfg, validation := config.NormalizeAndValidate(cfg)
	for _, w := range validation.Warnings {
		log.Warn("config", zap.String("warning", w))
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			log.Error("config", zap.String("error", e))
		}
		log.Fatal("invalid config", zap.String("path", cfgPath))
	}
	if cfg.App.DataDir != "" {
		dataDir = cfg.App.DataDir
	}

	db, err := store.Open(filepath.Join(dataDir, "agent.db"))
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	enc := encode.New(cfg.Encoder.Dim)
	index := vecindex.New(enc.Dim())
	scaler := scaling.New(cfg.ScalingConfig(), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rebuildIndex(ctx, db, enc, index, log); err != nil {
		log.Fatal("index rebuild", zap.Error(err))
	}

	cr := crawler.New(db, scaler, log)
	agg := aggregate.New(db, enc, index, scaler, aggregate.NewPageScraper(), log)
	if cfg.Thresholds.AbsentRuns > 0 {
		agg.AbsentThreshold = cfg.Thresholds.AbsentRuns
	}
	if cfg.Thresholds.EmptyScrapes > 0 {
		agg.EmptyThreshold = cfg.Thresholds.EmptyScrapes
	}
	runner := refresh.NewRunner(db, cr, agg, cfg.RefreshPolicy(), log)
	engine := match.NewEngine(db, enc, index, scaler, cfg.MatchTunables(), log)

	sources := buildSources(cfg, scaler, log)

	switch {
	case *matchOnly:
		if err := printMatches(ctx, engine, cfg); err != nil {
			log.Fatal("match", zap.Error(err))
		}
	case *once:
		if _, err := runner.RunDiscovery(ctx, sources); err != nil {
			log.Fatal("discovery", zap.Error(err))
		}
		if _, err := runner.RunAggregation(ctx); err != nil {
			log.Fatal("aggregation", zap.Error(err))
		}
		if err := printMatches(ctx, engine, cfg); err != nil {
			log.Fatal("match", zap.Error(err))
		}
	default:
		log.Info("agent started",
			zap.String("data_dir", dataDir),
			zap.Int("index_size", index.Len()))
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			refresh.Every(ctx, runner.Policy().DiscoveryInterval, "discovery", log, func(ctx context.Context) error {
				_, err := runner.RunDiscovery(ctx, sources)
				return err
			})
		}()
		go func() {
			defer wg.Done()
			refresh.Every(ctx, runner.Policy().AggregationInterval, "aggregation", log, func(ctx context.Context) error {
				_, err := runner.RunAggregation(ctx)
				return err
			})
		}()
		<-ctx.Done()
		log.Info("shutting down")
		wg.Wait()
	}
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	log, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	return log
}

func buildSources(cfg config.Config, scaler *scaling.Manager, log *zap.Logger) []crawler.Source {
	var sources []crawler.Source
	if seeds := cfg.SeedCandidates(); len(seeds) > 0 {
		sources = append(sources, crawler.NewSeedSource(seeds))
	}
	if cfg.Discovery.Endpoint != "" {
		key, err := secrets.GetDiscoveryKey(cfg.Discovery.KeyringAccount)
		if err != nil {
			log.Warn("discovery key lookup failed, continuing unauthenticated", zap.Error(err))
		}
		sources = append(sources, crawler.NewDirectorySource(cfg.Discovery.Endpoint, key, scaler))
	}
	return sources
}

// rebuildIndex restores the in-memory index from stored vectors, then
// re-embeds any open posting whose vector is missing or from another model
// version.
func rebuildIndex(ctx context.Context, db *store.DB, enc *encode.Encoder, index *vecindex.Index, log *zap.Logger) error {
	err := index.Rebuild(func(emit func(int64, []float32) error) error {
		return store.WalkEmbeddings(ctx, db.Pool, enc.Version(), emit)
	})
	if err != nil {
		return err
	}

	ids, err := store.OpenJobIDs(ctx, db.Pool)
	if err != nil {
		return err
	}
	rebuilt := 0
	for _, id := range ids {
		if index.Has(id) {
			continue
		}
		job, err := store.GetJob(ctx, db.Pool, id)
		if err != nil {
			return err
		}
		vec := enc.Encode(job.Title + " " + job.CleanDesc)
		if err := store.PutEmbedding(ctx, db.Pool, id, enc.Version(), vec); err != nil {
			return err
		}
		if err := index.Upsert(id, vec); err != nil {
			return err
		}
		rebuilt++
	}
	log.Info("index ready", zap.Int("vectors", index.Len()), zap.Int("re_embedded", rebuilt))
	return nil
}

func printMatches(ctx context.Context, engine *match.Engine, cfg config.Config) error {
	topK := cfg.Matching.TopK
	results, err := engine.Match(ctx, cfg.UserProfile(), topK, cfg.Matching.MinScore, cfg.MatchWeights())
	if err != nil {
		return err
	}
	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	return out.Encode(results)
}
