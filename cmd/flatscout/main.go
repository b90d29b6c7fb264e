// Command flatscout manages a local store of flat-share listings and ranks
// them by travel distance to a destination.
//
// Usage:
//
//	flatscout import -file listings.jsonl
//	flatscout query -filter "rent<500;city=Berlin" -sort rent -limit 20
//	flatscout route -dest "Hauptbahnhof Stuttgart" -mode cycling -limit 30
//	flatscout stats
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/flatscout/flatscout/internal/adapter/http"
	kafkaadapter "github.com/flatscout/flatscout/internal/adapter/kafka"
	"github.com/flatscout/flatscout/internal/adapter/nominatim"
	"github.com/flatscout/flatscout/internal/adapter/osrm"
	"github.com/flatscout/flatscout/internal/adapter/postgres"
	"github.com/flatscout/flatscout/internal/config"
	"github.com/flatscout/flatscout/internal/domain"
	"github.com/flatscout/flatscout/internal/filter"
	"github.com/flatscout/flatscout/internal/ingest"
	"github.com/flatscout/flatscout/internal/observability"
	"github.com/flatscout/flatscout/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "import":
		err = runImport(ctx, cfg, logger, metrics, os.Args[2:])
	case "query":
		err = runQuery(ctx, cfg, logger, metrics, os.Args[2:])
	case "route":
		err = runRoute(ctx, cfg, logger, metrics, os.Args[2:])
	case "stats":
		err = runStats(ctx, cfg, logger, metrics, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: flatscout <import|query|route|stats> [flags]")
}

func runImport(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "JSONL listings file (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errors.New("missing required flag: -file")
	}

	listings, err := ingest.ReadFile(*file)
	if err != nil {
		return err
	}
	logger.Info("listings parsed", "file", *file, "count", len(listings))

	store, err := postgres.Open(cfg.DatabaseURL, logger, metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	inserted, err := store.UpsertListings(ctx, listings)
	if err != nil {
		return err
	}
	logger.Info("listings imported", "inserted", inserted, "skipped", len(listings)-inserted)

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaExportTopic, logger, metrics)
		defer writer.Close()
		if err := writer.ExportBatch(ctx, listings); err != nil {
			return fmt.Errorf("export listings: %w", err)
		}
		logger.Info("listings exported", "topic", cfg.KafkaExportTopic, "count", len(listings))
	}

	fmt.Printf("imported %d listings (%d new)\n", len(listings), inserted)
	return nil
}

func runQuery(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	filterExpr := fs.String("filter", "", `filter expression, e.g. "rent<500;city=Berlin"`)
	sortExpr := fs.String("sort", "", `sort field with optional direction, e.g. "rent" or "size:desc"`)
	limit := fs.Int("limit", 0, "maximum number of results (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pred, sortSpec, err := compileQuery(*filterExpr, *sortExpr)
	if err != nil {
		return err
	}

	store, err := postgres.Open(cfg.DatabaseURL, logger, metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	listings, err := store.Query(ctx, pred, sortSpec, *limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, l := range listings {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	logger.Info("query finished", "matched", len(listings))
	return nil
}

func runRoute(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	dest := fs.String("dest", "", "destination location query (required)")
	modeStr := fs.String("mode", "driving", "transport mode: driving, cycling, or walking")
	filterExpr := fs.String("filter", "", "filter expression applied before routing")
	limit := fs.Int("limit", 0, "route at most this many listings (0 = all)")
	sortByDistance := fs.Bool("sort-by-distance", true, "order results by straight-line distance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dest == "" {
		fs.Usage()
		return errors.New("missing required flag: -dest")
	}

	mode, err := domain.ParseTransportMode(*modeStr)
	if err != nil {
		return err
	}
	pred, _, err := compileQuery(*filterExpr, "")
	if err != nil {
		return err
	}

	store, err := postgres.Open(cfg.DatabaseURL, logger, metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	listings, err := store.Query(ctx, pred, nil, 0)
	if err != nil {
		return err
	}

	// Serve /metrics and /readyz for the duration of the run; routing a
	// large result set can take minutes at public API rate limits.
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown error", "error", err)
		}
	}()

	client := nominatim.NewClient(cfg.NominatimBaseURL, cfg.NominatimUserAgent,
		cfg.GeocodeTimeout, cfg.GeocodeMinInterval, logger, metrics)
	resolver := nominatim.NewCachedResolver(client, clockwork.NewRealClock(), logger, metrics)
	if err := resolver.LoadFile(cfg.GeocodeCachePath); err != nil {
		logger.Warn("geocode cache load failed", "path", cfg.GeocodeCachePath, "error", err)
	}
	defer func() {
		if err := resolver.SaveFile(cfg.GeocodeCachePath); err != nil {
			logger.Warn("geocode cache save failed", "path", cfg.GeocodeCachePath, "error", err)
		}
	}()

	router := osrm.NewClient(cfg.OSRMBaseURL, cfg.RouteTimeout, cfg.RouteMinInterval, logger, metrics)
	ranker := pipeline.NewRanker(resolver, router, cfg.RouteWorkers, logger, metrics)

	result, err := ranker.Run(ctx, listings, pipeline.Request{
		Destination:    *dest,
		Mode:           mode,
		Limit:          *limit,
		SortByDistance: *sortByDistance,
		Progress: func(done, total int) {
			logger.Info("routing progress", "done", done, "total", total)
		},
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runStats(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := postgres.Open(cfg.DatabaseURL, logger, metrics)
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// compileQuery parses and compiles the filter and sort expressions against
// the listing schema.
func compileQuery(filterExpr, sortExpr string) (*filter.CompiledPredicate, *domain.SortSpec, error) {
	schema := domain.ListingSchema()

	clauses, err := filter.Parse(filterExpr)
	if err != nil {
		return nil, nil, err
	}
	pred, err := filter.Compile(clauses, schema)
	if err != nil {
		return nil, nil, err
	}

	var sortSpec *domain.SortSpec
	if sortExpr != "" {
		spec, err := domain.ParseSortSpec(sortExpr, schema)
		if err != nil {
			return nil, nil, err
		}
		sortSpec = &spec
	}
	return pred, sortSpec, nil
}
