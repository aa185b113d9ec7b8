package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/pflag"

	"listing-resolver/config"
	"listing-resolver/models"
	"listing-resolver/services"
	"listing-resolver/storage"
	"listing-resolver/utils"
)

func main() {
	input := pflag.StringP("input", "i", "", "catalog JSON file (overrides CATALOG_PATH)")
	pipelineFile := pflag.StringP("config", "c", "", "YAML file with pipeline parameters (overrides PIPELINE_CONFIG)")
	seed := pflag.Int64("seed", 0, "seed for the hash coefficients, 0 draws from the clock")
	testFraction := pflag.Float64("test-fraction", -1, "share of models held out for the test batch")
	sweep := pflag.IntSlice("rows", nil, "rows-per-band values to sweep on the final batch")
	classifier := pflag.String("classifier", "logistic", "verification model: logistic or title")
	logLevel := pflag.String("log-level", "", "debug, info, warn or error")
	pflag.Parse()

	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	applyFlags(cfg, *input, *pipelineFile, *seed, *testFraction, *logLevel, logger)

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("Unknown log level %q, keeping info", cfg.LogLevel)
	}
	if err := cfg.Pipeline.Validate(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	p := cfg.Pipeline
	logger.Info("=== Listing Resolver starting ===")
	logger.Info("Config: hashes %d | bands %d x rows %d | ceiling %d | threshold %.2f | concurrency %d",
		p.NumHashFunctions, p.NumBands, p.NumRows, p.TokenPopularityCeiling, p.DecisionThreshold, p.MaxConcurrency)

	raw, err := storage.ReadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("Failed to read catalog: %v", err)
		os.Exit(1)
	}
	if len(raw) == 0 {
		logger.Error("Catalog %s holds no listings. Exiting.", cfg.CatalogPath)
		os.Exit(1)
	}
	logger.Info("Read %d listings from %s", len(raw), cfg.CatalogPath)

	writers, err := openWriters(cfg, logger)
	if err != nil {
		logger.Error("Failed to open result storage: %v", err)
		os.Exit(1)
	}
	defer func() {
		for _, w := range writers {
			_ = w.Close()
		}
	}()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	if p.Seed != 0 {
		rng = rand.New(rand.NewSource(p.Seed))
	}
	resolver, err := services.NewResolver(p, newClassifier(*classifier, p, logger), rng, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	train, test := services.SplitByModel(raw, cfg.TestFraction)
	trainBatch := "all"
	if len(test) > 0 {
		trainBatch = "train"
		logger.Info("Split by model: %d train listings, %d test listings", len(train), len(test))
	}

	reporter := services.NewReportService(logger)
	final, err := resolver.Fit(train, services.SameModel)
	if errors.Is(err, models.ErrDegenerateTrainingSet) {
		logger.Warn("Candidates hold a single class, duplicates are not verified")
	} else if err != nil {
		logger.Error("Fit failed: %v", err)
		os.Exit(1)
	}
	publish(trainBatch, p, final, writers, reporter, logger)

	if len(test) > 0 && final.Verified {
		final, err = resolver.Resolve(test)
		if err != nil {
			logger.Error("Resolve failed: %v", err)
			os.Exit(1)
		}
		publish("test", p, final, writers, reporter, logger)
	}

	if len(*sweep) > 0 {
		rows, err := services.SweepRows(final, p, *sweep)
		if err != nil {
			logger.Error("Sweep failed: %v", err)
		} else {
			reporter.PrintSweep(rows)
		}
	}

	fmt.Printf("  Done. Results stored in: %v\n\n", cfg.StorageBackends)
}

func applyFlags(cfg *config.Config, input, pipelineFile string, seed int64, testFraction float64, logLevel string, logger *utils.Logger) {
	if input != "" {
		cfg.CatalogPath = input
	}
	if pipelineFile != "" {
		if err := cfg.Pipeline.MergeFile(pipelineFile); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
	}
	if seed != 0 {
		cfg.Pipeline.Seed = seed
	}
	if testFraction >= 0 {
		cfg.TestFraction = testFraction
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
}

func newClassifier(name string, p config.Pipeline, logger *utils.Logger) services.Classifier {
	switch name {
	case "title":
		return services.NewTitleSimilarityRule()
	case "logistic":
	default:
		logger.Warn("Unknown classifier %q, using logistic", name)
	}
	return services.NewLogisticRegression(p.ClassifierClassWeight)
}

func openWriters(cfg *config.Config, logger *utils.Logger) ([]storage.ReportWriter, error) {
	var writers []storage.ReportWriter
	for _, backend := range cfg.StorageBackends {
		var (
			w   storage.ReportWriter
			err error
		)
		switch backend {
		case "csv":
			w, err = storage.NewCSVWriter(cfg.CSVOutputPath)
		case "sqlite":
			w, err = storage.NewSQLiteWriter(cfg.SQLitePath)
		case "postgres":
			retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}
			w, err = storage.NewPostgresWriter(cfg.DSN(), retry)
		default:
			err = models.NewConfigError("storage_backends", "unknown backend %q", backend)
		}
		if err != nil {
			for _, open := range writers {
				_ = open.Close()
			}
			return nil, err
		}
		logger.Info("[storage] %s backend ready", backend)
		writers = append(writers, w)
	}
	return writers, nil
}

func publish(batch string, p config.Pipeline, res *services.Result, writers []storage.ReportWriter, reporter *services.ReportService, logger *utils.Logger) {
	report := services.BuildReport(batch, p, res)
	for _, w := range writers {
		if err := w.WriteReport(report); err != nil {
			logger.Error("[storage] Write of %s run failed: %v", batch, err)
		}
	}
	reporter.Print(report)
}
