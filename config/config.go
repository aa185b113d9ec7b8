package config

import (
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"listing-resolver/models"
)

// Pipeline holds the parameters of one resolver run.
type Pipeline struct {
	NumHashFunctions       int       `yaml:"num_hash_functions"`
	NumBands               int       `yaml:"num_bands"`
	NumRows                int       `yaml:"num_rows"`
	TokenPopularityCeiling int       `yaml:"token_popularity_ceiling"`
	QuantileLevels         []float64 `yaml:"quantile_levels"`
	ClassifierClassWeight  float64   `yaml:"classifier_class_weight"`
	DecisionThreshold      float64   `yaml:"decision_threshold"`
	Seed                   int64     `yaml:"seed"`
	MaxConcurrency         int       `yaml:"max_concurrency"`
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Pipeline Pipeline

	CatalogPath  string
	TestFraction float64
	LogLevel     string

	StorageBackends []string
	CSVOutputPath   string
	SQLitePath      string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	MaxRetries       int
}

// DefaultPipeline returns the parameters used when nothing is configured.
func DefaultPipeline() Pipeline {
	return Pipeline{
		NumHashFunctions:       300,
		NumBands:               100,
		NumRows:                3,
		TokenPopularityCeiling: 400,
		QuantileLevels:         []float64{0.1, 0.3, 0.5, 0.7, 0.9},
		ClassifierClassWeight:  1.0,
		DecisionThreshold:      0.1,
		MaxConcurrency:         runtime.GOMAXPROCS(0),
	}
}

// Load reads the .env file and returns a populated Config struct. When
// PIPELINE_CONFIG names a YAML file its values override the pipeline
// parameters.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	def := DefaultPipeline()
	levels, err := parseFloats(getEnv("QUANTILE_LEVELS", ""))
	if err != nil {
		return nil, models.NewConfigError("quantile_levels", "%v", err)
	}
	if len(levels) == 0 {
		levels = def.QuantileLevels
	}

	env := &envParser{}
	cfg := &Config{
		Pipeline: Pipeline{
			NumHashFunctions:       env.intValue("NUM_HASH_FUNCTIONS", "num_hash_functions", def.NumHashFunctions),
			NumBands:               env.intValue("NUM_BANDS", "num_bands", def.NumBands),
			NumRows:                env.intValue("NUM_ROWS", "num_rows", def.NumRows),
			TokenPopularityCeiling: env.intValue("TOKEN_POPULARITY_CEILING", "token_popularity_ceiling", def.TokenPopularityCeiling),
			QuantileLevels:         levels,
			ClassifierClassWeight:  env.floatValue("CLASSIFIER_CLASS_WEIGHT", "classifier_class_weight", def.ClassifierClassWeight),
			DecisionThreshold:      env.floatValue("DECISION_THRESHOLD", "decision_threshold", def.DecisionThreshold),
			Seed:                   int64(env.intValue("SEED", "seed", 0)),
			MaxConcurrency:         env.intValue("MAX_CONCURRENCY", "max_concurrency", def.MaxConcurrency),
		},

		CatalogPath:  getEnv("CATALOG_PATH", "./data/TVs-all-merged.json"),
		TestFraction: env.floatValue("TEST_FRACTION", "test_fraction", 0),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		StorageBackends: splitList(getEnv("STORAGE_BACKENDS", "csv")),
		CSVOutputPath:   getEnv("CSV_OUTPUT_PATH", "./output/duplicates.csv"),
		SQLitePath:      getEnv("SQLITE_PATH", "./output/resolver.sqlite"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "resolver"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "resolver"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		MaxRetries:       env.intValue("MAX_RETRIES", "max_retries", 3),
	}
	if env.err != nil {
		return nil, env.err
	}

	if path := getEnv("PIPELINE_CONFIG", ""); path != "" {
		if err := cfg.Pipeline.MergeFile(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// MergeFile overlays the keys present in a YAML file onto p. Keys absent
// from the file keep their current value; zero values in the file are applied.
func (p *Pipeline) MergeFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read %q", path)
	}
	if err := yaml.Unmarshal(content, p); err != nil {
		return eris.Wrapf(err, "config: parse yaml %q", path)
	}
	return nil
}

// Validate returns a *models.ConfigError naming the first invalid parameter.
func (p Pipeline) Validate() error {
	switch {
	case p.NumHashFunctions <= 0:
		return models.NewConfigError("num_hash_functions", "must be positive, got %d", p.NumHashFunctions)
	case p.NumBands <= 0:
		return models.NewConfigError("num_bands", "must be positive, got %d", p.NumBands)
	case p.NumRows <= 0:
		return models.NewConfigError("num_rows", "must be positive, got %d", p.NumRows)
	case p.NumBands*p.NumRows != p.NumHashFunctions:
		return models.NewConfigError("num_bands", "num_bands*num_rows = %d*%d = %d, want num_hash_functions = %d",
			p.NumBands, p.NumRows, p.NumBands*p.NumRows, p.NumHashFunctions)
	case p.TokenPopularityCeiling <= 0:
		return models.NewConfigError("token_popularity_ceiling", "must be positive, got %d", p.TokenPopularityCeiling)
	case p.ClassifierClassWeight <= 0:
		return models.NewConfigError("classifier_class_weight", "must be positive, got %g", p.ClassifierClassWeight)
	case p.DecisionThreshold < 0 || p.DecisionThreshold > 1:
		return models.NewConfigError("decision_threshold", "must be in [0,1], got %g", p.DecisionThreshold)
	case p.MaxConcurrency <= 0:
		return models.NewConfigError("max_concurrency", "must be positive, got %d", p.MaxConcurrency)
	}
	return ValidateQuantileLevels(p.QuantileLevels)
}

// ValidateQuantileLevels checks that levels are non-empty, strictly
// increasing and inside [0,1).
func ValidateQuantileLevels(levels []float64) error {
	if len(levels) == 0 {
		return models.NewConfigError("quantile_levels", "must not be empty")
	}
	for i, q := range levels {
		if q < 0 || q >= 1 {
			return models.NewConfigError("quantile_levels", "level %g outside [0,1)", q)
		}
		if i > 0 && q <= levels[i-1] {
			return models.NewConfigError("quantile_levels", "levels must be strictly increasing, %g after %g", q, levels[i-1])
		}
	}
	return nil
}

// WithRows returns a copy of p re-factored to numRows rows per band over the
// same number of hash functions.
func (p Pipeline) WithRows(numRows int) Pipeline {
	out := p
	out.NumRows = numRows
	if numRows > 0 {
		out.NumBands = p.NumHashFunctions / numRows
	}
	return out
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// envParser reads numeric environment variables and keeps the first parse
// failure as a ConfigError naming the parameter.
type envParser struct {
	err error
}

func (e *envParser) intValue(key, param string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		e.fail(param, key, val)
		return fallback
	}
	return n
}

func (e *envParser) floatValue(key, param string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		e.fail(param, key, val)
		return fallback
	}
	return f
}

func (e *envParser) fail(param, key, val string) {
	if e.err == nil {
		e.err = models.NewConfigError(param, "%s=%q is not a number", key, val)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, part := range splitList(s) {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %q", part)
		}
		out = append(out, f)
	}
	return out, nil
}
