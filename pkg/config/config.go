package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Solver   SolverConfig
	Dataset  DatasetConfig
	Export   ExportConfig
	Cache    CacheConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SolverConfig tunes the constraint-satisfaction search.
type SolverConfig struct {
	// MaxIterations is the global recursion budget for one solve call.
	MaxIterations int
	// MaxAttempts caps how many times a failed solve is retried with a fresh
	// shuffle before the run is reported as failed.
	MaxAttempts int
	// SolveTimeout is a wall-clock limit checked between solve attempts, not
	// inside the recursion.
	SolveTimeout time.Duration
	// Seed fixes the candidate shuffle; zero keeps runs randomized.
	Seed int64
	// MatchStrategy is one of exact, prefix, substring.
	MatchStrategy string
}

// DatasetConfig locates the tabular source files the ingestion layer reads.
type DatasetConfig struct {
	Directory       string
	TimeSlotsFile   string
	RoomsFile       string
	InstructorsFile string
	CoursesFile     string
	SectionsFile    string
	SessionsFile    string
}

// ExportConfig controls the background export pipeline.
type ExportConfig struct {
	Enabled         bool
	Directory       string
	SignSecret      string
	SignTTL         time.Duration
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	Workers         int
	MaxRetries      int
}

// CacheConfig tunes the Redis summary cache.
type CacheConfig struct {
	Enabled    bool
	SummaryTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Solver = SolverConfig{
		MaxIterations: v.GetInt("SOLVER_MAX_ITERATIONS"),
		MaxAttempts:   v.GetInt("SOLVER_MAX_ATTEMPTS"),
		SolveTimeout:  parseDuration(v.GetString("SOLVER_TIMEOUT"), 5*time.Minute),
		Seed:          v.GetInt64("SOLVER_SEED"),
		MatchStrategy: v.GetString("SOLVER_MATCH_STRATEGY"),
	}

	cfg.Dataset = DatasetConfig{
		Directory:       v.GetString("DATASET_DIR"),
		TimeSlotsFile:   v.GetString("DATASET_TIMESLOTS_FILE"),
		RoomsFile:       v.GetString("DATASET_ROOMS_FILE"),
		InstructorsFile: v.GetString("DATASET_INSTRUCTORS_FILE"),
		CoursesFile:     v.GetString("DATASET_COURSES_FILE"),
		SectionsFile:    v.GetString("DATASET_SECTIONS_FILE"),
		SessionsFile:    v.GetString("DATASET_SESSIONS_FILE"),
	}

	cfg.Export = ExportConfig{
		Enabled:         v.GetBool("ENABLE_EXPORT"),
		Directory:       v.GetString("EXPORT_DIR"),
		SignSecret:      v.GetString("EXPORT_SIGN_SECRET"),
		SignTTL:         parseDuration(v.GetString("EXPORT_SIGN_TTL"), 24*time.Hour),
		ResultTTL:       parseDuration(v.GetString("EXPORT_RESULT_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("EXPORT_CLEANUP_INTERVAL"), time.Hour),
		Workers:         v.GetInt("EXPORT_WORKERS"),
		MaxRetries:      v.GetInt("EXPORT_MAX_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled:    v.GetBool("ENABLE_SUMMARY_CACHE"),
		SummaryTTL: parseDuration(v.GetString("SUMMARY_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "csit_timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SOLVER_MAX_ITERATIONS", 5000)
	v.SetDefault("SOLVER_MAX_ATTEMPTS", 3)
	v.SetDefault("SOLVER_TIMEOUT", "5m")
	v.SetDefault("SOLVER_SEED", 0)
	v.SetDefault("SOLVER_MATCH_STRATEGY", "substring")

	v.SetDefault("DATASET_DIR", "./data")
	v.SetDefault("DATASET_TIMESLOTS_FILE", "Timeslots.csv")
	v.SetDefault("DATASET_ROOMS_FILE", "Rooms.csv")
	v.SetDefault("DATASET_INSTRUCTORS_FILE", "Instructors_data.csv")
	v.SetDefault("DATASET_COURSES_FILE", "Timetable.csv")
	v.SetDefault("DATASET_SECTIONS_FILE", "Groups.csv")
	v.SetDefault("DATASET_SESSIONS_FILE", "Sections.csv")

	v.SetDefault("ENABLE_EXPORT", true)
	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_SIGN_SECRET", "dev_export_secret")
	v.SetDefault("EXPORT_SIGN_TTL", "24h")
	v.SetDefault("EXPORT_RESULT_TTL", "24h")
	v.SetDefault("EXPORT_CLEANUP_INTERVAL", "1h")
	v.SetDefault("EXPORT_WORKERS", 2)
	v.SetDefault("EXPORT_MAX_RETRIES", 3)
	v.SetDefault("ENABLE_SUMMARY_CACHE", false)
	v.SetDefault("SUMMARY_CACHE_TTL", "10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
