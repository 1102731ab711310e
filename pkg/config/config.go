package config

import (
	"errors"
	"strconv"
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

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Engine       EngineConfig
	Substitution SubstitutionConfig
	Timetable    TimetableConfig
	Export       ExportConfig
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

// EngineConfig shapes the weekly grid and the generator's search.
type EngineConfig struct {
	Days          int
	PeriodsPerDay int
	// LabBlocks holds the valid post-lunch lab block positions as
	// "start-end" pairs, e.g. "3-4,5-6".
	LabBlocks     [][2]int
	OverflowRatio float64
	Seed          int64
}

// SubstitutionConfig carries the matcher's scoring weights.
type SubstitutionConfig struct {
	SubjectMatchWeight  float64
	LoadBalanceWeight   float64
	EffectivenessWeight float64
	ExperienceWeight    float64
}

// TimetableConfig governs the cached read views.
type TimetableConfig struct {
	CacheTTL time.Duration
}

// ExportConfig governs generated CSV/PDF artifacts.
type ExportConfig struct {
	StorageDir string
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

	cfg.Engine = EngineConfig{
		Days:          v.GetInt("ENGINE_DAYS"),
		PeriodsPerDay: v.GetInt("ENGINE_PERIODS_PER_DAY"),
		LabBlocks:     parseLabBlocks(v.GetString("ENGINE_LAB_BLOCKS"), [][2]int{{3, 4}, {5, 6}}),
		OverflowRatio: v.GetFloat64("ENGINE_OVERFLOW_RATIO"),
		Seed:          v.GetInt64("ENGINE_SEED"),
	}

	cfg.Substitution = SubstitutionConfig{
		SubjectMatchWeight:  v.GetFloat64("SUB_WEIGHT_SUBJECT_MATCH"),
		LoadBalanceWeight:   v.GetFloat64("SUB_WEIGHT_LOAD_BALANCE"),
		EffectivenessWeight: v.GetFloat64("SUB_WEIGHT_EFFECTIVENESS"),
		ExperienceWeight:    v.GetFloat64("SUB_WEIGHT_EXPERIENCE"),
	}

	cfg.Timetable = TimetableConfig{
		CacheTTL: parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Export = ExportConfig{
		StorageDir: v.GetString("EXPORT_STORAGE_DIR"),
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
	v.SetDefault("DB_NAME", "timetable")
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

	v.SetDefault("ENGINE_DAYS", 5)
	v.SetDefault("ENGINE_PERIODS_PER_DAY", 7)
	v.SetDefault("ENGINE_LAB_BLOCKS", "3-4,5-6")
	v.SetDefault("ENGINE_OVERFLOW_RATIO", 0.2)
	v.SetDefault("ENGINE_SEED", 42)

	v.SetDefault("SUB_WEIGHT_SUBJECT_MATCH", 0.4)
	v.SetDefault("SUB_WEIGHT_LOAD_BALANCE", 0.3)
	v.SetDefault("SUB_WEIGHT_EFFECTIVENESS", 0.2)
	v.SetDefault("SUB_WEIGHT_EXPERIENCE", 0.1)

	v.SetDefault("TIMETABLE_CACHE_TTL", "10m")
	v.SetDefault("EXPORT_STORAGE_DIR", "./exports")
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

// parseLabBlocks reads "start-end" pairs; malformed input falls back to
// the standard post-lunch blocks.
func parseLabBlocks(raw string, fallback [][2]int) [][2]int {
	if raw == "" {
		return fallback
	}

	var blocks [][2]int
	for _, part := range splitAndTrim(raw) {
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return fallback
		}
		start, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
		end, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err1 != nil || err2 != nil || end != start+1 {
			return fallback
		}
		blocks = append(blocks, [2]int{start, end})
	}
	if len(blocks) == 0 {
		return fallback
	}

	return blocks
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
