// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/replenish-go/internal/domain"
	"github.com/andresuchdata/replenish-go/internal/engine"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type AppConfig struct {
	DataDir   string
	LogLevel  string
	LogFormat string
}

type CacheConfig struct {
	Enabled        bool
	RedisURL       string
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	PlanTTLSeconds int
}

// StorageConfig points at the S3-compatible bucket holding snapshot exports.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// EngineConfig carries the default policy applied when a request brings none.
type EngineConfig struct {
	TargetCoverageMonths     float64
	NegotiatedCoverageMonths float64
	MOQFallbackUnits         float64
	LeadTimeDays             int
	CriticalLeadTimeDays     int
	RefineLeadTime           bool
	ExtendedCriticalities    []string
	HorizonDays              int
	UrgencyScheme            string
	VolumeWeight             float64
	PriceWeight              float64
	VolumeThreshold          float64
	ImpactThreshold          float64
	VolumeBasis              string
	CriticalShare            float64
	HighShare                float64
	MediumShare              float64
	Workers                  int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Driver:         viper.GetString("DB_DRIVER"),
				Host:           viper.GetString("DB_HOST"),
				Port:           viper.GetString("DB_PORT"),
				User:           viper.GetString("DB_USER"),
				Password:       viper.GetString("DB_PASSWORD"),
				DBName:         viper.GetString("DB_NAME"),
				SSLMode:        viper.GetString("DB_SSLMODE"),
				MaxConcurrency: viper.GetInt64("DB_MAX_CONCURRENCY"),
			},
			App: AppConfig{
				DataDir:   viper.GetString("APP_DATA_DIR"),
				LogLevel:  viper.GetString("LOG_LEVEL"),
				LogFormat: viper.GetString("LOG_FORMAT"),
			},
			Cache: CacheConfig{
				Enabled:        viper.GetBool("CACHE_ENABLED"),
				RedisURL:       viper.GetString("REDIS_URL"),
				RedisHost:      viper.GetString("REDIS_HOST"),
				RedisPort:      viper.GetString("REDIS_PORT"),
				RedisPassword:  viper.GetString("REDIS_PASSWORD"),
				RedisDB:        viper.GetInt("REDIS_DB"),
				PlanTTLSeconds: viper.GetInt("CACHE_PLAN_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("STORAGE_ENDPOINT"),
				AccessKey: viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey: viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:    viper.GetString("STORAGE_BUCKET"),
				UseSSL:    viper.GetBool("STORAGE_USE_SSL"),
			},
			Engine: loadEngine(),
		}
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "replenish")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENCY", 8)
	viper.SetDefault("APP_DATA_DIR", "./data/output")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_PLAN_TTL_SECONDS", 300)
	viper.SetDefault("STORAGE_ENDPOINT", "")
	viper.SetDefault("STORAGE_BUCKET", "snapshots")
	viper.SetDefault("STORAGE_USE_SSL", true)

	// Engine defaults mirror engine.DefaultPolicy
	def := engine.DefaultPolicy()
	viper.SetDefault("ENGINE_TARGET_COVERAGE_MONTHS", def.TargetCoverageMonths)
	viper.SetDefault("ENGINE_NEGOTIATED_COVERAGE_MONTHS", def.NegotiatedCoverageMonths)
	viper.SetDefault("ENGINE_MOQ_FALLBACK_UNITS", def.MOQFallbackUnits)
	viper.SetDefault("ENGINE_LEAD_TIME_DAYS", def.DefaultLeadTimeDays)
	viper.SetDefault("ENGINE_CRITICAL_LEAD_TIME_DAYS", def.CriticalLeadTimeDays)
	viper.SetDefault("ENGINE_REFINE_LEAD_TIME", def.RefineLeadTime)
	viper.SetDefault("ENGINE_EXTENDED_CRITICALITIES", "Critical,High,Medium")
	viper.SetDefault("ENGINE_HORIZON_DAYS", def.HorizonDays)
	viper.SetDefault("ENGINE_URGENCY_SCHEME", string(def.UrgencyScheme))
	viper.SetDefault("ENGINE_VOLUME_WEIGHT", def.VolumeWeight)
	viper.SetDefault("ENGINE_PRICE_WEIGHT", def.PriceWeight)
	viper.SetDefault("ENGINE_VOLUME_THRESHOLD", def.VolumeThreshold)
	viper.SetDefault("ENGINE_IMPACT_THRESHOLD", def.ImpactThreshold)
	viper.SetDefault("ENGINE_VOLUME_BASIS", string(def.VolumeBasis))
	viper.SetDefault("ENGINE_CRITICAL_SHARE", def.CriticalShare)
	viper.SetDefault("ENGINE_HIGH_SHARE", def.HighShare)
	viper.SetDefault("ENGINE_MEDIUM_SHARE", def.MediumShare)
	viper.SetDefault("ENGINE_WORKERS", 0)
}

func loadEngine() EngineConfig {
	return EngineConfig{
		TargetCoverageMonths:     viper.GetFloat64("ENGINE_TARGET_COVERAGE_MONTHS"),
		NegotiatedCoverageMonths: viper.GetFloat64("ENGINE_NEGOTIATED_COVERAGE_MONTHS"),
		MOQFallbackUnits:         viper.GetFloat64("ENGINE_MOQ_FALLBACK_UNITS"),
		LeadTimeDays:             viper.GetInt("ENGINE_LEAD_TIME_DAYS"),
		CriticalLeadTimeDays:     viper.GetInt("ENGINE_CRITICAL_LEAD_TIME_DAYS"),
		RefineLeadTime:           viper.GetBool("ENGINE_REFINE_LEAD_TIME"),
		ExtendedCriticalities:    splitList(viper.GetString("ENGINE_EXTENDED_CRITICALITIES")),
		HorizonDays:              viper.GetInt("ENGINE_HORIZON_DAYS"),
		UrgencyScheme:            viper.GetString("ENGINE_URGENCY_SCHEME"),
		VolumeWeight:             viper.GetFloat64("ENGINE_VOLUME_WEIGHT"),
		PriceWeight:              viper.GetFloat64("ENGINE_PRICE_WEIGHT"),
		VolumeThreshold:          viper.GetFloat64("ENGINE_VOLUME_THRESHOLD"),
		ImpactThreshold:          viper.GetFloat64("ENGINE_IMPACT_THRESHOLD"),
		VolumeBasis:              viper.GetString("ENGINE_VOLUME_BASIS"),
		CriticalShare:            viper.GetFloat64("ENGINE_CRITICAL_SHARE"),
		HighShare:                viper.GetFloat64("ENGINE_HIGH_SHARE"),
		MediumShare:              viper.GetFloat64("ENGINE_MEDIUM_SHARE"),
		Workers:                  viper.GetInt("ENGINE_WORKERS"),
	}
}

// Policy converts the engine section into an engine.Policy. Unknown
// criticality labels are kept verbatim so Validate can report them.
func (c EngineConfig) Policy() engine.Policy {
	ext := make([]domain.Criticality, 0, len(c.ExtendedCriticalities))
	for _, label := range c.ExtendedCriticalities {
		if crit, ok := domain.ParseCriticality(label); ok {
			ext = append(ext, crit)
			continue
		}
		ext = append(ext, domain.Criticality(label))
	}

	return engine.Policy{
		TargetCoverageMonths:          c.TargetCoverageMonths,
		NegotiatedCoverageMonths:      c.NegotiatedCoverageMonths,
		MOQFallbackUnits:              c.MOQFallbackUnits,
		DefaultLeadTimeDays:           c.LeadTimeDays,
		CriticalLeadTimeDays:          c.CriticalLeadTimeDays,
		RefineLeadTime:                c.RefineLeadTime,
		ExtendedLeadTimeCriticalities: ext,
		HorizonDays:                   c.HorizonDays,
		UrgencyScheme:                 engine.UrgencyScheme(strings.ToLower(c.UrgencyScheme)),
		VolumeWeight:                  c.VolumeWeight,
		PriceWeight:                   c.PriceWeight,
		VolumeThreshold:               c.VolumeThreshold,
		ImpactThreshold:               c.ImpactThreshold,
		VolumeBasis:                   engine.VolumeBasis(strings.ToLower(c.VolumeBasis)),
		CriticalShare:                 c.CriticalShare,
		HighShare:                     c.HighShare,
		MediumShare:                   c.MediumShare,
		Workers:                       c.Workers,
	}
}

// PlanTTL is the lifetime of a cached plan.
func (c CacheConfig) PlanTTL() time.Duration {
	return time.Duration(c.PlanTTLSeconds) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
