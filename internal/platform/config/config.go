package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"

	CatalogSourceSQL  = "sql"
	CatalogSourceTOML = "toml"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string
	SQLitePath string

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTimeout  time.Duration

	SubmissionEventQueue string
	TopicLockPrefix      string
	TopicLockTTLSeconds  int
	ConsoleLogKey        string
	DuelLeaderboardKey   string

	EvaluatorURL     string
	EvaluatorAPIKey  string
	EvaluatorTimeout time.Duration

	CatalogSource string
	CatalogFile   string

	DuelTick      time.Duration
	WorkerEnabled bool

	LogLevel  string
	LogFormat string
}

var AppConfig *Config

// Load reads envFile (or .env when empty) and the process environment into AppConfig.
func Load(envFile string) {
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:              getEnv("API_PORT", "8080"),
		JWTKey:               []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:               time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBDriver:             getEnv("DB_DRIVER", DriverPostgres),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		DBUser:               getEnv("DB_USER", "user"),
		DBPassword:           getEnv("DB_PASSWORD", "password"),
		DBName:               getEnv("DB_NAME", "codeforge_arena_db"),
		DBSslMode:            getEnv("DB_SSLMODE", "disable"),
		SQLitePath:           getEnv("SQLITE_PATH", "codeforge_arena.sqlite"),
		RedisEnabled:         getEnvAsBool("REDIS_ENABLED", true),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		RedisTimeout:         time.Duration(getEnvAsInt("REDIS_TIMEOUT_SECONDS", 5)) * time.Second,
		SubmissionEventQueue: getEnv("SUBMISSION_EVENT_QUEUE", "submission_events_queue"),
		TopicLockPrefix:      getEnv("TOPIC_LOCK_PREFIX", "topic_stat_lock"),
		TopicLockTTLSeconds:  getEnvAsInt("TOPIC_LOCK_TTL_SECONDS", 30),
		ConsoleLogKey:        getEnv("CONSOLE_LOG_KEY", "console_log"),
		DuelLeaderboardKey:   getEnv("DUEL_LEADERBOARD_KEY", "duel_leaderboard"),
		EvaluatorURL:         getEnv("EVALUATOR_URL", ""),
		EvaluatorAPIKey:      getEnv("EVALUATOR_API_KEY", ""),
		EvaluatorTimeout:     time.Duration(getEnvAsInt("EVALUATOR_TIMEOUT_SECONDS", 60)) * time.Second,
		CatalogSource:        getEnv("CATALOG_SOURCE", CatalogSourceTOML),
		CatalogFile:          getEnv("CATALOG_FILE", ""),
		DuelTick:             time.Duration(getEnvAsInt("DUEL_TICK_MS", 1000)) * time.Millisecond,
		WorkerEnabled:        getEnvAsBool("WORKER_ENABLED", true),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode

	ConfigureLogging(AppConfig)
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func ConfigureLogging(cfg *Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("WARN: unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
