package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Store  StoreConfig
	Upload UploadConfig
	Chat   ChatConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	// PostgresURL selects the postgres gateway when set; otherwise the
	// sqlite gateway at SQLitePath is used.
	PostgresURL string
	SQLitePath  string
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

type ChatConfig struct {
	HistoryLimit int
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("PORT", ":3000"),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "15s"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "15s"),
		},
		Store: StoreConfig{
			PostgresURL: getEnvOrDefault("DATABASE_URL", ""),
			SQLitePath:  getEnvOrDefault("SQLITE_PATH", "chat.db"),
		},
		Upload: UploadConfig{
			Dir:      getEnvOrDefault("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getIntOrDefault("MAX_UPLOAD_MB", 50)) << 20,
		},
		Chat: ChatConfig{
			HistoryLimit: getIntOrDefault("HISTORY_LIMIT", 50),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid integer for %s: %v", key, err)
	}
	return intValue
}
