package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	LogFormat             string
	LogLevel              string
	AuthSecret            string
	AccessTokenTTLMinutes int
	RunStatusTTLSeconds   int
	MaxBillAmount         float64
	ExactMargin           float64
	AsyncDayThreshold     int
}

func Load() Config {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	statusTTL, err := strconv.Atoi(getEnv("RUN_STATUS_TTL_SECONDS", "600"))
	if err != nil || statusTTL < 1 {
		statusTTL = 600
	}
	maxBill, err := strconv.ParseFloat(getEnv("MAX_BILL_AMOUNT", "4000"), 64)
	if err != nil || maxBill <= 0 {
		maxBill = 4000
	}
	margin, err := strconv.ParseFloat(getEnv("EXACT_MARGIN", "10"), 64)
	if err != nil || margin <= 0 {
		margin = 10
	}
	asyncDays, err := strconv.Atoi(getEnv("ASYNC_DAY_THRESHOLD", "7"))
	if err != nil || asyncDays < 1 {
		asyncDays = 7
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		RunStatusTTLSeconds:   statusTTL,
		MaxBillAmount:         maxBill,
		ExactMargin:           margin,
		AsyncDayThreshold:     asyncDays,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
