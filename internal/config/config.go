package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	DBConnectAttempts     int
	DBConnectRetryMS      int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	StockCacheTTLSeconds  int
	AuthSecret            string
	AccessTokenTTLMinutes int
	UploadDir             string
	SaleTxTimeoutSeconds  int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	stockTTL, err := strconv.Atoi(getEnv("STOCK_CACHE_TTL_SECONDS", "15"))
	if err != nil || stockTTL < 1 {
		stockTTL = 15
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	attempts, err := strconv.Atoi(getEnv("DB_CONNECT_ATTEMPTS", "5"))
	if err != nil || attempts < 1 {
		attempts = 5
	}
	retryMS, err := strconv.Atoi(getEnv("DB_CONNECT_RETRY_MS", "500"))
	if err != nil || retryMS < 1 {
		retryMS = 500
	}
	saleTimeout, err := strconv.Atoi(getEnv("SALE_TX_TIMEOUT_SECONDS", "10"))
	if err != nil || saleTimeout < 1 {
		saleTimeout = 10
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DBConnectAttempts:     attempts,
		DBConnectRetryMS:      retryMS,
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		StockCacheTTLSeconds:  stockTTL,
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: tokenTTL,
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
		SaleTxTimeoutSeconds:  saleTimeout,
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
