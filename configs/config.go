package configs

import (
	"fmt"
	"os"
	"time"
)

// Config holds process-wide settings, loaded once at startup and passed
// into the components that need them.
type Config struct {
	AppPort string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3Bucket    string

	KafkaBrokers string
	KafkaTopic   string

	RedisHost string
	RedisPort string

	JWTSecret string

	RateLimit       int64
	RateLimitWindow time.Duration
}

func LoadConfig() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", ":8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBUser: getEnv("DB_USER", "posts"),
		DBPass: getEnv("DB_PASSWORD", "postspass"),
		DBName: getEnv("DB_NAME", "techtonic_plates"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minio"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minio123"),
		S3UseSSL:    getEnv("S3_USE_SSL", "") == "true",
		S3Bucket:    getEnv("S3_BUCKET", "post-files"),

		KafkaBrokers: getEnv("KAFKA_BOOTSTRAP_SERVERS", "kafka:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "posts.changes"),

		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnv("REDIS_PORT", "6379"),

		JWTSecret: getEnv("JWT_SECRET", "replace-this-with-a-strong-secret"),

		RateLimit:       30,
		RateLimitWindow: time.Minute,
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName,
	)
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
