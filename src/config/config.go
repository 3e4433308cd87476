package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// devJWTSecret ใช้ได้เฉพาะ DB_DRIVER=memory
const devJWTSecret = "your_secret_key"

var ErrJWTSecretUnset = errors.New("JWT_SECRET must be set when DB_DRIVER=mongo")

// Config ค่าตั้งค่าทั้งหมดของแอป อ่านจาก .env และ environment
type Config struct {
	AppPort           string
	DBDriver          string
	MongoURI          string
	MongoDB           string
	MongoTransactions bool
	RedisURI          string
	JWTSecret         string
	JWTTTL            time.Duration
	AllowedOrigins    string
	DBTimeout         time.Duration
	VoteRatePerMin    int
	VoteRateBurst     int
	LogLevel          string
}

var (
	once sync.Once
	cfg  *Config
)

// Load อ่านค่าแค่ครั้งเดียว
func Load() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Warning: No .env file found")
		}
		cfg = FromEnv()
	})
	return cfg
}

// FromEnv builds a Config from the current environment without touching .env files.
func FromEnv() *Config {
	return &Config{
		AppPort:           getEnv("APP_PORT", "8888"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", DriverMongo)),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "PollSurveyDB"),
		MongoTransactions: getBool("MONGO_TRANSACTIONS", false),
		RedisURI:          os.Getenv("REDIS_URI"),
		JWTSecret:         getEnv("JWT_SECRET", devJWTSecret),
		JWTTTL:            getDuration("JWT_TTL", 24*time.Hour),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
		DBTimeout:         getDuration("DB_TIMEOUT", 5*time.Second),
		VoteRatePerMin:    getInt("VOTE_RATE_PER_MIN", 30),
		VoteRateBurst:     getInt("VOTE_RATE_BURST", 10),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// Validate rejects settings that are only safe for local runs.
func (c *Config) Validate() error {
	if c.DBDriver != DriverMemory && c.JWTSecret == devJWTSecret {
		return ErrJWTSecretUnset
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
