package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	Port   string
	DBName string

	MongoClient *mongo.Client
	RedisClient *redis.Client // nil when REDIS_ADDR is not set

	JWTSecret string

	// Payment gateway credentials. Validated at first use so a missing key
	// surfaces as a configuration error, not a generic gateway failure.
	GatewayKeyID     string
	GatewayKeySecret string
	GatewayBaseURL   string
	DefaultCurrency  string

	// Profitability ranking model API (optional).
	RankerAPIURL string
	RankerAPIKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBName:           getEnv("DB_NAME", "marketplace"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GatewayKeyID:     os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret: os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.paygate.example.com/v1"),
		DefaultCurrency:  getEnv("DEFAULT_CURRENCY", "USD"),
		RankerAPIURL:     os.Getenv("RANKER_API_URL"),
		RankerAPIKey:     os.Getenv("RANKER_API_KEY"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	cfg.MongoClient = client

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
	} else {
		log.Println("REDIS_ADDR not set, view revalidation disabled")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
