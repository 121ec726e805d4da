package platform

import (
	"log"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/krishnaadithya/movie-gen/config"
	"github.com/krishnaadithya/movie-gen/store"
)

// LoadEnv loads .env for local development; deployments set real env vars.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
}

// NewRedisClient initializes and returns a Redis client.
func NewRedisClient(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	log.Println("Redis client initialized")
	return rdb
}

// NewStores picks the session/status backends: Redis when configured,
// otherwise process memory.
func NewStores(cfg *config.Config) (store.Sessions, store.Statuses) {
	if cfg.Redis.Addr != "" {
		rdb := NewRedisClient(cfg.Redis.Addr)
		ttl := cfg.SessionTTL()
		return store.NewRedisSessions(rdb, ttl), store.NewRedisStatuses(rdb, ttl)
	}
	log.Println("Using in-memory session store")
	return store.NewMemorySessions(), store.NewMemoryStatuses()
}
