package cache

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

// InitRedis connects the close-series cache. The cache is an optimization:
// an unreachable redis leaves Client nil and every fetch goes upstream.
func InitRedis(ctx context.Context, addr string) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unreachable at %s, close-series caching disabled: %v", addr, err)
		return
	}
	Client = client
	log.Println("Connected to Redis")
}
