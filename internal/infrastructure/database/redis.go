package database

import (
	"time"

	"github.com/redis/go-redis/v9"
)

func NewRedis(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DB:          db,
		ClientName:  "journal",
		ReadTimeout: 3 * time.Second,
	})
}
