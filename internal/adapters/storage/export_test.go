package storage

import goredis "github.com/redis/go-redis/v9"

// WrapRedisClient builds a Redis backend without the connect-time ping.
func WrapRedisClient(rdb *goredis.Client) *Redis {
	return &Redis{rdb: rdb}
}
