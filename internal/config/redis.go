package config

// Redis holds the session token store, the catalog response cache and the
// rate limit buckets.  When the server cannot be reached at startup the
// gateway keeps running with an in-memory token store and without caching
// or rate limiting.

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_ADDR      host:port (overridden by REDIS_HOST plus REDIS_PORT)
//	REDIS_PASSWORD  optional password
//	REDIS_DB        database number, default 0
//	REDIS_TLS       "true" or "1" to enable TLS
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil {
		dbNum = n
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        dbNum,
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects with RedisOptions and pings the server with a
// short timeout.  On failure the client is closed and the error returned, so
// callers can log it and degrade.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
	opts := RedisOptions()
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", opts.Addr, err)
	}
	return client, nil
}
