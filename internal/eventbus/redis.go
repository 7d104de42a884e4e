/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "timegate.events."

// RedisBus mirrors events over Redis pub/sub so several instances and
// dashboards share one stream.
type RedisBus struct {
	*relay
	client *redis.Client
	pubsub *redis.PubSub

	// Circuit breaker state
	mu            sync.Mutex
	useFallback   bool
	failCount     int
	maxFails      int
	lastCheck     time.Time
	checkInterval time.Duration
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Circuit breaker
	MaxFailures   int
	CheckInterval time.Duration
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:          "localhost:6379",
		DialTimeout:   5 * time.Second,
		ReadTimeout:   3 * time.Second,
		WriteTimeout:  3 * time.Second,
		MaxFailures:   5,
		CheckInterval: 30 * time.Second,
	}
}

// NewRedisBus connects to Redis. When Redis is unreachable the bus starts in
// fallback mode and keeps retrying on later publishes.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	rb := &RedisBus{
		relay:         newRelay("redis", nodeID, logger),
		client:        client,
		maxFails:      cfg.MaxFailures,
		checkInterval: cfg.CheckInterval,
	}
	if rb.maxFails <= 0 {
		rb.maxFails = 5
	}
	if rb.checkInterval <= 0 {
		rb.checkInterval = 30 * time.Second
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout+time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unreachable, events stay local until it returns")
		rb.useFallback = true
		rb.lastCheck = time.Now()
	}

	// go-redis resubscribes on reconnect, so one pattern subscription covers
	// the lifetime of the bus.
	rb.pubsub = client.PSubscribe(rb.ctx, redisChannelPrefix+"*")
	rb.wg.Add(1)
	go rb.receive()

	rb.start(rb.send)
	logger.Info().Str("addr", cfg.Addr).Str("node_id", nodeID).Msg("Redis event bus initialized")
	return rb, nil
}

func (rb *RedisBus) receive() {
	defer rb.wg.Done()
	ch := rb.pubsub.Channel()
	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			rb.deliver([]byte(msg.Payload))
		}
	}
}

func (rb *RedisBus) send(ctx context.Context, msg *message, data []byte) error {
	if !rb.available(ctx) {
		return errors.New("redis circuit open")
	}

	if err := rb.client.Publish(ctx, redisChannelPrefix+string(msg.EventType), data).Err(); err != nil {
		rb.handleFailure()
		return err
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
	return nil
}

// available reports whether publishing should be attempted, probing Redis
// again once the check interval has passed.
func (rb *RedisBus) available(ctx context.Context) bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if !rb.useFallback {
		return true
	}
	if time.Since(rb.lastCheck) < rb.checkInterval {
		return false
	}
	rb.lastCheck = time.Now()

	if err := rb.client.Ping(ctx).Err(); err != nil {
		rb.logger.Debug().Err(err).Msg("Redis still unavailable")
		return false
	}

	rb.useFallback = false
	rb.failCount = 0
	rb.logger.Info().Msg("reconnected to Redis")
	return true
}

// handleFailure opens the circuit after maxFails consecutive errors.
func (rb *RedisBus) handleFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++
	if rb.failCount >= rb.maxFails && !rb.useFallback {
		rb.logger.Warn().Int("fail_count", rb.failCount).Msg("Redis failure threshold reached, keeping events local")
		rb.useFallback = true
		rb.lastCheck = time.Now()
	}
}

// Close stops forwarding and closes the Redis client.
func (rb *RedisBus) Close() error {
	rb.stop()
	if rb.pubsub != nil {
		_ = rb.pubsub.Close()
	}
	if err := rb.client.Close(); err != nil {
		return err
	}
	rb.logger.Info().Msg("Redis event bus closed")
	return nil
}
