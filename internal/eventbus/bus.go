/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"fmt"

	"github.com/friendsincode/timegate/internal/config"
	"github.com/friendsincode/timegate/internal/events"
	"github.com/rs/zerolog"
)

// Bus is the event bus the service publishes to. Every implementation
// delivers to local subscribers synchronously and never blocks the caller.
type Bus interface {
	events.Publisher
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
	Close() error
}

// New builds the bus selected in cfg. Remote backends that cannot be reached
// at startup degrade to local-only delivery instead of failing.
func New(cfg *config.Config, logger zerolog.Logger) (Bus, error) {
	nodeID := NodeID(cfg.InstanceID)
	logger = logger.With().Str("component", "eventbus").Str("backend", string(cfg.EventBus)).Logger()

	switch cfg.EventBus {
	case config.EventBusMemory, "":
		return NewMemoryBus(), nil
	case config.EventBusRedis:
		rc := DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Password = cfg.RedisPassword
		rc.DB = cfg.RedisDB
		return NewRedisBus(rc, nodeID, logger)
	case config.EventBusNATS:
		nc := DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		return NewNATSBus(nc, nodeID, logger)
	case config.EventBusMQTT:
		mc := DefaultMQTTConfig()
		mc.Broker = cfg.MQTTBroker
		mc.Topic = cfg.MQTTTopic
		return NewMQTTBus(mc, nodeID, logger)
	default:
		return nil, fmt.Errorf("unknown event bus %q", cfg.EventBus)
	}
}

// MemoryBus is the in-process bus.
type MemoryBus struct {
	*events.Bus
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{Bus: events.NewBus()}
}

func (*MemoryBus) Close() error { return nil }
