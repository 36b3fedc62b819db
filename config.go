// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mcoap is a CoAP (RFC 7252) endpoint server toolkit: a
// zero-copy wire codec (pkg/codec), a request router (pkg/router), and
// a UDP server (pkg/server/udp). The root package holds the shared
// environment configuration.
package mcoap

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment configuration for one server instance.
// Field values are read from prefixed environment variables, e.g.
// MCOAP_ADDRESS with prefix "MCOAP_".
type Config struct {
	Host string `env:"HOST" envDefault:""`
	Port string `env:"PORT" envDefault:""`

	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT"     envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	BufferSize     int `env:"BUFFER_SIZE"      envDefault:"1500"`
	WorkerPoolSize int `env:"WORKER_POOL_SIZE" envDefault:"100"`
	MaxPeers       int `env:"MAX_PEERS"        envDefault:"0"`

	ReadBufferSize  int `env:"READ_BUFFER_SIZE"  envDefault:"0"`
	WriteBufferSize int `env:"WRITE_BUFFER_SIZE" envDefault:"0"`

	GlobalRate  int64 `env:"GLOBAL_RATE"  envDefault:"0"`
	GlobalBurst int64 `env:"GLOBAL_BURST" envDefault:"0"`
	SourceRate  int64 `env:"SOURCE_RATE"  envDefault:"0"`
	SourceBurst int64 `env:"SOURCE_BURST" envDefault:"0"`
}

// Address joins Host and Port into a listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewConfig reads a Config from the environment.
func NewConfig(opts env.Options) (Config, error) {
	c := Config{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, err
	}
	return c, nil
}
