// Package gateway provides the public API for embedding the gateway.
// This is the stable API for external consumers.
package gateway

import (
	"github.com/tjfontaine/bare-gateway/internal/registration"
	"github.com/tjfontaine/bare-gateway/internal/runtime"
)

// Gateway is the main entry point for running the gateway.
// See internal/runtime.Gateway for full documentation.
type Gateway = runtime.Gateway

// Option is a functional option for configuring a Gateway.
type Option = runtime.Option

// New creates a new Gateway with the given options.
// Example:
//
//	gw, err := gateway.New(
//	    gateway.WithFileConfig("config.yaml"),
//	    gateway.WithSQLite("./data/events.db"),
//	)
var New = runtime.New

// RegisterBuiltins makes the echo and http-proxy backend types available to
// configuration. Call it once before New.
var RegisterBuiltins = registration.RegisterBuiltins

// Configuration options
var (
	// Config sources
	WithFileConfig     = runtime.WithFileConfig
	WithConfig         = runtime.WithConfig
	WithConfigProvider = runtime.WithConfigProvider

	// Storage
	WithSQLite        = runtime.WithSQLite
	WithMemoryStorage = runtime.WithMemoryStorage
	WithEventStore    = runtime.WithEventStore

	// Events
	WithEventPublisher = runtime.WithEventPublisher
	WithMetrics        = runtime.WithMetrics

	// Embedding
	WithBackend  = runtime.WithBackend
	WithListener = runtime.WithListener
	WithLogger   = runtime.WithLogger
)
