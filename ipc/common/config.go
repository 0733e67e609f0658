package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Transport configuration struct
// --------------------------------------------------------------------------

const (
	// DefaultBufferSize is the size of each pool buffer in bytes. Messages
	// up to this size are received through the buffer pool; larger messages
	// take the direct allocation path.
	DefaultBufferSize = 8192

	// DefaultPoolSize is the number of buffers pre-allocated by the pool.
	// The pool may grow past this target under load (see pipe.BufferPool).
	DefaultPoolSize = 10
)

// TransportConfig holds the configuration for a framed transport.
type TransportConfig struct {
	// BufferSize is the fixed length of every pool buffer
	BufferSize int

	// PoolSize is the number of buffers pre-allocated at construction
	PoolSize int
}

// DefaultTransportConfig returns the default transport configuration.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		BufferSize: DefaultBufferSize,
		PoolSize:   DefaultPoolSize,
	}
}

// Normalized returns a copy of the config with zero values replaced by
// the defaults.
func (c TransportConfig) Normalized() TransportConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	return c
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a dispatch server.
type ServerConfig struct {
	// Transport is the configuration of the underlying framed transport
	Transport TransportConfig

	// RequestIDPrefix distinguishes this process's outbound request ids
	// from the peer's. Both sides of a connection must use different
	// prefixes, otherwise responses cannot be told apart from commands.
	RequestIDPrefix string

	// MaxWorkers limits the number of concurrently dispatched command
	// handlers. Zero or negative means the default is used.
	MaxWorkers int

	// Logging configuration
	LogLevel string
}

// DefaultRequestIDPrefix is used when ServerConfig.RequestIDPrefix is empty.
const DefaultRequestIDPrefix = "go-"

// DefaultMaxWorkers is used when ServerConfig.MaxWorkers is not positive.
const DefaultMaxWorkers = 64

// Normalized returns a copy of the config with zero values replaced by
// the defaults.
func (c ServerConfig) Normalized() ServerConfig {
	c.Transport = c.Transport.Normalized()
	if c.RequestIDPrefix == "" {
		c.RequestIDPrefix = DefaultRequestIDPrefix
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// String returns a formatted string representation of the configuration
func (c ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	n := c.Normalized()

	addSection("Dispatch Server")
	addField("Request ID Prefix", n.RequestIDPrefix)
	addField("Max Workers", strconv.Itoa(n.MaxWorkers))

	addSection("Transport")
	addField("Buffer Size", fmt.Sprintf("%d bytes", n.Transport.BufferSize))
	addField("Pool Size", strconv.Itoa(n.Transport.PoolSize))

	addSection("Logging")
	addField("Log Level", n.LogLevel)

	return sb.String()
}
