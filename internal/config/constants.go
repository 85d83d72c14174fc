package config

import "time"

// HTTP server timeouts for the local API
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Remote gateway request timeout
const GatewayRequestTimeout = 30 * time.Second

// Database ping timeout for startup checks
const DBPingTimeout = 5 * time.Second

// Timeout for tracker operations triggered by timers rather than requests
const TimerOperationTimeout = 60 * time.Second
