package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern; a trailing "/" matches by prefix
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewConfig returns the default limits for the interview API.
func NewConfig(enabled bool, whitelist ...string) *Config {
	return &Config{
		Enabled:         enabled,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       parseIPList(strings.Join(whitelist, ",")),
		Blacklist:       map[string]bool{},
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Password guessing
		{Path: "/auth/token", Method: "POST", Limit: 10, Window: time.Minute, Burst: 5},

		// Resume parsing and Gemini-backed question generation
		{Path: "/candidates", Method: "POST", Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/candidates/", Method: "POST", Limit: 60, Window: time.Hour, Burst: 10},

		// Answers trigger scoring on the last question
		{Path: "/session/answer", Method: "POST", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/assessment/reset", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},
	}
}

// parseIPList parses a comma-separated list of IP addresses into a map.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
