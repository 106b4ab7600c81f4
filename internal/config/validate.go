// If you are AI: This file validates configuration values and returns descriptive errors.

package config

import (
	"strings"

	"github.com/pkg/errors"
)

const maxChunkSize = 60000

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return errors.Wrap(err, "server config")
	}
	if err := c.RTMP.Validate(); err != nil {
		return errors.Wrap(err, "rtmp config")
	}
	seen := make(map[string]bool, len(c.Relays))
	for i := range c.Relays {
		r := &c.Relays[i]
		if err := r.Validate(); err != nil {
			return errors.Wrapf(err, "relay %d", i)
		}
		id := r.Mode + " /" + r.App + "/" + r.Name
		if seen[id] {
			return errors.Errorf("relay %d: duplicate %s relay", i, id)
		}
		seen[id] = true
	}
	return nil
}

// Validate checks server configuration values.
func (s *ServerConfig) Validate() error {
	if s.HealthPort <= 0 || s.HealthPort > 65535 {
		return errors.Errorf("health_port must be between 1 and 65535, got %d", s.HealthPort)
	}
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return errors.Errorf("http_port must be between 1 and 65535, got %d", s.HTTPPort)
	}
	if s.RTMPPort <= 0 || s.RTMPPort > 65535 {
		return errors.Errorf("rtmp_port must be between 1 and 65535, got %d", s.RTMPPort)
	}
	if s.HealthPort == s.HTTPPort {
		return errors.Errorf("health_port and http_port must be different, both are %d", s.HealthPort)
	}
	if s.HealthPort == s.RTMPPort {
		return errors.Errorf("health_port and rtmp_port must be different, both are %d", s.HealthPort)
	}
	if s.HTTPPort == s.RTMPPort {
		return errors.Errorf("http_port and rtmp_port must be different, both are %d", s.HTTPPort)
	}
	return nil
}

// Validate checks RTMP engine values.
func (r *RTMPConfig) Validate() error {
	if r.ChunkSize < 128 || r.ChunkSize > maxChunkSize {
		return errors.Errorf("chunk_size must be between 128 and %d, got %d", maxChunkSize, r.ChunkSize)
	}
	if r.GOPCache() < 0 {
		return errors.Errorf("gop_cache_length must not be negative, got %d", r.GOPCache())
	}
	if r.ReadTimeout < 0 {
		return errors.Errorf("read_timeout must not be negative, got %s", r.ReadTimeout)
	}
	if need := r.MinWriteQueue(); r.WriteQueue < need {
		return errors.Errorf("write_queue must hold the replay of gop_cache_length + %d, need at least %d, got %d",
			ReplayHeaderSlots, need, r.WriteQueue)
	}
	return nil
}

// Validate checks one relay entry.
func (r *RelayConfig) Validate() error {
	if r.App == "" || r.Name == "" {
		return errors.New("relay config missing app or name")
	}
	if r.Mode != RelayModePull && r.Mode != RelayModePush {
		return errors.Errorf("invalid relay mode: %s (must be 'pull' or 'push')", r.Mode)
	}
	if r.RemoteURL == "" {
		return errors.New("relay config missing remote_url")
	}
	if !strings.HasPrefix(r.RemoteURL, "rtmp://") {
		return errors.Errorf("remote_url must be an rtmp:// url, got %q", r.RemoteURL)
	}
	if r.OpenTimeout < 0 {
		return errors.Errorf("open_timeout must not be negative, got %s", r.OpenTimeout)
	}
	return nil
}
