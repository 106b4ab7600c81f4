// If you are AI: This file defines the configuration structure for streamhub.
// It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Relay modes.
const (
	RelayModePull = "pull"
	RelayModePush = "push"
)

// ReplayHeaderSlots counts what a late joiner gets before the GOP:
// metadata plus the video and audio sequence headers.
const ReplayHeaderSlots = 3

// Config holds the complete server configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Server ServerConfig  `yaml:"server"`
	RTMP   RTMPConfig    `yaml:"rtmp"`
	Relays []RelayConfig `yaml:"relays,omitempty"`
}

// ServerConfig defines listener ports.
type ServerConfig struct {
	HealthPort int `yaml:"health_port"` // /healthz and /api
	HTTPPort   int `yaml:"http_port"`   // HTTP-FLV and WS-FLV
	RTMPPort   int `yaml:"rtmp_port"`   // RTMP ingest and playback
}

// RTMPConfig tunes the RTMP engine.
type RTMPConfig struct {
	ChunkSize      uint32        `yaml:"chunk_size"`       // outbound chunk size announced after connect
	WindowAckSize  uint32        `yaml:"window_ack_size"`  // Window Acknowledgement Size sent to peers
	PeerBandwidth  uint32        `yaml:"peer_bandwidth"`   // Set Peer Bandwidth sent to peers
	GOPCacheLength *int          `yaml:"gop_cache_length"` // messages kept for late joiners, 0 disables
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // idle read and stalled write deadline, 0 disables
	WriteQueue     uint32        `yaml:"write_queue"`      // per-viewer queue length in messages
}

// RelayConfig defines a relay task configuration.
type RelayConfig struct {
	App         string        `yaml:"app"`                    // Application name
	Name        string        `yaml:"name"`                   // Stream name
	Mode        string        `yaml:"mode"`                   // "pull" or "push"
	RemoteURL   string        `yaml:"remote_url"`             // Remote RTMP URL
	Reconnect   bool          `yaml:"reconnect,omitempty"`    // Enable reconnect on failure
	OpenTimeout time.Duration `yaml:"open_timeout,omitempty"` // Bound on connect+publish/play
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8081
	}
	if c.Server.RTMPPort == 0 {
		c.Server.RTMPPort = 1935
	}

	if c.RTMP.ChunkSize == 0 {
		c.RTMP.ChunkSize = 4096
	}
	if c.RTMP.WindowAckSize == 0 {
		c.RTMP.WindowAckSize = 2500000
	}
	if c.RTMP.PeerBandwidth == 0 {
		c.RTMP.PeerBandwidth = 2500000
	}
	if c.RTMP.GOPCacheLength == nil {
		n := 1024
		c.RTMP.GOPCacheLength = &n
	}
	if c.RTMP.ReadTimeout == 0 {
		c.RTMP.ReadTimeout = 30 * time.Second
	}
	if c.RTMP.WriteQueue == 0 {
		c.RTMP.WriteQueue = max(1024, c.RTMP.MinWriteQueue())
	}

	for i := range c.Relays {
		if c.Relays[i].OpenTimeout == 0 {
			c.Relays[i].OpenTimeout = 10 * time.Second
		}
	}
}

// MinWriteQueue is the smallest per-viewer queue that holds a full replay.
func (r RTMPConfig) MinWriteQueue() uint32 {
	if r.GOPCache() <= 0 {
		return 1
	}
	return uint32(r.GOPCache()) + ReplayHeaderSlots
}

// GOPCache returns the configured GOP cache length.
func (r RTMPConfig) GOPCache() int {
	if r.GOPCacheLength == nil {
		return 0
	}
	return *r.GOPCacheLength
}
