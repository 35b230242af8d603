// Package config provides configuration handling for the virtual-world
// client daemon.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/irctrakz/vwproto/pkg/logging"
	"github.com/irctrakz/vwproto/pkg/pool"
	"github.com/irctrakz/vwproto/pkg/transport"
)

// Config represents the complete client configuration.
type Config struct {
	// Transport contains the UDP transport and buffer pool configuration.
	Transport TransportConfig `json:"transport" yaml:"transport"`

	// EventQueue contains the HTTP event-queue configuration.
	EventQueue EventQueueConfig `json:"event_queue" yaml:"eventQueue"`

	// Logging contains the logging configuration.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// TransportConfig contains configuration for the UDP transport.
type TransportConfig struct {
	// ListenAddress is the local UDP address to bind.
	ListenAddress string `json:"listen_address" yaml:"listenAddress"`

	// BufferCapacity is the fixed datagram buffer size in bytes.
	BufferCapacity int `json:"buffer_capacity" yaml:"bufferCapacity"`

	// ReadWorkers is the number of parallel receive goroutines.
	ReadWorkers int `json:"read_workers" yaml:"readWorkers"`

	// CheckoutTimeoutMillis bounds a worker's wait for a pool buffer.
	CheckoutTimeoutMillis int `json:"checkout_timeout_millis" yaml:"checkoutTimeoutMillis"`

	// ItemsPerSegment is the buffer pool segment size.
	ItemsPerSegment int `json:"items_per_segment" yaml:"itemsPerSegment"`

	// MinSegments is the buffer pool's resident floor.
	MinSegments int `json:"min_segments" yaml:"minSegments"`

	// AllowGrowth permits the pool to add segments under load.
	AllowGrowth bool `json:"allow_growth" yaml:"allowGrowth"`

	// IdleTimeoutMillis is how long a surplus segment must sit fully free
	// before it is reclaimed.
	IdleTimeoutMillis int `json:"idle_timeout_millis" yaml:"idleTimeoutMillis"`
}

// EventQueueConfig contains configuration for the event-queue side channel.
type EventQueueConfig struct {
	// URL is the event-queue capability endpoint. Empty disables polling.
	URL string `json:"url" yaml:"url"`

	// PollTimeoutSec bounds one long-poll request.
	PollTimeoutSec int `json:"poll_timeout_sec" yaml:"pollTimeoutSec"`

	// RetryDelayMillis is the wait after a failed poll.
	RetryDelayMillis int `json:"retry_delay_millis" yaml:"retryDelayMillis"`
}

// LoggingConfig contains configuration for logging.
type LoggingConfig struct {
	// Level is the logging level (debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// File is the log file path.
	File string `json:"file" yaml:"file"`

	// MaxSize is the maximum size of the log file in megabytes.
	MaxSize int `json:"maxSize" yaml:"maxSize"`

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups" yaml:"maxBackups"`

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int `json:"maxAge" yaml:"maxAge"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			ListenAddress:         "0.0.0.0:0",
			BufferCapacity:        4096,
			ReadWorkers:           2,
			CheckoutTimeoutMillis: 1000,
			ItemsPerSegment:       16,
			MinSegments:           1,
			AllowGrowth:           true,
			IdleTimeoutMillis:     60000,
		},
		EventQueue: EventQueueConfig{
			URL:              "",
			PollTimeoutSec:   30,
			RetryDelayMillis: 1000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

// LoadFromFile loads configuration from a file.
func LoadFromFile(path string, config *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Determine file format based on extension
	switch {
	case strings.HasSuffix(path, ".json"):
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(config *Config) {
	// Transport config
	if val := os.Getenv("TRANSPORT_LISTEN_ADDRESS"); val != "" {
		config.Transport.ListenAddress = val
	}
	if val := os.Getenv("TRANSPORT_BUFFER_CAPACITY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transport.BufferCapacity = n
		}
	}
	if val := os.Getenv("TRANSPORT_READ_WORKERS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transport.ReadWorkers = n
		}
	}
	if val := os.Getenv("TRANSPORT_ITEMS_PER_SEGMENT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transport.ItemsPerSegment = n
		}
	}
	if val := os.Getenv("TRANSPORT_MIN_SEGMENTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transport.MinSegments = n
		}
	}
	if val := os.Getenv("TRANSPORT_ALLOW_GROWTH"); val != "" {
		config.Transport.AllowGrowth = val == "true" || val == "1"
	}
	if val := os.Getenv("TRANSPORT_IDLE_TIMEOUT_MILLIS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Transport.IdleTimeoutMillis = n
		}
	}

	// Event queue config
	if val := os.Getenv("EVENT_QUEUE_URL"); val != "" {
		config.EventQueue.URL = val
	}
	if val := os.Getenv("EVENT_QUEUE_POLL_TIMEOUT_SEC"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.EventQueue.PollTimeoutSec = n
		}
	}

	// Logging config
	if val := os.Getenv("LOGGING_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOGGING_FILE"); val != "" {
		config.Logging.File = val
	}
	if val := os.Getenv("LOGGING_MAX_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxSize = n
		}
	}
	if val := os.Getenv("LOGGING_MAX_BACKUPS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxBackups = n
		}
	}
	if val := os.Getenv("LOGGING_MAX_AGE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Logging.MaxAge = n
		}
	}
}

// Validate validates the configuration. Pool geometry and buffer capacity
// errors are startup errors; nothing here is retried per packet.
func (c *Config) Validate() error {
	if _, err := net.ResolveUDPAddr("udp", c.Transport.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Transport.ListenAddress, err)
	}
	if c.Transport.BufferCapacity <= 0 {
		return fmt.Errorf("invalid buffer capacity: %d", c.Transport.BufferCapacity)
	}
	if c.Transport.ReadWorkers <= 0 {
		return fmt.Errorf("invalid read worker count: %d", c.Transport.ReadWorkers)
	}
	if c.Transport.ItemsPerSegment <= 0 {
		return fmt.Errorf("invalid items per segment: %d", c.Transport.ItemsPerSegment)
	}
	if c.Transport.MinSegments <= 0 {
		return fmt.Errorf("invalid minimum segment count: %d", c.Transport.MinSegments)
	}
	if c.Transport.IdleTimeoutMillis <= 0 {
		return fmt.Errorf("invalid idle timeout: %d ms", c.Transport.IdleTimeoutMillis)
	}

	if c.EventQueue.URL != "" && !strings.HasPrefix(c.EventQueue.URL, "http://") &&
		!strings.HasPrefix(c.EventQueue.URL, "https://") {
		return fmt.Errorf("invalid event queue URL: %s", c.EventQueue.URL)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}

	return nil
}

// TransportConfig builds the transport package's configuration.
func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		ListenAddress:   c.Transport.ListenAddress,
		BufferCapacity:  c.Transport.BufferCapacity,
		ReadWorkers:     c.Transport.ReadWorkers,
		CheckoutTimeout: time.Duration(c.Transport.CheckoutTimeoutMillis) * time.Millisecond,
		Pool: pool.Config{
			ItemsPerSegment: c.Transport.ItemsPerSegment,
			MinSegments:     c.Transport.MinSegments,
			AllowGrowth:     c.Transport.AllowGrowth,
			IdleTimeout:     time.Duration(c.Transport.IdleTimeoutMillis) * time.Millisecond,
		},
	}
}

// ApplyLogging applies the logging configuration.
func (c *Config) ApplyLogging() error {
	var level logging.Level
	switch c.Logging.Level {
	case "debug":
		level = logging.DebugLevel
	case "info":
		level = logging.InfoLevel
	case "warn":
		level = logging.WarnLevel
	case "error":
		level = logging.ErrorLevel
	default:
		level = logging.InfoLevel
	}
	logging.SetLevel(level)

	if c.Logging.File != "" {
		dir := "."
		filename := c.Logging.File
		if lastSlash := strings.LastIndex(c.Logging.File, "/"); lastSlash != -1 {
			dir = c.Logging.File[:lastSlash]
			filename = c.Logging.File[lastSlash+1:]
		}
		if err := logging.EnableFileLogging(dir, filename, c.Logging.MaxSize, c.Logging.MaxBackups, c.Logging.MaxAge); err != nil {
			return fmt.Errorf("failed to enable file logging: %w", err)
		}
	}

	return nil
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch {
	case strings.HasSuffix(path, ".json"):
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		data, err = yaml.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", path)
	}

	if lastSlash := strings.LastIndex(path, "/"); lastSlash != -1 {
		if err := os.MkdirAll(path[:lastSlash], 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
