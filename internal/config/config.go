package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultUUIDFile is where the generated tap identity is persisted when the
// config document carries no tap_uuid. It lives outside the package dir so
// the identity survives reinstalls.
const DefaultUUIDFile = "/var/lib/tap/tap_uuid"

// Config is the single configuration document for the tap.
type Config struct {
	TapUUID string `yaml:"tap_uuid"`
	TapName string `yaml:"tap_name"`

	Interface   string `yaml:"interface"`
	AutoMonitor bool   `yaml:"auto_monitor"`

	Channels24 []int `yaml:"channels_24ghz"`
	Channels5  []int `yaml:"channels_5ghz"`
	Channels6  []int `yaml:"channels_6ghz"`

	// Legacy flat channel plan; migrated into Channels24 on load.
	Channels []int `yaml:"channels"`

	ChannelDwellMS int `yaml:"channel_dwell_ms"`

	NodeHost string `yaml:"node_host"`
	NodePort int    `yaml:"node_port"`

	TsharkPath          string `yaml:"tshark_path"`
	StarvationTimeoutS  int    `yaml:"starvation_timeout_s"`
	TsharkRestartDelayS int    `yaml:"tshark_restart_delay_s"`
	HeartbeatIntervalS  int    `yaml:"heartbeat_interval_s"`

	ZMQBufferSize int `yaml:"zmq_buffer_size"`
	ZMQHWM        int `yaml:"zmq_hwm"`

	MemoryPercentThreshold float64 `yaml:"memory_percent_threshold"`

	LogLevel string `yaml:"log_level"`

	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	DebugHTTPAddr    string  `yaml:"debug_http_addr"`
	TraceEnabled     bool    `yaml:"trace_enabled"`
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

// defaults returns a Config populated with every operational default; the
// YAML document overrides on top.
func defaults() *Config {
	return &Config{
		TapName:                "tap",
		AutoMonitor:            true,
		Channels24:             nil,
		ChannelDwellMS:         500,
		NodePort:               5590,
		TsharkPath:             "tshark",
		StarvationTimeoutS:     60,
		TsharkRestartDelayS:    5,
		HeartbeatIntervalS:     10,
		ZMQBufferSize:          1000,
		ZMQHWM:                 1000,
		MemoryPercentThreshold: 90,
		LogLevel:               "info",
		TraceSampleRatio:       1,
	}
}

// Load reads and validates the configuration document. ifaceOverride, when
// non-empty, wins over the file's interface key (the --interface flag).
// Unknown keys are a fatal config error.
func Load(path, ifaceOverride string) (*Config, error) {
	cfg := defaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.migrate()

	if ifaceOverride != "" {
		cfg.Interface = ifaceOverride
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// migrate folds legacy keys into their current form.
func (c *Config) migrate() {
	if len(c.Channels) > 0 && len(c.Channels24) == 0 {
		c.Channels24 = c.Channels
	}
	c.Channels = nil
}

func (c *Config) validate() error {
	if c.Interface == "" {
		return fmt.Errorf("config: interface is required")
	}
	if c.NodeHost == "" {
		return fmt.Errorf("config: node_host is required")
	}
	if c.NodePort <= 0 || c.NodePort > 65535 {
		return fmt.Errorf("config: node_port %d out of range", c.NodePort)
	}
	if c.ChannelDwellMS <= 0 {
		return fmt.Errorf("config: channel_dwell_ms must be positive")
	}
	if c.ZMQBufferSize <= 0 || c.ZMQHWM <= 0 {
		return fmt.Errorf("config: zmq_buffer_size and zmq_hwm must be positive")
	}
	if c.MemoryPercentThreshold <= 0 || c.MemoryPercentThreshold > 100 {
		return fmt.Errorf("config: memory_percent_threshold must be in (0,100]")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("config: trace_sample_ratio must be in [0,1]")
	}
	return nil
}

// EnsureTapUUID resolves the persistent tap identity: the config value if
// present, else the fallback file, else a freshly generated UUID written to
// the fallback file with mode 0600.
func (c *Config) EnsureTapUUID(fallbackPath string) error {
	if c.TapUUID != "" {
		if _, err := uuid.Parse(c.TapUUID); err != nil {
			return fmt.Errorf("config: tap_uuid %q: %w", c.TapUUID, err)
		}
		return nil
	}

	if data, err := os.ReadFile(fallbackPath); err == nil {
		if id, err := uuid.Parse(strings.TrimSpace(string(data))); err == nil {
			c.TapUUID = id.String()
			return nil
		}
	}

	id := uuid.New()
	if err := os.MkdirAll(filepath.Dir(fallbackPath), 0o755); err != nil {
		return fmt.Errorf("config: create uuid dir: %w", err)
	}
	if err := os.WriteFile(fallbackPath, []byte(id.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("config: persist tap_uuid: %w", err)
	}
	c.TapUUID = id.String()
	return nil
}

// MergedChannels flattens the per-band plans into the hopper sequence:
// 2.4 GHz first, then 5, then 6, duplicates removed, order preserved.
func (c *Config) MergedChannels() []int {
	seen := make(map[int]struct{})
	var out []int
	for _, band := range [][]int{c.Channels24, c.Channels5, c.Channels6} {
		for _, ch := range band {
			if _, dup := seen[ch]; dup {
				continue
			}
			seen[ch] = struct{}{}
			out = append(out, ch)
		}
	}
	return out
}

// Duration helpers. The document stores integers in the units its keys
// name; everything else in the process speaks time.Duration.

func (c *Config) Dwell() time.Duration {
	return time.Duration(c.ChannelDwellMS) * time.Millisecond
}

func (c *Config) StarvationTimeout() time.Duration {
	return time.Duration(c.StarvationTimeoutS) * time.Second
}

func (c *Config) TsharkRestartDelay() time.Duration {
	return time.Duration(c.TsharkRestartDelayS) * time.Second
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalS) * time.Second
}

// NodeAddr is the publisher's connect endpoint.
func (c *Config) NodeAddr() string {
	return fmt.Sprintf("tcp://%s:%d", c.NodeHost, c.NodePort)
}
