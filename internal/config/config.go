// Package config is the layered configuration record for the receiver:
// defaults, then an optional YAML file, then command-line flags, in that
// order of increasing precedence. The range-checked Config/Valid shape
// is grounded on rob-gra-go-iecp5's cs104.Config/Config.Valid.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFixBitsMin = 0
	DefaultFixBitsMax = 2

	DefaultSendBufExpMin = 0
	DefaultSendBufExpMax = 7
)

// NetService is one listen-and-serve endpoint: a protocol name (one of
// the *_in/*_out protocols from §6) bound to a TCP port.
type NetService struct {
	Protocol string `yaml:"protocol"`
	Port     int    `yaml:"port"`
	SendBufExp int  `yaml:"send_buf_exp"`
}

// NetConnector is one outbound (address, port, protocol) tuple.
type NetConnector struct {
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DelayMs  int    `yaml:"delay_ms"`
}

// Config is the full receiver configuration. The default is applied for
// each unspecified value, mirroring cs104.Config.Valid's pattern.
type Config struct {
	DeviceIndex int    `yaml:"device_index"`
	Gain        float64 `yaml:"gain"` // dB, 0 = auto

	MaxFixBits int  `yaml:"max_fix_bits"`
	Aggressive bool `yaml:"aggressive_crc"`

	ReceiverLat       float64 `yaml:"receiver_lat"`
	ReceiverLon       float64 `yaml:"receiver_lon"`
	ReceiverConfigured bool   `yaml:"receiver_position_configured"`
	MaxRangeNM        float64 `yaml:"max_range_nm"`

	NetServices   []NetService   `yaml:"net_services"`
	NetConnectors []NetConnector `yaml:"net_connectors"`

	WriteJSONDir      string        `yaml:"write_json_dir"`
	WriteJSONInterval time.Duration `yaml:"write_json_interval"`

	LogLevel string `yaml:"log_level"`
}

// Valid applies defaults for each unspecified value and range-checks the
// rest, returning an error naming the first out-of-range field.
func (c *Config) Valid() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}

	if c.MaxFixBits == 0 {
		c.MaxFixBits = 1
	} else if c.MaxFixBits < DefaultFixBitsMin || c.MaxFixBits > DefaultFixBitsMax {
		return fmt.Errorf("config: max_fix_bits must be in [%d, %d]", DefaultFixBitsMin, DefaultFixBitsMax)
	}

	if c.WriteJSONInterval == 0 {
		c.WriteJSONInterval = time.Second
	}

	for i, svc := range c.NetServices {
		if svc.SendBufExp < DefaultSendBufExpMin || svc.SendBufExp > DefaultSendBufExpMax {
			return fmt.Errorf("config: net_services[%d].send_buf_exp must be in [%d, %d]", i, DefaultSendBufExpMin, DefaultSendBufExpMax)
		}
		if svc.Port <= 0 || svc.Port > 65535 {
			return fmt.Errorf("config: net_services[%d].port %d out of range", i, svc.Port)
		}
	}
	for i, conn := range c.NetConnectors {
		if conn.DelayMs <= 0 {
			c.NetConnectors[i].DelayMs = 30000
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	return nil
}

// Default returns the baseline configuration before a file or flags are
// applied.
func Default() Config {
	return Config{
		MaxFixBits: 1,
		NetServices: []NetService{
			{Protocol: "beast_out", Port: 30005, SendBufExp: 0},
			{Protocol: "raw_out", Port: 30002, SendBufExp: 0},
			{Protocol: "sbs_out", Port: 30003, SendBufExp: 0},
		},
		WriteJSONInterval: time.Second,
		LogLevel:          "info",
	}
}

// LoadFile merges a YAML file's contents over the receiver's defaults.
// A missing file is not an error: the defaults stand.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Flags holds the command-line flags that override the file/defaults;
// BindFlags registers them on fs without parsing.
type Flags struct {
	ConfigPath  *string
	DeviceIndex *int
	Gain        *float64
	MaxFixBits  *int
	Aggressive  *bool
	ReceiverLat *float64
	ReceiverLon *float64
	LogLevel    *string
}

// BindFlags registers the override flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		ConfigPath:  fs.StringP("config", "c", "", "path to a YAML config file"),
		DeviceIndex: fs.Int("device-index", -1, "SDR device index (-1 = unchanged)"),
		Gain:        fs.Float64("gain", -1, "tuner gain in dB (negative = unchanged)"),
		MaxFixBits:  fs.Int("max-fix-bits", -1, "maximum correctable bit errors (negative = unchanged)"),
		Aggressive:  fs.Bool("aggressive", false, "enable two-bit CRC correction on long frames"),
		ReceiverLat: fs.Float64("lat", 0, "receiver latitude, degrees"),
		ReceiverLon: fs.Float64("lon", 0, "receiver longitude, degrees"),
		LogLevel:    fs.String("log-level", "", "log level (debug, info, warn, error)"),
	}
}

// Apply overlays any flag explicitly set by the caller onto cfg.
func Apply(cfg *Config, fs *pflag.FlagSet, f *Flags) {
	if fs.Changed("device-index") {
		cfg.DeviceIndex = *f.DeviceIndex
	}
	if fs.Changed("gain") {
		cfg.Gain = *f.Gain
	}
	if fs.Changed("max-fix-bits") {
		cfg.MaxFixBits = *f.MaxFixBits
	}
	if fs.Changed("aggressive") {
		cfg.Aggressive = *f.Aggressive
	}
	if fs.Changed("lat") && fs.Changed("lon") {
		cfg.ReceiverLat = *f.ReceiverLat
		cfg.ReceiverLon = *f.ReceiverLon
		cfg.ReceiverConfigured = true
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *f.LogLevel
	}
}
