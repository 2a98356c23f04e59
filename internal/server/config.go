package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Timing TimingSettings `hcl:"timing,block"`
}

// ServerSettings contains listener-level configuration
type ServerSettings struct {
	Address        string   `hcl:"address,optional"`
	Port           int      `hcl:"port,optional"`
	LogLevel       string   `hcl:"log_level,optional"`
	Production     bool     `hcl:"production,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
}

// TimingSettings holds the pacing delays, in milliseconds. They exist so
// clients can animate; correctness never depends on them.
type TimingSettings struct {
	TrickSettleMs     int `hcl:"trick_settle_ms,optional"`
	TrickClearMs      int `hcl:"trick_clear_ms,optional"`
	RoundEndMs        int `hcl:"round_end_ms,optional"`
	DisconnectGraceMs int `hcl:"disconnect_grace_ms,optional"`
	TurnCheckMs       int `hcl:"turn_check_ms,optional"`
}

// hclConfig mirrors Config with optional blocks so a partial file parses.
type hclConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Timing *TimingSettings `hcl:"timing,block"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "",
			Port:     3001,
			LogLevel: "info",
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://localhost:3000",
			},
		},
		Timing: TimingSettings{
			TrickSettleMs:     500,
			TrickClearMs:      1500,
			RoundEndMs:        2000,
			DisconnectGraceMs: 5000,
			TurnCheckMs:       300,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist. The PORT environment variable
// overrides the configured port either way.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}

		var parsed hclConfig
		diags = gohcl.DecodeBody(file.Body, nil, &parsed)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
		if parsed.Server != nil {
			mergeServerSettings(&config.Server, parsed.Server)
		}
		if parsed.Timing != nil {
			mergeTimingSettings(&config.Timing, parsed.Timing)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		config.Server.Port = p
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func mergeServerSettings(dst, src *ServerSettings) {
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	dst.Production = src.Production
	if len(src.AllowedOrigins) > 0 {
		dst.AllowedOrigins = src.AllowedOrigins
	}
}

func mergeTimingSettings(dst, src *TimingSettings) {
	if src.TrickSettleMs != 0 {
		dst.TrickSettleMs = src.TrickSettleMs
	}
	if src.TrickClearMs != 0 {
		dst.TrickClearMs = src.TrickClearMs
	}
	if src.RoundEndMs != 0 {
		dst.RoundEndMs = src.RoundEndMs
	}
	if src.DisconnectGraceMs != 0 {
		dst.DisconnectGraceMs = src.DisconnectGraceMs
	}
	if src.TurnCheckMs != 0 {
		dst.TurnCheckMs = src.TurnCheckMs
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	return nil
}

// ListenAddress returns the full listener address
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Pacing converts the millisecond settings into durations for the
// orchestrator.
func (c *Config) Pacing() Pacing {
	return Pacing{
		TrickSettle:     time.Duration(c.Timing.TrickSettleMs) * time.Millisecond,
		TrickClear:      time.Duration(c.Timing.TrickClearMs) * time.Millisecond,
		RoundEnd:        time.Duration(c.Timing.RoundEndMs) * time.Millisecond,
		DisconnectGrace: time.Duration(c.Timing.DisconnectGraceMs) * time.Millisecond,
		TurnCheck:       time.Duration(c.Timing.TurnCheckMs) * time.Millisecond,
	}
}
