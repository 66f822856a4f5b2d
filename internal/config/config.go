package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/qick-go/qick/internal/board"
)

// Config represents the complete configuration of a qick process.
type Config struct {
	Board    string         `yaml:"board" toml:"board"`
	Firmware FirmwareConfig `yaml:"firmware" toml:"firmware"`
	Platform PlatformConfig `yaml:"platform" toml:"platform"`
	Remote   RemoteConfig   `yaml:"remote" toml:"remote"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// FirmwareConfig locates the bitfiles and the FPGA manager.
type FirmwareConfig struct {
	Dir         string `yaml:"dir" toml:"dir"`
	FPGAManager string `yaml:"fpgaManager" toml:"fpgaManager"`
}

// PlatformConfig holds the platform detection inputs.
type PlatformConfig struct {
	// Machine overrides the detected machine identifier when set.
	Machine string `yaml:"machine" toml:"machine"`
	// DocsBuild forces the hardware-present branch, as documentation builds do.
	DocsBuild bool `yaml:"docsBuild" toml:"docsBuild"`
}

// RemoteConfig holds the RPC server settings.
type RemoteConfig struct {
	Addr         string   `yaml:"addr" toml:"addr"`
	H2C          bool     `yaml:"h2c" toml:"h2c"`
	AllowedCIDRs []string `yaml:"allowedCidrs" toml:"allowedCidrs"`
	// Secret enables HS256 bearer authentication when non-empty.
	Secret        string `yaml:"secret" toml:"secret"`
	TokenTTLSec   int    `yaml:"tokenTtlSec" toml:"tokenTtlSec"`
	ReadTimeoutMs int    `yaml:"readTimeoutMs" toml:"readTimeoutMs"`
	// AuditDir enables the JSONL call audit when non-empty.
	AuditDir string `yaml:"auditDir" toml:"auditDir"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb" toml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups" toml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays" toml:"maxAgeDays"`
}

// TokenTTL returns the bearer token lifetime.
func (r RemoteConfig) TokenTTL() time.Duration {
	return time.Duration(r.TokenTTLSec) * time.Second
}

// ReadTimeout returns the HTTP read timeout.
func (r RemoteConfig) ReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutMs) * time.Millisecond
}

// Load loads configuration from defaults, the file named by QICK_CONFIG and
// environment variables, in that order.
func Load() (*Config, error) {
	return LoadWith(os.Getenv)
}

// LoadWith is Load with an injectable environment lookup.
func LoadWith(getenv func(string) string) (*Config, error) {
	cfg := getDefaultConfig()

	if path := getenv("QICK_CONFIG"); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg, getenv)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Firmware: FirmwareConfig{
			Dir:         "/opt/qick/firmware",
			FPGAManager: "/sys/class/fpga_manager/fpga0/state",
		},
		Remote: RemoteConfig{
			Addr:          ":8000",
			H2C:           true,
			AllowedCIDRs:  []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "192.168.0.0/16"},
			TokenTTLSec:   300,
			ReadTimeoutMs: 10000,
		},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// loadFromFile decodes YAML, or TOML for a .toml extension, over cfg.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		_, err = toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if b := getenv(board.Env); b != "" {
		cfg.Board = b
	}

	if rtd := getenv("READTHEDOCS"); rtd != "" {
		cfg.Platform.DocsBuild = rtd == "True"
	}

	if machine := getenv("QICK_MACHINE"); machine != "" {
		cfg.Platform.Machine = machine
	}

	if dir := getenv("QICK_FIRMWARE_DIR"); dir != "" {
		cfg.Firmware.Dir = dir
	}

	if addr := getenv("QICK_RPC_ADDR"); addr != "" {
		cfg.Remote.Addr = addr
	}

	if secret := getenv("QICK_RPC_SECRET"); secret != "" {
		cfg.Remote.Secret = secret
	}

	if ttl := getenv("QICK_RPC_TOKEN_TTL"); ttl != "" {
		if sec, err := strconv.Atoi(ttl); err == nil {
			cfg.Remote.TokenTTLSec = sec
		}
	}

	if dir := getenv("QICK_AUDIT_DIR"); dir != "" {
		cfg.Remote.AuditDir = dir
	}

	if file := getenv("QICK_LOG_FILE"); file != "" {
		cfg.Logging.File = file
	}
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	// An unmapped board is a deployment error, not something to degrade on.
	if cfg.Board != "" {
		if _, err := board.Firmware(cfg.Board); err != nil {
			return err
		}
	}

	if cfg.Remote.Addr == "" {
		return fmt.Errorf("remote address must be set")
	}

	for _, cidr := range cfg.Remote.AllowedCIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid allowed CIDR %q: %w", cidr, err)
		}
	}

	if cfg.Remote.Secret != "" && (cfg.Remote.TokenTTLSec <= 0 || cfg.Remote.TokenTTLSec > 86400) {
		return fmt.Errorf("token TTL %d seconds is outside reasonable range [1, 86400]", cfg.Remote.TokenTTLSec)
	}

	if cfg.Remote.ReadTimeoutMs <= 0 {
		return fmt.Errorf("read timeout must be positive, got %d ms", cfg.Remote.ReadTimeoutMs)
	}

	return nil
}
