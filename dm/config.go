package dm

import (
	"encoding/hex"
	"os"
	"strings"

	bluetooth "github.com/ProjectEverest/android-packages-modules-Bluetooth"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config holds the EIR fields that do not come from profiles.
type Config struct {
	// LocalName is used when no NameSource is set or it fails.
	LocalName string `yaml:"local_name"`

	// MinNameLen is the length the name is shortened to when space is
	// short. Zero means bluetooth.DefaultMinNameLen.
	MinNameLen int `yaml:"min_name_len"`

	// InqTxPower is the inquiry response transmit power in dBm, if known.
	InqTxPower *int8 `yaml:"inq_tx_power"`

	Flags            HexBytes `yaml:"flags"`
	ManufacturerData HexBytes `yaml:"manufacturer_data"`

	// CustomUUIDs are registered at startup by tools that have no profile
	// layer of their own.
	CustomUUIDs []Registration `yaml:"custom_uuids"`
}

// Registration is a custom UUID as written in a config file.
type Registration struct {
	UUID   string `yaml:"uuid"`
	Handle uint32 `yaml:"handle"`
}

// HexBytes is a byte string written as hex in config files.
type HexBytes []byte

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HexBytes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	b, err := hex.DecodeString(strings.NewReplacer(" ", "", ":", "").Replace(s))
	if err != nil {
		return errors.Wrapf(err, "bad hex string %q", s)
	}
	*h = b
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h HexBytes) MarshalYAML() (interface{}, error) {
	return hex.EncodeToString(h), nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "can't read config")
	}
	cfg, err := ParseConfig(b)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// ParseConfig parses and validates a YAML config.
func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, errors.Wrap(err, "can't parse config")
	}
	if cfg.MinNameLen < 0 {
		return nil, errors.Errorf("min_name_len %d is negative", cfg.MinNameLen)
	}
	if len(cfg.ManufacturerData) > 0 && len(cfg.ManufacturerData) < 2 {
		return nil, errors.New("manufacturer_data must start with a 2 byte company id")
	}
	if _, err := cfg.Registrations(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Registrations returns the custom UUIDs listed in the config.
func (cfg *Config) Registrations() ([]CustomUUID, error) {
	rr := make([]CustomUUID, 0, len(cfg.CustomUUIDs))
	for i, r := range cfg.CustomUUIDs {
		u, err := bluetooth.ParseUUID(r.UUID)
		if err != nil {
			return nil, errors.Wrapf(err, "custom_uuids[%d]", i)
		}
		if u.IsEmpty() {
			return nil, errors.Errorf("custom_uuids[%d]: empty uuid", i)
		}
		if r.Handle == 0 {
			return nil, errors.Errorf("custom_uuids[%d]: handle must not be 0", i)
		}
		rr = append(rr, CustomUUID{UUID: u, Handle: r.Handle})
	}
	return rr, nil
}
