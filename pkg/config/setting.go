package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProtocolVersion selects the CSA protocol variant spoken with the server
type ProtocolVersion string

const (
	// ProtocolV121 is the base CSA protocol 1.2.1.
	ProtocolV121 ProtocolVersion = "v121"
	// ProtocolV121Floodgate extends moves with the engine score and principal variation.
	ProtocolV121Floodgate ProtocolVersion = "v121_floodgate"
)

// GameSetting is the match setting for one login sequence
type GameSetting struct {
	Server         ServerSetting `yaml:"server"`
	Player         PlayerSetting `yaml:"player"`
	AutoFlip       bool          `yaml:"auto_flip"`
	AutoRelogin    bool          `yaml:"auto_relogin"`
	Repeat         int           `yaml:"repeat"`
	EnableComment  bool          `yaml:"enable_comment"`
	EnableAutoSave bool          `yaml:"enable_auto_save"`
}

// ServerSetting holds the CSA server connection parameters
type ServerSetting struct {
	ProtocolVersion ProtocolVersion  `yaml:"protocol_version"`
	Host            string           `yaml:"host"`
	Port            int              `yaml:"port"`
	ID              string           `yaml:"id"`
	Password        string           `yaml:"password"`
	Keepalive       KeepaliveSetting `yaml:"keepalive"`
}

// KeepaliveSetting controls the empty lines sent to keep idle connections open.
// Values are in seconds; a zero interval disables keepalive.
type KeepaliveSetting struct {
	InitialDelay int `yaml:"initial_delay"`
	Interval     int `yaml:"interval"`
}

// PlayerSetting describes how to start the search engine
type PlayerSetting struct {
	Name    string            `yaml:"name"`
	Path    string            `yaml:"path"`
	Args    []string          `yaml:"args,omitempty"`
	Options map[string]string `yaml:"options"`
	Ponder  bool              `yaml:"ponder"`
}

// Address returns host:port.
func (s ServerSetting) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// InitialDelayDuration returns the keepalive delay as a duration.
func (k KeepaliveSetting) InitialDelayDuration() time.Duration {
	return time.Duration(k.InitialDelay) * time.Second
}

// IntervalDuration returns the keepalive interval as a duration.
func (k KeepaliveSetting) IntervalDuration() time.Duration {
	return time.Duration(k.Interval) * time.Second
}

// DefaultGameSetting returns a GameSetting populated with sensible defaults.
func DefaultGameSetting() GameSetting {
	return GameSetting{
		Server: ServerSetting{
			ProtocolVersion: ProtocolV121,
			Host:            "localhost",
			Port:            4081,
			Keepalive: KeepaliveSetting{
				InitialDelay: 10,
				Interval:     30,
			},
		},
		AutoFlip:    true,
		AutoRelogin: true,
		Repeat:      1,
	}
}

// Validate checks the fields a login cannot do without.
func (s GameSetting) Validate() error {
	var errs []error
	switch s.Server.ProtocolVersion {
	case ProtocolV121, ProtocolV121Floodgate:
	default:
		errs = append(errs, fmt.Errorf("unknown protocol version %q", s.Server.ProtocolVersion))
	}
	if strings.TrimSpace(s.Server.Host) == "" {
		errs = append(errs, errors.New("server host is required"))
	}
	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", s.Server.Port))
	}
	if strings.TrimSpace(s.Server.ID) == "" {
		errs = append(errs, errors.New("server id is required"))
	}
	if strings.ContainsAny(s.Server.ID, " \t") || strings.ContainsAny(s.Server.Password, " \t") {
		errs = append(errs, errors.New("server id and password must not contain spaces"))
	}
	if strings.TrimSpace(s.Player.Path) == "" {
		errs = append(errs, errors.New("player path is required"))
	}
	if s.Repeat < 1 {
		errs = append(errs, fmt.Errorf("repeat must be >= 1: %d", s.Repeat))
	}
	return errors.Join(errs...)
}

// ReadGameSetting reads a YAML game setting. Missing fields keep their defaults.
func ReadGameSetting(path string) (GameSetting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GameSetting{}, fmt.Errorf("reading game setting: %w", err)
	}

	setting := DefaultGameSetting()
	if err := yaml.Unmarshal(data, &setting); err != nil {
		return GameSetting{}, fmt.Errorf("parsing game setting: %w", err)
	}

	return setting, nil
}

// WriteGameSetting writes the setting to path, creating parent directories.
func WriteGameSetting(path string, setting GameSetting) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating setting directory: %w", err)
	}

	data, err := yaml.Marshal(setting)
	if err != nil {
		return fmt.Errorf("marshalling game setting: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing game setting: %w", err)
	}

	return nil
}
