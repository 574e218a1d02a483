package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the server configuration.
type Settings struct {
	Server struct {
		Host         string        `yaml:"host"`
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"server"`

	Rooms struct {
		MaxRooms        int           `yaml:"max_rooms"`
		Slots           int           `yaml:"slots"`
		EmptyCheckDelay time.Duration `yaml:"empty_check_delay"`
		MaxDimension    int           `yaml:"max_dimension"`
	} `yaml:"rooms"`

	Presets struct {
		Dir string `yaml:"dir"`
	} `yaml:"presets"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Ngrok struct {
		Enabled   bool   `yaml:"enabled"`
		AuthToken string `yaml:"auth_token"`
		Domain    string `yaml:"domain"`
	} `yaml:"ngrok"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.Server.Host = "localhost"
	s.Server.Port = 8080
	s.Server.ReadTimeout = 15 * time.Second
	s.Server.WriteTimeout = 15 * time.Second
	s.Server.IdleTimeout = 60 * time.Second
	s.Rooms.MaxRooms = 5
	s.Rooms.EmptyCheckDelay = 50 * time.Second
	s.Rooms.MaxDimension = 50
	s.Presets.Dir = "presets"
	s.NATS.SubjectPrefix = "connectn"
	s.Log.Level = "info"
	return s
}

// LoadSettings reads a YAML file over the defaults. An empty path returns
// the defaults.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return s, s.Validate()
}

// ApplyEnv overrides settings from environment variables. lookup is
// usually os.LookupEnv.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("CONNECTN_HOST", &s.Server.Host)
	if err := integer("PORT", &s.Server.Port); err != nil {
		return err
	}
	if err := integer("CONNECTN_MAX_ROOMS", &s.Rooms.MaxRooms); err != nil {
		return err
	}
	if err := integer("CONNECTN_SLOTS", &s.Rooms.Slots); err != nil {
		return err
	}
	if v, ok := lookup("CONNECTN_EMPTY_CHECK_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONNECTN_EMPTY_CHECK_DELAY: %w", err)
		}
		s.Rooms.EmptyCheckDelay = d
	}
	str("CONNECTN_PRESETS_DIR", &s.Presets.Dir)
	str("NATS_URL", &s.NATS.URL)
	str("CONNECTN_LOG_LEVEL", &s.Log.Level)

	// both spellings of the ngrok token are common
	str("NGROK_AUTH_TOKEN", &s.Ngrok.AuthToken)
	str("NGROK_AUTHTOKEN", &s.Ngrok.AuthToken)
	str("NGROK_DOMAIN", &s.Ngrok.Domain)
	if v, ok := lookup("NGROK_ENABLED"); ok && (v == "true" || v == "1") {
		s.Ngrok.Enabled = true
	}

	return s.Validate()
}

// Validate checks the settings for values the server cannot run with.
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", s.Server.Port)
	}
	if s.Rooms.MaxRooms < 1 {
		return fmt.Errorf("rooms.max_rooms must be at least 1, got %d", s.Rooms.MaxRooms)
	}
	if s.Rooms.Slots < 0 {
		return fmt.Errorf("rooms.slots must not be negative, got %d", s.Rooms.Slots)
	}
	if s.Rooms.EmptyCheckDelay < 0 {
		return fmt.Errorf("rooms.empty_check_delay must not be negative")
	}
	return nil
}

// Addr returns host:port.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
