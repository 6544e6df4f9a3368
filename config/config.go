package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlServer holds HTTP server settings.
type TomlServer struct {
	Hostname string `toml:"hostname,omitempty"`
	Port     int    `toml:"port,omitempty"`
}

// TomlCalendar holds settings for the generated iCalendar feed.
type TomlCalendar struct {
	Name     string `toml:"name,omitempty"`
	Domain   string `toml:"domain,omitempty"`
	ProdId   string `toml:"prodid,omitempty"`
	Timezone string `toml:"timezone,omitempty"`

	// Events with a start time but no stored end get this duration.
	DefaultDurationHours int `toml:"default_duration_hours,omitempty"`
}

// TomlConfig represents the top-level configuration
type TomlConfig struct {
	Server   TomlServer   `toml:"server"`
	Calendar TomlCalendar `toml:"calendar"`
}

// DefaultConfig returns the configuration used when no config file is
// given. The calendar values match what calendar clients already
// subscribed to the feed expect.
func DefaultConfig() *TomlConfig {
	return &TomlConfig{
		Server: TomlServer{
			Hostname: "hubdecomunidades.mx",
			Port:     3000,
		},
		Calendar: TomlCalendar{
			Name:                 "Hub de Comunidades - Eventos",
			Domain:               "hubdecomunidades.mx",
			ProdId:               "-//Hub de Comunidades//Eventos//ES",
			Timezone:             "America/Mexico_City",
			DefaultDurationHours: 2,
		},
	}
}

// LoadConfig reads a TOML config file and fills in defaults for any
// value left unset.
func LoadConfig(path string) (*TomlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}
