package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures configuration values for the fitclub scheduler service.
// Values come from an optional YAML file with environment overrides on top.
type Config struct {
	HTTPPort           int           `yaml:"http_port"`
	SQLiteDSN          string        `yaml:"sqlite_dsn"`
	ServerBaseURL      string        `yaml:"server_base_url"`
	SyncInterval       time.Duration `yaml:"sync_interval"`
	WorkingHoursPerDay int           `yaml:"working_hours_per_day"`
	DaysPerWeek        int           `yaml:"days_per_week"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path falls back to the FITCLUB_CONFIG variable; a
// missing file is not an error, the defaults simply apply.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:fitclub.db?_pragma=foreign_keys(1)",
		ServerBaseURL:      "http://localhost:8080",
		SyncInterval:       5 * time.Minute,
		WorkingHoursPerDay: 12,
		DaysPerWeek:        7,
	}

	if path == "" {
		path = strings.TrimSpace(os.Getenv("FITCLUB_CONFIG"))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Defaults apply.
		default:
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("FITCLUB_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "FITCLUB_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("FITCLUB_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if base := strings.TrimSpace(os.Getenv("FITCLUB_SERVER_BASE_URL")); base != "" {
		cfg.ServerBaseURL = base
	}

	if intervalValue := strings.TrimSpace(os.Getenv("FITCLUB_SYNC_INTERVAL")); intervalValue != "" {
		interval, err := time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			invalid = append(invalid, "FITCLUB_SYNC_INTERVAL")
		} else {
			cfg.SyncInterval = interval
		}
	}

	if hoursValue := strings.TrimSpace(os.Getenv("FITCLUB_WORKING_HOURS_PER_DAY")); hoursValue != "" {
		hours, err := strconv.Atoi(hoursValue)
		if err != nil || hours <= 0 || hours > 24 {
			invalid = append(invalid, "FITCLUB_WORKING_HOURS_PER_DAY")
		} else {
			cfg.WorkingHoursPerDay = hours
		}
	}

	if daysValue := strings.TrimSpace(os.Getenv("FITCLUB_DAYS_PER_WEEK")); daysValue != "" {
		days, err := strconv.Atoi(daysValue)
		if err != nil || days <= 0 || days > 7 {
			invalid = append(invalid, "FITCLUB_DAYS_PER_WEEK")
		} else {
			cfg.DaysPerWeek = days
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	if cfg.HTTPPort <= 0 {
		return Config{}, fmt.Errorf("invalid http_port: %d", cfg.HTTPPort)
	}
	if cfg.SyncInterval <= 0 {
		return Config{}, fmt.Errorf("invalid sync_interval: %s", cfg.SyncInterval)
	}

	return cfg, nil
}
