package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"holidaycal/internal/ics"
	"holidaycal/internal/model"
	"holidaycal/internal/source"
)

const DefaultPath = "/etc/holidaycal/config.yaml"

// Environment overrides, applied after the file is loaded.
const (
	EnvListen            = "HOLIDAYCAL_LISTEN"
	EnvOutput            = "HOLIDAYCAL_OUTPUT"
	EnvBasicAuthUser     = "HOLIDAYCAL_BASIC_AUTH_USER"
	EnvBasicAuthPassword = "HOLIDAYCAL_BASIC_AUTH_PASSWORD"
)

// StatutoryConfig locates the holiday-cn feed.
type StatutoryConfig struct {
	// URLTemplate contains a {year} placeholder.
	URLTemplate string `yaml:"url_template"`
	// CacheDir keeps the last good copy of every year file. Empty disables caching.
	CacheDir string `yaml:"cache_dir"`
	// Timeout is a Go duration string, e.g. "15s".
	Timeout string `yaml:"timeout"`
}

// FloatingConfig is one "Nth weekday of month" rule.
type FloatingConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Month       int    `yaml:"month"`
	// Weekday is an English weekday name ("sunday").
	Weekday string `yaml:"weekday"`
	// Occurrence is 1..5 or "last".
	Occurrence string `yaml:"occurrence"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP endpoints.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Output is where the generated .ics document is written.
	Output string `yaml:"output"`
	// Timezone decides which year is "current".
	Timezone string `yaml:"timezone"`
	// StartYear pins the first generated year; 0 means the current year.
	StartYear int `yaml:"start_year,omitempty"`
	// YearsAhead is how many years after the first one are generated.
	YearsAhead int `yaml:"years_ahead"`

	CalendarName string `yaml:"calendar_name"`
	ProductID    string `yaml:"product_id"`
	UIDDomain    string `yaml:"uid_domain"`
	RestDayLabel string `yaml:"rest_day_label"`

	Statutory StatutoryConfig `yaml:"statutory"`

	// FixedCSV and LunarCSV override the built-in tables.
	FixedCSV string           `yaml:"fixed_csv,omitempty"`
	LunarCSV string           `yaml:"lunar_csv,omitempty"`
	Floating []FloatingConfig `yaml:"floating"`

	// RefreshCron is the regeneration schedule used by serve.
	RefreshCron string `yaml:"refresh"`
	Listen      string `yaml:"listen"`
	// BasicAuth, if non-nil, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty"`

	Log LogConfig `yaml:"log"`
}

func defaultFloating() []FloatingConfig {
	return []FloatingConfig{
		{Name: "母亲节", Month: 5, Weekday: "sunday", Occurrence: "2"},
		{Name: "父亲节", Month: 6, Weekday: "sunday", Occurrence: "3"},
		{Name: "感恩节", Month: 11, Weekday: "thursday", Occurrence: "4"},
	}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Floating: defaultFloating(),
	}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values so partially-filled configs still work.
func (c *Config) Normalize() {
	if c.Output == "" {
		c.Output = "./public/holidays.ics"
	}
	if c.Timezone == "" {
		c.Timezone = ics.DefaultTimezone
	}
	if c.YearsAhead <= 0 {
		c.YearsAhead = 1
	}
	if c.CalendarName == "" {
		c.CalendarName = ics.DefaultName
	}
	if c.ProductID == "" {
		c.ProductID = ics.DefaultProductID
	}
	if c.UIDDomain == "" {
		c.UIDDomain = ics.DefaultUIDDomain
	}
	if c.RestDayLabel == "" {
		c.RestDayLabel = "法定节假日"
	}
	if c.Statutory.URLTemplate == "" {
		c.Statutory.URLTemplate = source.DefaultURLTemplate
	}
	if c.Statutory.Timeout == "" {
		c.Statutory.Timeout = source.DefaultTimeout.String()
	}
	if c.Floating == nil {
		c.Floating = defaultFloating()
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 3 * * *"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.YearsAhead > 50 {
		errs = append(errs, fmt.Errorf("years_ahead %d is larger than 50", c.YearsAhead))
	}
	if !strings.Contains(c.Statutory.URLTemplate, "{year}") {
		errs = append(errs, fmt.Errorf("statutory.url_template %q has no {year} placeholder", c.Statutory.URLTemplate))
	}
	if _, err := c.StatutoryTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.FloatingRules(); err != nil {
		errs = append(errs, err)
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		errs = append(errs, errors.New("basic_auth needs both username and password"))
	}
	return errors.Join(errs...)
}

// StatutoryTimeout parses statutory.timeout.
func (c *Config) StatutoryTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Statutory.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("statutory.timeout %q is not a positive duration", c.Statutory.Timeout)
	}
	return d, nil
}

// Years returns the generated span: the start year (current year in the
// configured timezone unless pinned) and YearsAhead more.
func (c *Config) Years(now time.Time) ([]int, error) {
	start := c.StartYear
	if start == 0 {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, err
		}
		start = now.In(loc).Year()
	}
	return model.YearSpan(start, c.YearsAhead+1), nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// FloatingRules converts the configured floating list into rules.
func (c *Config) FloatingRules() ([]model.FloatingRule, error) {
	rules := make([]model.FloatingRule, 0, len(c.Floating))
	for i, f := range c.Floating {
		wd, ok := weekdays[strings.ToLower(strings.TrimSpace(f.Weekday))]
		if !ok {
			return nil, fmt.Errorf("floating[%d] %q: unknown weekday %q", i, f.Name, f.Weekday)
		}
		occ := model.LastOccurrence
		if o := strings.ToLower(strings.TrimSpace(f.Occurrence)); o != "last" {
			n, err := strconv.Atoi(o)
			if err != nil {
				return nil, fmt.Errorf("floating[%d] %q: occurrence %q", i, f.Name, f.Occurrence)
			}
			occ = n
		}
		rule := model.FloatingRule{
			Title:       f.Name,
			Description: f.Description,
			Month:       time.Month(f.Month),
			Weekday:     wd,
			Occurrence:  occ,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("floating[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ApplyEnv loads envFile (when present) and applies HOLIDAYCAL_* overrides.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output = v
	}
	user, pass := os.Getenv(EnvBasicAuthUser), os.Getenv(EnvBasicAuthPassword)
	if user != "" || pass != "" {
		if c.BasicAuth == nil {
			c.BasicAuth = &BasicAuthConfig{}
		}
		if user != "" {
			c.BasicAuth.Username = user
		}
		if pass != "" {
			c.BasicAuth.Password = pass
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// If the file does not exist a default config is written there with 0600
// perms and returned. Otherwise the YAML is read and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether a read-only location is fatal.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".holidaycal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
