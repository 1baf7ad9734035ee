// Package config loads seatsniper's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/seatsniper/seatsniper/internal/domain"
	"github.com/seatsniper/seatsniper/internal/gate"
)

// LocalConfigName is the per-directory config file looked up from the
// working directory upwards
const LocalConfigName = ".seatsniper.toml"

// MinRecommendedInterval is the smallest cooldown that does not trigger a
// warning
const MinRecommendedInterval = 30

var (
	ErrNoCourses      = errors.New("no course codes provided (at least 1 is required)")
	ErrTooManyCourses = fmt.Errorf("a maximum of %d course codes is allowed", domain.MaxCourses)
)

var termRegex = regexp.MustCompile(`(?i)^(\d{4})[\s_]+(spring|summer|fall|winter)$`)

// Config holds all application configuration
type Config struct {
	Enrollment    EnrollmentConfig    `toml:"enrollment"`
	Schedule      ScheduleConfig      `toml:"schedule"`
	Portal        PortalConfig        `toml:"portal"`
	Notifications NotificationsConfig `toml:"notifications"`
	Web           WebConfig           `toml:"web"`
	General       GeneralConfig       `toml:"general"`

	// Warnings lists problems Load corrected on its own
	Warnings []string `toml:"-"`
}

// EnrollmentConfig holds the courses to pursue and the loop bounds
type EnrollmentConfig struct {
	Courses            []string `toml:"courses"`
	Term               string   `toml:"term"`
	IntervalSeconds    int      `toml:"interval_seconds"`
	MaxDurationSeconds int      `toml:"max_duration_seconds"`
}

// ScheduleConfig holds start gate settings
type ScheduleConfig struct {
	Appointment string `toml:"appointment"`
	Timezone    string `toml:"timezone"`
	StartCron   string `toml:"start_cron"`
}

// PortalConfig holds portal settings
type PortalConfig struct {
	Script   string `toml:"script"`
	SettleMS int    `toml:"settle_ms"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// WebConfig holds status feed settings
type WebConfig struct {
	Enabled bool   `toml:"enabled"`
	Port    int    `toml:"port"`
	Host    string `toml:"host"`
}

// GeneralConfig holds general settings
type GeneralConfig struct {
	DatabasePath string `toml:"database_path"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
	StopFile     string `toml:"stop_file"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Enrollment: EnrollmentConfig{
			IntervalSeconds: MinRecommendedInterval,
		},
		Schedule: ScheduleConfig{
			Timezone: gate.DefaultTimezone,
		},
		Web: WebConfig{
			Port: 8765,
			Host: "127.0.0.1",
		},
		General: GeneralConfig{
			DatabasePath: filepath.Join(home, ".seatsniper", "history.db"),
			LogLevel:     "info",
			LogFormat:    "console",
			StopFile:     filepath.Join(home, ".seatsniper", "STOP"),
		},
	}
}

// Load reads configuration from a TOML file on fsys, falling back to
// defaults when the file does not exist
func Load(fsys afero.Fs, path string) (*Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.normalize()
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.General.DatabasePath = ExpandPath(cfg.General.DatabasePath)
	cfg.General.StopFile = ExpandPath(cfg.General.StopFile)
	cfg.Portal.Script = ExpandPath(cfg.Portal.Script)
	cfg.normalize()

	return cfg, nil
}

// LoadWithLocalFallback loads path when given. Otherwise it uses the
// nearest LocalConfigName above the working directory, then the default
// config path.
func LoadWithLocalFallback(fsys afero.Fs, path string) (*Config, error) {
	if path != "" {
		return Load(fsys, path)
	}
	if wd, err := os.Getwd(); err == nil {
		if local := FindLocalConfig(fsys, wd); local != "" {
			return Load(fsys, local)
		}
	}
	return Load(fsys, DefaultConfigPath())
}

// FindLocalConfig walks from dir up to the filesystem root looking for
// LocalConfigName and returns its path, or "" when there is none
func FindLocalConfig(fsys afero.Fs, dir string) string {
	dir = filepath.Clean(dir)
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if ok, _ := afero.Exists(fsys, candidate); ok {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// normalize trims and de-duplicates course codes and coerces values the
// loader can repair, recording a warning for each
func (c *Config) normalize() {
	seen := make(map[string]bool, len(c.Enrollment.Courses))
	courses := make([]string, 0, len(c.Enrollment.Courses))
	for _, raw := range c.Enrollment.Courses {
		code := strings.TrimSpace(raw)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		courses = append(courses, code)
	}
	if len(courses) != len(c.Enrollment.Courses) {
		c.warn("dropped %d blank or duplicate course code(s)", len(c.Enrollment.Courses)-len(courses))
	}
	c.Enrollment.Courses = courses
	c.Enrollment.Term = strings.TrimSpace(c.Enrollment.Term)

	if c.Enrollment.MaxDurationSeconds < 0 {
		c.warn("max_duration_seconds %d is negative, using 0 (no time limit)", c.Enrollment.MaxDurationSeconds)
		c.Enrollment.MaxDurationSeconds = 0
	}
	if c.Enrollment.IntervalSeconds > 0 && c.Enrollment.IntervalSeconds < MinRecommendedInterval {
		c.warn("interval_seconds %d is below the recommended %d; consider the recommended value if problems arise",
			c.Enrollment.IntervalSeconds, MinRecommendedInterval)
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = gate.DefaultTimezone
	}
}

func (c *Config) warn(format string, args ...interface{}) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	return c.ValidateAt(time.Now())
}

// ValidateAt is Validate with the clock used for the term year check
func (c *Config) ValidateAt(now time.Time) error {
	var result *multierror.Error

	switch n := len(c.Enrollment.Courses); {
	case n == 0:
		result = multierror.Append(result, ErrNoCourses)
	case n > domain.MaxCourses:
		result = multierror.Append(result, fmt.Errorf("%w, got %d", ErrTooManyCourses, n))
	}

	if c.Enrollment.Term != "" {
		if _, err := ParseTerm(c.Enrollment.Term, now.Year()); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := c.LoopConfig().Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid timezone %q: %w", c.Schedule.Timezone, err))
	}
	if c.Schedule.Appointment != "" && loc != nil {
		if _, err := gate.ParseAppointment(c.Schedule.Appointment, loc); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if c.Schedule.StartCron != "" {
		if _, err := gate.ParseCron(c.Schedule.StartCron); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid start_cron %q: %w", c.Schedule.StartCron, err))
		}
	}

	if c.Portal.SettleMS < 0 {
		result = multierror.Append(result, fmt.Errorf("settle_ms must not be negative, got %d", c.Portal.SettleMS))
	}

	if c.Web.Enabled && (c.Web.Port < 1 || c.Web.Port > 65535) {
		result = multierror.Append(result, fmt.Errorf("web port %d is out of range", c.Web.Port))
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.General.LogLevel)); err != nil || c.General.LogLevel == "" {
		result = multierror.Append(result, fmt.Errorf("invalid log_level %q", c.General.LogLevel))
	}
	switch c.General.LogFormat {
	case "console", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("invalid log_format %q (want console or json)", c.General.LogFormat))
	}

	return result.ErrorOrNil()
}

// LoopConfig returns the engine bounds
func (c *Config) LoopConfig() domain.LoopConfig {
	return domain.LoopConfig{
		IntervalSeconds:    c.Enrollment.IntervalSeconds,
		MaxDurationSeconds: c.Enrollment.MaxDurationSeconds,
	}
}

// CourseIDs returns the configured courses in order
func (c *Config) CourseIDs() []domain.CourseID {
	ids := make([]domain.CourseID, len(c.Enrollment.Courses))
	for i, code := range c.Enrollment.Courses {
		ids[i] = domain.CourseID(code)
	}
	return ids
}

// Location returns the appointment timezone
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Schedule.Timezone)
}

// SettleDelay returns the per-call portal latency
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Portal.SettleMS) * time.Millisecond
}

// Term is an academic term such as 2026 Fall
type Term struct {
	Year   int
	Season string
}

func (t Term) String() string {
	return fmt.Sprintf("%d %s", t.Year, t.Season)
}

// EnrollmentTerm returns the configured term in canonical form. ok is false
// when no term is set.
func (c *Config) EnrollmentTerm(now time.Time) (term Term, ok bool, err error) {
	if c.Enrollment.Term == "" {
		return Term{}, false, nil
	}
	term, err = ParseTerm(c.Enrollment.Term, now.Year())
	if err != nil {
		return Term{}, false, err
	}
	return term, true, nil
}

// ParseTerm parses "2026 Fall" or "2026_Fall". The year must be
// currentYear or the one after.
func ParseTerm(s string, currentYear int) (Term, error) {
	m := termRegex.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Term{}, fmt.Errorf("invalid term %q, expected a format like 2026_Fall or 2027 Spring", s)
	}
	year, _ := strconv.Atoi(m[1])
	if year < currentYear || year > currentYear+1 {
		return Term{}, fmt.Errorf("term %q is not open for enrollment", s)
	}
	season := strings.ToUpper(m[2][:1]) + strings.ToLower(m[2][1:])
	return Term{Year: year, Season: season}, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "seatsniper", "config.toml")
}
