// Package portal provides a Portal that plays back a scripted scenario
// instead of driving a live registration site. Scenarios are YAML files
// describing, per course, what each round's search and submit return.
package portal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// SessionError is the step error text that simulates a lost portal session
const SessionError = "session"

// DefaultResult is the result text used for a found course whose step sets
// neither result nor missing
const DefaultResult = "Success: This class has been added to your schedule."

// Scenario is a scripted portal session
type Scenario struct {
	Name        string                   `yaml:"name"`
	Appointment string                   `yaml:"appointment"`
	Latency     string                   `yaml:"latency"`
	Courses     map[string]*CourseScript `yaml:"courses"`

	latency time.Duration
}

// CourseScript is the behaviour of one course over successive rounds. The
// last step repeats once the list runs out.
type CourseScript struct {
	Name   string `yaml:"name"`
	Rounds []Step `yaml:"rounds"`
}

// Step is what one round of search and submit returns for a course
type Step struct {
	Found   *bool  `yaml:"found"`
	Result  string `yaml:"result"`
	Missing bool   `yaml:"missing"`
	Error   string `yaml:"error"`
}

// IsFound reports whether the search finds the course; found defaults to true
func (s Step) IsFound() bool {
	return s.Found == nil || *s.Found
}

// ResultText returns the raw result block for this step
func (s Step) ResultText() string {
	if s.Result == "" {
		return DefaultResult
	}
	return s.Result
}

func (c *CourseScript) step(i int) Step {
	if i < len(c.Rounds) {
		return c.Rounds[i]
	}
	return c.Rounds[len(c.Rounds)-1]
}

// LatencyDuration returns the parsed per-call latency
func (s *Scenario) LatencyDuration() time.Duration {
	return s.latency
}

// SetLatency overrides the per-call latency
func (s *Scenario) SetLatency(d time.Duration) {
	s.latency = d
}

// Parse decodes and validates a YAML scenario
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.normalize(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads a scenario file from fsys
func Load(fsys afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (s *Scenario) normalize() error {
	if s.Latency != "" {
		d, err := time.ParseDuration(s.Latency)
		if err != nil {
			return fmt.Errorf("invalid latency %q: %w", s.Latency, err)
		}
		if d < 0 {
			return fmt.Errorf("latency must not be negative, got %s", d)
		}
		s.latency = d
	}

	courses := make(map[string]*CourseScript, len(s.Courses))
	for id, cs := range s.Courses {
		key := strings.TrimSpace(id)
		if key == "" {
			return errors.New("scenario has a course with an empty id")
		}
		if cs == nil || len(cs.Rounds) == 0 {
			return fmt.Errorf("course %s has no rounds", key)
		}
		courses[key] = cs
	}
	s.Courses = courses
	return nil
}
