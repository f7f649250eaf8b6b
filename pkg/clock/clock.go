package clock

import (
	"fmt"
	"strings"
	"sync"
)

const (
	MinutesPerHour = 60
	HoursPerDay    = 24
)

// TimeOfDay is the coarse bucket a timestamp falls into.
type TimeOfDay string

const (
	Morning TimeOfDay = "morning" // 06:00-11:59
	Noon    TimeOfDay = "noon"    // 12:00-16:59
	Evening TimeOfDay = "evening" // 17:00-20:59
	Night   TimeOfDay = "night"   // 21:00-05:59
)

var timeOfDayNames = map[string]TimeOfDay{
	"morning":   Morning,
	"noon":      Noon,
	"afternoon": Noon,
	"evening":   Evening,
	"night":     Night,
}

// ParseTimeOfDay converts an authored bucket name into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	tod, ok := timeOfDayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown time of day %q", s)
	}
	return tod, nil
}

// ForHour classifies an hour (0-23) into its bucket.
func ForHour(hour int) TimeOfDay {
	switch {
	case hour >= 6 && hour <= 11:
		return Morning
	case hour >= 12 && hour <= 16:
		return Noon
	case hour >= 17 && hour <= 20:
		return Evening
	default:
		return Night
	}
}

// UnmarshalText lets authored YAML/JSON use any accepted bucket name.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	tod, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = tod
	return nil
}

// Timestamp is an immutable point in game time.
type Timestamp struct {
	Day    int `json:"day" yaml:"day"`
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

func (ts Timestamp) TimeOfDay() TimeOfDay {
	return ForHour(ts.Hour)
}

// TotalMinutes is the number of minutes since day 0, 00:00.
func (ts Timestamp) TotalMinutes() int {
	return (ts.Day*HoursPerDay+ts.Hour)*MinutesPerHour + ts.Minute
}

func (ts Timestamp) Before(other Timestamp) bool {
	return ts.TotalMinutes() < other.TotalMinutes()
}

func (ts Timestamp) String() string {
	return fmt.Sprintf("Day %d %02d:%02d", ts.Day, ts.Hour, ts.Minute)
}

// Valid reports whether hour and minute are in range and day is not negative.
func (ts Timestamp) Valid() bool {
	return ts.Day >= 0 &&
		ts.Hour >= 0 && ts.Hour < HoursPerDay &&
		ts.Minute >= 0 && ts.Minute < MinutesPerHour
}

// DayRolloverFunc is called once for every day boundary crossed by Advance.
type DayRolloverFunc func(day int)

// Clock owns the authoritative game timestamp.
type Clock struct {
	mu        sync.RWMutex
	now       Timestamp
	listeners []DayRolloverFunc
}

// New creates a clock starting at the given timestamp.
func New(start Timestamp) *Clock {
	return &Clock{now: start}
}

// Now returns the current timestamp.
func (c *Clock) Now() Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// TimeOfDay returns the bucket for the current timestamp.
func (c *Clock) TimeOfDay() TimeOfDay {
	return c.Now().TimeOfDay()
}

// Set replaces the current timestamp without firing rollover listeners.
// Used when restoring a saved game.
func (c *Clock) Set(ts Timestamp) {
	c.mu.Lock()
	c.now = ts
	c.mu.Unlock()
}

// OnDayRollover registers a listener for day changes.
func (c *Clock) OnDayRollover(fn DayRolloverFunc) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Advance moves the clock forward and returns how many days rolled over.
// Zero or negative amounts are ignored.
func (c *Clock) Advance(minutes int) int {
	if minutes <= 0 {
		return 0
	}

	c.mu.Lock()
	total := c.now.Minute + minutes
	c.now.Minute = total % MinutesPerHour
	hours := c.now.Hour + total/MinutesPerHour
	c.now.Hour = hours % HoursPerDay
	days := hours / HoursPerDay
	startDay := c.now.Day
	c.now.Day += days
	listeners := append([]DayRolloverFunc(nil), c.listeners...)
	c.mu.Unlock()

	// listeners run outside the lock so they may read the clock
	for d := 1; d <= days; d++ {
		for _, fn := range listeners {
			fn(startDay + d)
		}
	}
	return days
}
