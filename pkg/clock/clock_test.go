package clock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForHour(t *testing.T) {
	tests := []struct {
		hour int
		want TimeOfDay
	}{
		{0, Night},
		{5, Night},
		{6, Morning},
		{11, Morning},
		{12, Noon},
		{16, Noon},
		{17, Evening},
		{20, Evening},
		{21, Night},
		{23, Night},
	}

	for _, tt := range tests {
		if got := ForHour(tt.hour); got != tt.want {
			t.Errorf("ForHour(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("Afternoon")
	assert.NoError(t, err)
	assert.Equal(t, Noon, tod)

	tod, err = ParseTimeOfDay(" night ")
	assert.NoError(t, err)
	assert.Equal(t, Night, tod)

	_, err = ParseTimeOfDay("brunch")
	assert.Error(t, err)
}

func TestClock_AdvanceCarries(t *testing.T) {
	c := New(Timestamp{Day: 1, Hour: 23, Minute: 50})

	days := c.Advance(15)
	assert.Equal(t, 1, days)
	assert.Equal(t, Timestamp{Day: 2, Hour: 0, Minute: 5}, c.Now())

	days = c.Advance(60 * 25)
	assert.Equal(t, 1, days)
	assert.Equal(t, Timestamp{Day: 3, Hour: 1, Minute: 5}, c.Now())
}

func TestClock_AdvanceIgnoresNonPositive(t *testing.T) {
	start := Timestamp{Day: 4, Hour: 9, Minute: 30}
	c := New(start)

	assert.Equal(t, 0, c.Advance(0))
	assert.Equal(t, 0, c.Advance(-45))
	assert.Equal(t, start, c.Now())
}

func TestClock_DayRolloverListeners(t *testing.T) {
	c := New(Timestamp{Day: 0, Hour: 22})

	var days []int
	c.OnDayRollover(func(day int) {
		days = append(days, day)
		// listeners may read the clock without deadlocking
		_ = c.Now()
	})

	c.Advance(3 * HoursPerDay * MinutesPerHour)
	assert.Equal(t, []int{1, 2, 3}, days)
}

func TestClock_TimeOfDay(t *testing.T) {
	c := New(Timestamp{Hour: 5, Minute: 59})
	assert.Equal(t, Night, c.TimeOfDay())
	c.Advance(1)
	assert.Equal(t, Morning, c.TimeOfDay())
}

func TestClock_ConcurrentAdvance(t *testing.T) {
	c := New(Timestamp{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(30)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50*30, c.Now().TotalMinutes())
}

func TestTimestamp(t *testing.T) {
	a := Timestamp{Day: 1, Hour: 8, Minute: 0}
	b := Timestamp{Day: 1, Hour: 8, Minute: 1}
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, "Day 1 08:00", a.String())
	assert.True(t, a.Valid())
	assert.False(t, Timestamp{Hour: 24}.Valid())
}
