package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_AdvanceAndSince(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	assert.Equal(t, start, c.Now())

	c.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), c.Now())
	assert.Equal(t, 1500*time.Millisecond, c.Since(start))

	later := start.Add(time.Hour)
	c.SetTime(later)
	assert.Equal(t, later, c.Now())
}

func TestRealClock_Monotonic(t *testing.T) {
	c := NewRealClock()
	a := c.Now()
	b := c.Now()
	assert.False(t, b.Before(a))
	assert.GreaterOrEqual(t, c.Since(a), time.Duration(0))
}
