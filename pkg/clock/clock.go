// Package clock implements the per-side countdown clock: main time, then a
// byoyomi window, with an increment credited when the side finishes its move.
package clock

import (
	"fmt"
	"sync"
	"time"
)

const (
	defaultTickInterval = 100 * time.Millisecond
	beepThresholdMs     = 10_000
)

// Setting configures a clock for one turn. Callbacks are invoked from the
// clock's own goroutine, never while the clock lock is held.
type Setting struct {
	TimeMs      int64 // remaining main time in milliseconds
	ByoyomiMs   int64
	IncrementMs int64

	OnBeepShort     func()
	OnBeepUnlimited func()
	OnStopBeep      func()
	OnTimeout       func()
}

// Clock counts down one side's time
type Clock struct {
	setting Setting

	timeMs    int64
	byoyomiMs int64

	lastBeepSec int64
	beeped      bool
	timedOut    bool

	lastUpdate time.Time
	isRunning  bool
	stopChan   chan struct{}

	mutex sync.Mutex

	now          func() time.Time
	tickInterval time.Duration
}

// New creates a stopped clock with no time on it.
func New() *Clock {
	return &Clock{
		now:          time.Now,
		tickInterval: defaultTickInterval,
	}
}

// Setup replaces the clock configuration. A running clock is stopped first
// without crediting the increment.
func (c *Clock) Setup(setting Setting) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		c.isRunning = false
		close(c.stopChan)
	}

	c.setting = setting
	c.timeMs = setting.TimeMs
	c.byoyomiMs = setting.ByoyomiMs
	c.lastBeepSec = 0
	c.beeped = false
	c.timedOut = false
}

// Start starts counting down
func (c *Clock) Start() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		return
	}

	c.lastUpdate = c.now()
	c.isRunning = true
	c.stopChan = make(chan struct{})

	go c.tickRoutine(c.stopChan)
}

// Stop stops the clock, credits the increment and restores the byoyomi window.
func (c *Clock) Stop() {
	c.mutex.Lock()

	if !c.isRunning {
		c.mutex.Unlock()
		return
	}

	c.updateTime()
	c.isRunning = false
	close(c.stopChan)

	if !c.timedOut {
		c.timeMs += c.setting.IncrementMs
	}
	c.byoyomiMs = c.setting.ByoyomiMs
	c.lastBeepSec = 0

	beeped := c.beeped
	c.beeped = false
	onStopBeep := c.setting.OnStopBeep
	c.mutex.Unlock()

	if beeped && onStopBeep != nil {
		onStopBeep()
	}
}

// TimeMs returns the remaining main time.
func (c *Clock) TimeMs() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	timeMs, _ := c.remaining()
	return timeMs
}

// ByoyomiMs returns the remaining byoyomi window.
func (c *Clock) ByoyomiMs() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, byoyomiMs := c.remaining()
	return byoyomiMs
}

// IsRunning reports whether the clock is counting down.
func (c *Clock) IsRunning() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isRunning
}

// remaining computes both periods as of now without mutating the clock.
func (c *Clock) remaining() (int64, int64) {
	timeMs, byoyomiMs := c.timeMs, c.byoyomiMs
	if !c.isRunning {
		return timeMs, byoyomiMs
	}
	return consume(timeMs, byoyomiMs, c.now().Sub(c.lastUpdate).Milliseconds())
}

// updateTime charges the time elapsed since the last update
func (c *Clock) updateTime() {
	now := c.now()
	c.timeMs, c.byoyomiMs = consume(c.timeMs, c.byoyomiMs, now.Sub(c.lastUpdate).Milliseconds())
	c.lastUpdate = now
}

func consume(timeMs, byoyomiMs, elapsed int64) (int64, int64) {
	if elapsed <= timeMs {
		return timeMs - elapsed, byoyomiMs
	}
	elapsed -= max(timeMs, 0)
	byoyomiMs -= elapsed
	return 0, max(byoyomiMs, 0)
}

func (c *Clock) tickRoutine(stop <-chan struct{}) {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick updates the time and fires whatever callbacks became due.
func (c *Clock) tick() {
	var callbacks []func()

	c.mutex.Lock()
	if !c.isRunning || c.timedOut {
		c.mutex.Unlock()
		return
	}

	c.updateTime()

	left := c.timeMs
	if left <= 0 {
		left = c.byoyomiMs
	}

	switch {
	case left <= 0:
		c.timedOut = true
		c.beeped = true
		callbacks = append(callbacks, c.setting.OnBeepUnlimited, c.setting.OnTimeout)
	case left <= beepThresholdMs:
		sec := (left + 999) / 1000
		if sec != c.lastBeepSec {
			c.lastBeepSec = sec
			c.beeped = true
			callbacks = append(callbacks, c.setting.OnBeepShort)
		}
	}
	c.mutex.Unlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb()
		}
	}
}

// Format formats milliseconds for display, e.g. "1:30" or "9.5" under ten seconds.
func Format(timeMs int64) string {
	if timeMs < 0 {
		timeMs = 0
	}

	totalSeconds := timeMs / 1000
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60

	if timeMs < beepThresholdMs {
		tenths := (timeMs % 1000) / 100
		return fmt.Sprintf("%d.%d", totalSeconds, tenths)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
