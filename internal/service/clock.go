package service

import "time"

// Clock reports the current time. Setup uses it to measure run duration.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// StepClock advances by Step on every call, starting at Start.
type StepClock struct {
	Start time.Time
	Step  time.Duration
	calls int
}

// Now returns Start plus Step for each previous call.
func (c *StepClock) Now() time.Time {
	t := c.Start.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}
