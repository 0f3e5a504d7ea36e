package retry

import (
	"math"
	"math/rand/v2"
	"time"
)

// Policy describes a bounded exponential backoff with jitter. It carries no
// mutable state; every retry loop builds its own Schedule from it.
type Policy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	JitterFraction  float64
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     5,
		InitialDelay:    time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2,
		JitterFraction:  0.1,
	}
}

// Normalize replaces out-of-range fields with usable values.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	if p.MaxDelay > 0 && p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.ExponentialBase < 1 {
		p.ExponentialBase = 2
	}
	if p.JitterFraction < 0 {
		p.JitterFraction = 0
	}
	if p.JitterFraction > 1 {
		p.JitterFraction = 1
	}
	return p
}

// Delay returns the wait before the retry that follows the given zero-based
// attempt. u is a jitter sample in [0,1); 0.5 means no jitter.
//
//	delay = min(max(initial*base^attempt + jitter, initial), maxDelay)
//
// where jitter is uniform in [-fraction*initial, +fraction*initial].
func (p Policy) Delay(attempt int, u float64) time.Duration {
	p = p.Normalize()
	if attempt < 0 {
		attempt = 0
	}
	initial := float64(p.InitialDelay)
	raw := initial * math.Pow(p.ExponentialBase, float64(attempt))
	jitter := (2*u - 1) * p.JitterFraction * initial
	delay := math.Max(raw+jitter, initial)
	if p.MaxDelay > 0 {
		delay = math.Min(delay, float64(p.MaxDelay))
	}
	if math.IsInf(delay, 0) || delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// Schedule walks a Policy one attempt at a time. It satisfies the
// backoff.BackOff interface from github.com/cenkalti/backoff/v4.
type Schedule struct {
	policy  Policy
	attempt int
	rand    func() float64
}

// NewSchedule starts a fresh schedule. A nil rnd uses math/rand/v2.
func (p Policy) NewSchedule(rnd func() float64) *Schedule {
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Schedule{policy: p.Normalize(), rand: rnd}
}

// NextBackOff returns the delay for the current attempt and advances.
func (s *Schedule) NextBackOff() time.Duration {
	d := s.policy.Delay(s.attempt, s.rand())
	s.attempt++
	return d
}

// Reset rewinds the schedule to the first attempt.
func (s *Schedule) Reset() {
	s.attempt = 0
}
