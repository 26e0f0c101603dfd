package config

import "time"

// PolicyConfig holds the booking engine rules that are deployment
// choices rather than code.
//
//	SCHEDULE_HALL_SCOPED   only showtimes in the same hall can conflict (default true)
//	SCHEDULE_BUFFER        turnover padding around existing showtimes (default 20m)
//	CANCEL_LOCKOUT         no cancellation this close to the start (default 30m)
//	MAX_SEATS_PER_BOOKING  upper bound on one booking, 0 means unlimited
type PolicyConfig struct {
	HallScoped         bool
	ScheduleBuffer     time.Duration
	CancelLockout      time.Duration
	MaxSeatsPerBooking int
}

// LoadPolicyConfig reads the engine rules from the environment.
func LoadPolicyConfig() PolicyConfig {
	cfg := PolicyConfig{
		HallScoped:         envBool("SCHEDULE_HALL_SCOPED", true),
		ScheduleBuffer:     envDur("SCHEDULE_BUFFER", 20*time.Minute),
		CancelLockout:      envDur("CANCEL_LOCKOUT", 30*time.Minute),
		MaxSeatsPerBooking: envInt("MAX_SEATS_PER_BOOKING", 0),
	}
	if cfg.ScheduleBuffer < 0 {
		cfg.ScheduleBuffer = 0
	}
	if cfg.CancelLockout < 0 {
		cfg.CancelLockout = 0
	}
	if cfg.MaxSeatsPerBooking < 0 {
		cfg.MaxSeatsPerBooking = 0
	}
	return cfg
}
