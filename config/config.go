// Package config implements the configuration contract from spec.md §6: the
// runtime accepts worker count, per-tier polling parameters, throughput
// quantum, heartbeat interval, and mailbox backend choice. Layering
// defaults < file < command-line is an external responsibility; this
// package only defines the accepted shape and its defaults.
package config

import (
	"runtime"
	"time"
)

// MailboxBackend selects which teacher-derived mailbox implementation backs
// an actor's queues.
type MailboxBackend int

const (
	// RingBuffer uses Workiva/go-datastructures' pre-allocated ring buffer,
	// one per priority band. This is the default.
	RingBuffer MailboxBackend = iota
	// MPSC uses t3rm1n4l/go-mpscqueue's lock-free linked-list queue instead,
	// trading pre-allocation for unbounded growth.
	MPSC
)

// PollTier describes one tier of the scheduler's steal-attempt ladder (§4.4):
// a worker makes Attempts steal attempts, sleeping Sleep between each, before
// falling through to the next tier.
type PollTier struct {
	Attempts int
	Sleep    time.Duration
}

// Config is the runtime's accepted configuration surface.
type Config struct {
	// Workers is the fixed worker-pool size. Defaults to runtime.NumCPU().
	Workers int

	// Aggressive, Moderate, and Relaxed are the three steal-attempt tiers
	// a worker falls through before parking (§4.4).
	Aggressive PollTier
	Moderate   PollTier
	Relaxed    PollTier

	// MaxThroughput bounds how many envelopes a worker processes for one
	// actor per quantum before re-queuing it (§4.4). Zero means unbounded.
	MaxThroughput int

	// HeartbeatInterval is carried as part of the configuration surface;
	// no part of the runtime reads it, so no heartbeat or stuck-worker
	// probe runs.
	HeartbeatInterval time.Duration

	// MailboxBackend picks which queue implementation backs new mailboxes.
	MailboxBackend MailboxBackend

	// MailboxCapacity is the per-band capacity hint for bounded backends.
	MailboxCapacity int
}

// Default returns the runtime's default configuration.
func Default() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Aggressive: PollTier{
			Attempts: 200,
			Sleep:    0,
		},
		Moderate: PollTier{
			Attempts: 50,
			Sleep:    time.Microsecond * 50,
		},
		Relaxed: PollTier{
			Attempts: 10,
			Sleep:    time.Millisecond,
		},
		MaxThroughput:     0,
		HeartbeatInterval: time.Second,
		MailboxBackend:    RingBuffer,
		MailboxCapacity:   100,
	}
}

// WithWorkers returns a copy of c with Workers set to n.
func (c Config) WithWorkers(n int) Config {
	c.Workers = n
	return c
}

// WithMailboxBackend returns a copy of c with MailboxBackend set to b.
func (c Config) WithMailboxBackend(b MailboxBackend) Config {
	c.MailboxBackend = b
	return c
}

// WithMaxThroughput returns a copy of c with MaxThroughput set to n.
func (c Config) WithMaxThroughput(n int) Config {
	c.MaxThroughput = n
	return c
}
