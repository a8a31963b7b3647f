// Package api
// Author: momentics <momentics@gmail.com>
//
// Pluggable event-notification engine contract. The toolkit does not own an
// engine's readiness bookkeeping; it only initiates creation and descriptor
// registration and classifies the failures those two operations raise.

package api

// EventerConfig carries engine-interpreted initialization data.
type EventerConfig struct {
	// MaxEvents bounds how many ready events one engine wait may deliver.
	// Engines pick their own default when zero.
	MaxEvents int
}

// Eventer is an event-notification engine generic over its callback shape.
// CB is the value the engine hands back when the registered descriptor
// becomes ready; its type is entirely the engine's business.
type Eventer[CB any] interface {
	// Init prepares the engine's notification mechanism.
	Init(cfg EventerConfig) error

	// Add registers fd for the given interests, attaching cb. Interests may
	// be combined with bitwise or.
	Add(fd int, interest Interest, cb CB) error
}
