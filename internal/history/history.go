package history

import (
	"context"
	"time"
)

// Outcome classifies how a drive operation ended.
type Outcome string

const (
	OutcomeReached  Outcome = "reached"
	OutcomeTimedOut Outcome = "timeout"
	OutcomeFailed   Outcome = "error"
	OutcomeVanished Outcome = "vanished"
)

// Event is an audit record of one drive operation, exported to external
// systems for after-the-fact analysis.
type Event struct {
	Action     string    `json:"action"`
	Service    string    `json:"service"`
	Display    string    `json:"display"`
	Target     string    `json:"target"`
	Observed   string    `json:"observed"`
	Outcome    Outcome   `json:"outcome"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for drive audit events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
