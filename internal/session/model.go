package session

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ServiceType selects between the small-claims flow and the parking-appeal
// flow. It is decided once at session creation and governs payload shape,
// step count, and pricing.
type ServiceType string

const (
	ServiceClaims  ServiceType = "claims"
	ServiceParking ServiceType = "parking"
)

// Valid reports whether the service type is one of the known flows.
func (s ServiceType) Valid() bool {
	return s == ServiceClaims || s == ServiceParking
}

// MaxSteps returns the number of intake steps for the flow.
func (s ServiceType) MaxSteps() int {
	switch s {
	case ServiceParking:
		return 6
	default:
		return 8
	}
}

// Status tracks the session lifecycle. Transitions are monotonic:
// draft -> pending_payment -> paid, never backward.
type Status string

const (
	StatusDraft          Status = "draft"
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
)

func (s Status) rank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusPendingPayment:
		return 1
	case StatusPaid:
		return 2
	default:
		return -1
	}
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	return s.rank() >= 0
}

// CanTransitionTo reports whether moving from s to next respects the
// monotonic lifecycle. A same-state write is allowed (idempotent saves).
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

// Role identifies the author of a message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in the intake transcript.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the persisted state of one intake conversation.
type Session struct {
	ID          uuid.UUID       `json:"id"`
	Phone       string          `json:"phone"`
	ServiceType ServiceType     `json:"service_type"`
	Messages    []Message       `json:"messages"`
	ClaimData   json.RawMessage `json:"claim_data,omitempty"`
	CurrentStep int             `json:"current_step"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasClaimData reports whether a terminal payload has been extracted.
func (s *Session) HasClaimData() bool {
	return len(s.ClaimData) > 0
}
