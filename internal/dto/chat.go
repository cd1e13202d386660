package dto

import "time"

// AcknowledgeRequest carries the recipient's acknowledgment. Decision is
// required only when the message wraps a swap request.
type AcknowledgeRequest struct {
	Decision string `json:"decision,omitempty"`
}

// SideEffectOutcome reports one best-effort side channel of a primary
// operation. A failed side effect never fails the primary outcome.
type SideEffectOutcome struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// AcknowledgeResult separates the primary acknowledgment outcome from its
// side-effect outcomes.
type AcknowledgeResult struct {
	MessageID      string              `json:"messageId"`
	AcknowledgedBy string              `json:"acknowledgedBy"`
	AcknowledgedAt time.Time           `json:"acknowledgedAt"`
	SwapDecision   *SwapDecisionResult `json:"swapDecision,omitempty"`
	SideEffects    []SideEffectOutcome `json:"sideEffects,omitempty"`
}
