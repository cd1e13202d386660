package dto

import "time"

// SwapDecisionRequest carries an approve/decline decision for a pending
// swap request.
type SwapDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVED DECLINED"`
}

// SwapDecisionResult reports the applied decision.
type SwapDecisionResult struct {
	SwapRequestID string              `json:"swapRequestId"`
	Status        string              `json:"status"`
	DecidedAt     time.Time           `json:"decidedAt"`
	SideEffects   []SideEffectOutcome `json:"sideEffects,omitempty"`
}
