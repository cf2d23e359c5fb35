package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxRescanSpan caps how many slots a single rescan request may cover,
// matching the getBlocks range limit of public Solana RPC endpoints.
const MaxRescanSpan = 500_000

// RescanRequest is an operator-submitted slot range to re-verify. Requests
// travel through Redis as JSON and end up on the interval queue, where the
// normal worker drop policy applies.
type RescanRequest struct {
	ID          string `json:"id"`
	Start       uint64 `json:"start"`
	End         uint64 `json:"end"`
	SubmittedAt int64  `json:"submitted_at"`
}

// NewRescanRequest creates a request for [start, end] with a fresh job id.
func NewRescanRequest(start, end uint64) RescanRequest {
	return RescanRequest{
		ID:          uuid.New().String(),
		Start:       start,
		End:         end,
		SubmittedAt: time.Now().Unix(),
	}
}

// Validate checks the range is well-formed and within the span cap.
func (r RescanRequest) Validate() error {
	if r.End < r.Start {
		return fmt.Errorf("start > end: %d > %d", r.Start, r.End)
	}
	if span := r.End - r.Start + 1; span > MaxRescanSpan {
		return fmt.Errorf("span %d exceeds maximum %d", span, MaxRescanSpan)
	}
	return nil
}
