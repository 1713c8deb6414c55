// Package oracle defines the classification oracle contract and its adapters.
// The engine sees one single-method interface; retry, backoff, and transport
// policy for the external service live entirely inside the adapters.
package oracle

import (
	"context"
	"errors"

	"github.com/formscout/formscout/pkg/formatting"
)

// Sentinel errors for oracle operations.
var (
	// ErrUnavailable indicates the oracle could not be reached or did not
	// answer in time. The caller treats the window as unclassified.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrInvalidResponse indicates the oracle answered with a payload that
	// does not satisfy the response schema.
	ErrInvalidResponse = errors.New("invalid oracle response")
)

// RequestBlock is one block as presented to the oracle. Text is already
// truncated to the request budget.
type RequestBlock struct {
	BlockID string `json:"block_id"`
	OrderNo int    `json:"order_no"`
	Type    string `json:"type"`
	Text    string `json:"text"`
}

// KindOption is one allowed classification kind with its short description.
type KindOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Request carries exactly the blocks of one candidate window plus the closed
// kind taxonomy the oracle must choose from.
type Request struct {
	Blocks []RequestBlock `json:"blocks"`
	Kinds  []KindOption   `json:"kinds"`
}

// Verdict is the oracle's structured answer for one window. When IsTarget is
// false only Confidence and Reason are meaningful.
type Verdict struct {
	IsTarget         bool     `json:"is_target"`
	Kind             string   `json:"kind,omitempty"`
	DisplayTitle     string   `json:"display_title,omitempty"`
	StartBlockID     string   `json:"start_block_id,omitempty"`
	EndBlockID       string   `json:"end_block_id,omitempty"`
	Confidence       float64  `json:"confidence"`
	EvidenceBlockIDs []string `json:"evidence_block_ids,omitempty"`
	Reason           string   `json:"reason,omitempty"`
}

// Client is the classification oracle. Implementations must respect ctx
// cancellation and return ErrUnavailable-wrapped errors for transport
// failures and ErrInvalidResponse-wrapped errors for malformed answers.
type Client interface {
	Classify(ctx context.Context, req Request) (Verdict, error)
}

// Budget bounds the amount of text presented to the oracle, in runes.
// PerBlock caps each block's text; Total caps the sum across the window.
type Budget struct {
	PerBlock int
	Total    int
}

// Apply truncates the request's block text to the budget: each block to
// PerBlock runes, then trailing blocks to whatever remains of Total.
func (b Budget) Apply(req Request) Request {
	remaining := b.Total
	out := make([]RequestBlock, len(req.Blocks))
	for i, rb := range req.Blocks {
		if b.PerBlock > 0 {
			rb.Text = formatting.Truncate(rb.Text, b.PerBlock)
		}
		if b.Total > 0 {
			rb.Text = formatting.Truncate(rb.Text, max(remaining, 0))
			remaining -= formatting.RuneLen(rb.Text)
		}
		out[i] = rb
	}
	return Request{Blocks: out, Kinds: req.Kinds}
}
