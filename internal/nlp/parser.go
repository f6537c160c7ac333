// Package nlp turns free-text ride posts into structured drafts. Language
// understanding is an external collaborator; this package only defines the
// contract and the deterministic failover.
package nlp

import (
	"context"
	"strings"

	"github.com/example/campus-carpool/internal/models"
)

type Draft struct {
	Type           models.RideType `json:"type"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Time           string          `json:"time"`
	EstimatedPrice float64         `json:"estimated_price"`
	Description    string          `json:"description"`
}

type Parser interface {
	Parse(ctx context.Context, text string) (Draft, error)
}

// Fallback is the parser used when no collaborator is configured or it fails.
type Fallback struct{}

func (Fallback) Parse(_ context.Context, text string) (Draft, error) {
	lower := strings.ToLower(text)
	typ := models.RideRequest
	if strings.Contains(lower, "offer") || strings.Contains(lower, "driving") {
		typ = models.RideOffer
	}
	return Draft{Type: typ, From: "Unknown", To: "Unknown", Time: "Now", EstimatedPrice: 15, Description: text}, nil
}

// WithFallback returns a parser that tries p and fails over to Fallback.
func WithFallback(p Parser) Parser { return failover{primary: p} }

type failover struct{ primary Parser }

func (f failover) Parse(ctx context.Context, text string) (Draft, error) {
	if f.primary != nil {
		if d, err := f.primary.Parse(ctx, text); err == nil && d.Type.Valid() {
			return d, nil
		}
	}
	return Fallback{}.Parse(ctx, text)
}
