package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-carpool/internal/models"
)

func TestFallback_InfersType(t *testing.T) {
	ctx := context.Background()
	d, err := Fallback{}.Parse(ctx, "Driving to Dallas at 5pm, 2 seats")
	require.NoError(t, err)
	assert.Equal(t, models.RideOffer, d.Type)
	assert.Equal(t, "Unknown", d.From)
	assert.Equal(t, "Now", d.Time)
	assert.Equal(t, 15.0, d.EstimatedPrice)

	d, _ = Fallback{}.Parse(ctx, "need a ride to UNT")
	assert.Equal(t, models.RideRequest, d.Type)
	assert.Equal(t, "need a ride to UNT", d.Description)
}

type parserFunc func(ctx context.Context, text string) (Draft, error)

func (f parserFunc) Parse(ctx context.Context, text string) (Draft, error) { return f(ctx, text) }

func TestWithFallback(t *testing.T) {
	ctx := context.Background()
	ok := parserFunc(func(context.Context, string) (Draft, error) {
		return Draft{Type: models.RideOffer, From: "UTA", To: "UTD", Time: "9:00 AM"}, nil
	})
	d, err := WithFallback(ok).Parse(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "UTA", d.From)

	broken := parserFunc(func(context.Context, string) (Draft, error) { return Draft{}, errors.New("quota") })
	d, err = WithFallback(broken).Parse(ctx, "offer")
	require.NoError(t, err)
	assert.Equal(t, "Unknown", d.From)
	assert.Equal(t, models.RideOffer, d.Type)

	d, err = WithFallback(nil).Parse(ctx, "help")
	require.NoError(t, err)
	assert.Equal(t, models.RideRequest, d.Type)
}
