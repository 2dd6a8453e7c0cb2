package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthyBeforeFirstPing(t *testing.T) {
	s := New(Monitors{"postgres": func(ctx context.Context) error { return nil }})
	// no round has run yet, nothing is known to be down
	assert.True(t, s.Healthy())
	assert.Empty(t, s.Snapshot())
}

func TestPingRounds(t *testing.T) {
	ctx := context.Background()
	dbUp := true
	s := New(Monitors{
		"postgres": func(ctx context.Context) error {
			if !dbUp {
				return errors.New("connection refused")
			}
			return nil
		},
		"cache": func(ctx context.Context) error { return nil },
	})

	s.ping(ctx)
	assert.True(t, s.Healthy())
	assert.Equal(t, map[string]bool{"postgres": true, "cache": true}, s.Snapshot())

	dbUp = false
	s.ping(ctx)
	assert.False(t, s.Healthy())
	assert.Equal(t, map[string]bool{"postgres": false, "cache": true}, s.Snapshot())

	dbUp = true
	s.ping(ctx)
	assert.True(t, s.Healthy())
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	s := New(Monitors{"postgres": func(ctx context.Context) error { return nil }})
	s.ping(ctx)

	snap := s.Snapshot()
	snap["postgres"] = false
	assert.True(t, s.Healthy())
}
