package typist

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RoundTrip(t *testing.T) {
	s := newStack(t)
	client, _ := s.signedIn(t)
	ctx := context.Background()

	p, err := client.FindOrCreatePlayer(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][a-z]+$`, p.Name)

	same, err := client.FindOrCreatePlayer(ctx)
	require.NoError(t, err)
	assert.Equal(t, p.ID, same.ID)

	r, err := client.GetActiveRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoundStatusActive, r.Status)

	joined, err := client.JoinRound(ctx, r.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, joined.RoundID)
	assert.Equal(t, 1.0, joined.Accuracy)

	saved, err := client.SaveProgress(ctx, models.ProgressUpdate{
		RoundID: r.ID, PlayerID: p.ID, ProgressText: "abc", WPM: 42, Accuracy: 1,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "abc", saved.ProgressText)

	stats, err := client.GetPlayerStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.RoundsPlayed)

	require.NoError(t, client.EndRound(ctx, r.ID))
	require.NoError(t, client.EndRound(ctx, r.ID))

	stats, err = client.GetPlayerStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RoundsPlayed)
	assert.Equal(t, 42.0, stats.AvgWPM)
}

func TestClient_RequiresIdentity(t *testing.T) {
	s := newStack(t)
	client := NewClient(s.server.Client(), s.server.URL, func() string { return "" })

	_, err := client.FindOrCreatePlayer(context.Background())
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
