package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundConversion(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := &models.Round{
		ID:        uuid.New(),
		Sentence:  "the quick brown fox",
		StartTime: start,
		Duration:  60 * time.Second,
		Status:    models.RoundStatusActive,
	}

	wire := RoundFromModel(in)
	assert.Equal(t, 60, wire.Duration)
	assert.Equal(t, "active", wire.Status)

	out, err := wire.ToModel()
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Duration, out.Duration)
	assert.True(t, in.StartTime.Equal(out.StartTime))
}

func TestRoundToModelRejectsBadID(t *testing.T) {
	_, err := (&Round{ID: "nope"}).ToModel()
	require.Error(t, err)

	var nilRound *Round
	_, err = nilRound.ToModel()
	require.Error(t, err)
}

func TestCodecUsesCamelCase(t *testing.T) {
	data, err := Codec{}.Marshal(&SaveProgressRequest{RoundID: "r", PlayerID: "p", ProgressText: "the", WPM: 42, Accuracy: 0.9})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Contains(t, fields, "roundId")
	assert.Contains(t, fields, "progressText")
	assert.Contains(t, fields, "wpm")
}

func TestCodecEmptyBody(t *testing.T) {
	var req GetActiveRoundRequest
	require.NoError(t, Codec{}.Unmarshal(nil, &req))
}

func TestSaveProgressResponseOmitsMissingParticipation(t *testing.T) {
	data, err := Codec{}.Marshal(&SaveProgressResponse{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}
