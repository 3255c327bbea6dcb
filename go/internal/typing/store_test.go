package typing

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_OnTypeStartsClockOnFirstKeystroke(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	s := NewStore(clock)
	s.SetSentence("hello world")

	first := clock.Now()
	st := s.OnType("h")
	require.True(t, st.Started())
	assert.Equal(t, first, st.StartedAt)
	assert.Equal(t, 0, st.WPM)
	assert.Equal(t, 1.0, st.Accuracy)

	clock.Advance(time.Minute)
	st = s.OnType("hello world")
	assert.Equal(t, first, st.StartedAt, "start time must not move")
	assert.Equal(t, 2, st.WPM)
	assert.Equal(t, 1.0, st.Accuracy)
}

func TestStore_TypedTextCanShrink(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)
	s.SetSentence("hello")

	s.OnType("hx")
	assert.Equal(t, 0.5, s.State().Accuracy)

	st := s.OnType("h")
	assert.Equal(t, "h", st.TypedText)
	assert.Equal(t, 1.0, st.Accuracy)
}

func TestStore_SetSentenceClearsProgress(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)
	s.SetSentence("first")
	s.OnType("fi")

	s.SetSentence("second")
	st := s.State()
	assert.Equal(t, "second", st.Sentence)
	assert.Empty(t, st.TypedText)
	assert.False(t, st.Started())
	assert.Equal(t, 1.0, st.Accuracy)
	assert.Equal(t, 0, st.WPM)
}

func TestStore_ResetKeepsSentence(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)
	s.SetSentence("keep me")
	s.OnType("kee")

	s.Reset()
	st := s.State()
	assert.Equal(t, "keep me", st.Sentence)
	assert.Empty(t, st.TypedText)
	assert.False(t, st.Started())
}
