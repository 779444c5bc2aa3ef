package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to DocStatus
		want     bool
	}{
		{StatusQueued, StatusInProgress, true},
		{StatusInProgress, StatusExtracted, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusStopped, true},
		{StatusExtracted, StatusCompleted, true},
		{StatusExtracted, StatusFailed, true},
		{StatusExtracted, StatusStopped, true},
		{StatusFailed, StatusQueued, true},
		{StatusStopped, StatusQueued, true},

		{StatusQueued, StatusCompleted, false},
		{StatusQueued, StatusExtracted, false},
		{StatusCompleted, StatusQueued, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusExtracted, StatusInProgress, false},
		{StatusInProgress, StatusQueued, false},
		{StatusInProgress, StatusInProgress, false},
		{StatusFailed, StatusInProgress, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusStopped.IsTerminal())
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.False(t, StatusExtracted.IsTerminal())
}

func TestTerminalStatesHaveNoExitExceptRetry(t *testing.T) {
	for _, st := range []DocStatus{StatusCompleted, StatusFailed, StatusStopped} {
		for _, to := range []DocStatus{StatusInProgress, StatusExtracted, StatusCompleted, StatusFailed, StatusStopped} {
			assert.False(t, st.CanTransition(to), "%s -> %s must be illegal", st, to)
		}
	}
	assert.False(t, StatusCompleted.CanTransition(StatusQueued), "completed documents are not retryable")
}

func TestProgressMarksAreMonotonic(t *testing.T) {
	marks := []int{
		ProgressMetadataStart,
		ProgressMetadataDone,
		ProgressRouted,
		ProgressExtractStart,
		ProgressExtractDone,
		ProgressFinalizing,
		ProgressDone,
	}
	for i := 1; i < len(marks); i++ {
		assert.Greater(t, marks[i], marks[i-1])
	}
	assert.Equal(t, 100, ProgressDone)
}
