package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from    ContentStatus
		to      ContentStatus
		allowed bool
	}{
		{StatusDiscovered, StatusFetching, true},
		{StatusDiscovered, StatusIngested, false},
		{StatusFetching, StatusFetched, true},
		{StatusFetching, StatusSkippedNoTranscript, true},
		{StatusFetching, StatusErrorFetch, true},
		{StatusFetched, StatusScoring, true},
		{StatusScoring, StatusApproved, true},
		{StatusScoring, StatusPendingReview, true},
		{StatusScoring, StatusErrorValidation, true},
		{StatusScoring, StatusIngested, false},
		{StatusApproved, StatusIngesting, true},
		// review re-admission re-fetches the transcript
		{StatusApproved, StatusFetching, true},
		{StatusIngesting, StatusIngested, true},
		{StatusIngesting, StatusErrorIngestion, true},
		{StatusPendingReview, StatusApproved, true},
		{StatusPendingReview, StatusRejected, true},
		{StatusPendingReview, StatusIngesting, false},
		// error states accept a fresh submission, nothing else
		{StatusErrorFetch, StatusDiscovered, true},
		{StatusErrorValidation, StatusDiscovered, true},
		{StatusErrorIngestion, StatusDiscovered, true},
		{StatusErrorFetch, StatusFetching, false},
		// closed states stay closed
		{StatusRejected, StatusDiscovered, false},
		{StatusSkippedNoTranscript, StatusDiscovered, false},
		{StatusIngested, StatusDiscovered, false},
	}

	for _, tt := range tests {
		got := tt.from.CanTransitionTo(tt.to)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestSameStatusIsAlwaysAllowed(t *testing.T) {
	for _, status := range []ContentStatus{
		StatusDiscovered, StatusFetching, StatusIngested, StatusRejected,
	} {
		assert.True(t, status.CanTransitionTo(status), "%s -> %s", status, status)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []ContentStatus{
		StatusIngested, StatusRejected, StatusSkippedNoTranscript,
		StatusErrorFetch, StatusErrorValidation, StatusErrorIngestion,
	}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), string(status))
	}

	active := []ContentStatus{
		StatusDiscovered, StatusFetching, StatusFetched, StatusScoring,
		StatusApproved, StatusIngesting, StatusPendingReview,
	}
	for _, status := range active {
		assert.False(t, status.IsTerminal(), string(status))
	}
}

func TestIsResubmittable(t *testing.T) {
	assert.True(t, StatusErrorFetch.IsResubmittable())
	assert.True(t, StatusErrorValidation.IsResubmittable())
	assert.True(t, StatusErrorIngestion.IsResubmittable())

	assert.False(t, StatusRejected.IsResubmittable())
	assert.False(t, StatusSkippedNoTranscript.IsResubmittable())
	assert.False(t, StatusIngested.IsResubmittable())
	assert.False(t, StatusPendingReview.IsResubmittable())
}

func TestTransition(t *testing.T) {
	item := &ContentItem{ID: "vid_a1", Status: StatusDiscovered}

	require.NoError(t, item.Transition(StatusFetching))
	assert.Equal(t, StatusFetching, item.Status)
	assert.False(t, item.LastUpdatedAt.IsZero())

	err := item.Transition(StatusIngested)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusFetching, item.Status, "failed transition must not change state")
	assert.Contains(t, err.Error(), "fetching -> ingested")
}
