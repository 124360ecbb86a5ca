package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatchState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    BatchState
		terminal bool
	}{
		{BatchStateValidating, false},
		{BatchStateRendering, false},
		{BatchStatePackaging, false},
		{BatchStateDeliveryDraining, false},
		{BatchStateDone, true},
		{BatchStateFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.True(t, tt.state.IsValid())
			assert.Equal(t, tt.terminal, tt.state.IsTerminal())
		})
	}

	assert.False(t, BatchState("paused").IsValid())
}

func TestBatchProgress_Fraction(t *testing.T) {
	assert.Equal(t, 0.0, BatchProgress{State: BatchStateRendering}.Fraction())
	assert.Equal(t, 1.0, BatchProgress{State: BatchStateDone}.Fraction())
	assert.Equal(t, 0.5, BatchProgress{Rendered: 1, Failed: 1, Total: 4}.Fraction())
}

func TestBatchRun_Duration(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &BatchRun{StartedAt: start}
	assert.Zero(t, run.Duration())

	run.FinishedAt = start.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, run.Duration())
}

func TestRect_Union(t *testing.T) {
	a := Rect{X0: 10, Y0: 700, X1: 50, Y1: 710}
	b := Rect{X0: 5, Y0: 688, X1: 40, Y1: 698}

	u := a.Union(b)

	assert.Equal(t, Rect{X0: 5, Y0: 688, X1: 50, Y1: 710}, u)
	assert.Equal(t, 45.0, u.Width())
	assert.Equal(t, 22.0, u.Height())
}
