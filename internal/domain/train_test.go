package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrainUndoLifecycle(t *testing.T) {
	tr := &Train{State: TrainPlanned}
	assert.False(t, tr.CanUndo())

	tr.RecordPreviousState()
	tr.State = TrainManned

	assert.True(t, tr.CanUndo())

	tr.ClearPreviousState()
	assert.False(t, tr.CanUndo())
}

func TestTrainCanUndoOnlyForSpecificStates(t *testing.T) {
	prev := TrainPlanned
	tr := &Train{State: TrainRunning, PreviousState: &prev}
	assert.False(t, tr.CanUndo(), "Running is not one of the undo-eligible states")

	tr.State = TrainCanceled
	assert.True(t, tr.CanUndo())
}

func TestTrainStateIsTerminal(t *testing.T) {
	assert.True(t, TrainCanceled.IsTerminal())
	assert.True(t, TrainAborted.IsTerminal())
	assert.True(t, TrainCompleted.IsTerminal())
	assert.False(t, TrainRunning.IsTerminal())
	assert.False(t, TrainPlanned.IsTerminal())
}

func TestParseTrainState(t *testing.T) {
	s, ok := ParseTrainState("Completed")
	assert.True(t, ok)
	assert.Equal(t, TrainCompleted, s)

	_, ok = ParseTrainState("bogus")
	assert.False(t, ok)
}
