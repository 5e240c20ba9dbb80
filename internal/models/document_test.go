package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageTransitions(t *testing.T) {
	tests := []struct {
		from, to Stage
		allowed  bool
	}{
		{StageReceived, StageSplit, true},
		{StageReceived, StageSplitFailed, true},
		{StageReceived, StageExtracted, false},
		{StageSplit, StageExtracted, true},
		{StageSplit, StageExtractFailed, true},
		{StageSplit, StageCleaned, false},
		{StageExtracted, StageCleaned, true},
		{StageCleaned, StageDone, true},
		{StageDone, StageReceived, false},
		{StageSplitFailed, StageSplit, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStageTerminal(t *testing.T) {
	assert.True(t, StageDone.IsTerminal())
	assert.True(t, StageSplitFailed.IsTerminal())
	assert.True(t, StageExtractFailed.IsFailed())
	assert.False(t, StageCleaned.IsTerminal())
	assert.False(t, StageReceived.IsFailed())
}
