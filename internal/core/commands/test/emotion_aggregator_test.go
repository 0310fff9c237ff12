// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands_test verifies the pipeline commands. This file covers the
// aggregation stage: averaging, risk scoring, the status laws, and the
// exclusion of sentinel predictions.
package commands_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/go-media-emotion/internal/core/commands"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

// prediction builds an OK frame prediction with the given confidences for
// anger and fear; every other label gets 10.
func prediction(index int, anger, fear float64) *model.FramePrediction {
	frame := &model.FrameHandle{Index: index, Path: "frame"}
	scores := make([]model.EmotionScore, 0, len(model.EmotionLabels))
	for _, label := range model.EmotionLabels {
		confidence := 10.0
		switch label {
		case "anger":
			confidence = anger
		case "fear":
			confidence = fear
		}
		scores = append(scores, model.EmotionScore{Label: label, Confidence: confidence})
	}
	return &model.FramePrediction{
		Frame:  frame,
		Scores: scores,
		OK:     true,
	}
}

func failedPrediction(index int) *model.FramePrediction {
	return model.NewErrorPrediction(&model.FrameHandle{Index: index, Path: "frame"}, "simulated")
}

func TestAggregateAveragesAndRisk(t *testing.T) {
	result := commands.Aggregate([]*model.FramePrediction{
		prediction(0, 40, 20),
		prediction(1, 60, 40),
	})

	assert.Equal(t, model.StatusSuccess, result.Status)
	assert.InDelta(t, 50.0, result.PerEmotionAverage["anger"], 1e-9)
	assert.InDelta(t, 30.0, result.PerEmotionAverage["fear"], 1e-9)
	// risk = (50 + 30) / 2
	assert.InDelta(t, 40.0, result.RiskScore, 1e-9)
	// Every known label has an average.
	assert.Len(t, result.PerEmotionAverage, len(model.EmotionLabels))
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	a := prediction(0, 40, 20)
	b := prediction(1, 60, 40)
	c := failedPrediction(2)

	forward := commands.Aggregate([]*model.FramePrediction{a, b, c})
	reversed := commands.Aggregate([]*model.FramePrediction{c, b, a})

	assert.Equal(t, forward.Status, reversed.Status)
	assert.Equal(t, forward.RiskScore, reversed.RiskScore)
	assert.Equal(t, forward.PerEmotionAverage, reversed.PerEmotionAverage)
}

func TestAggregateClampsRiskScore(t *testing.T) {
	// Saturated anger and fear would average above the cap without clamping.
	result := commands.Aggregate([]*model.FramePrediction{
		prediction(0, 150, 150),
	})
	assert.Equal(t, commands.MaxRiskScore, result.RiskScore)
}

func TestAggregateExcludesSentinelsFromAverages(t *testing.T) {
	result := commands.Aggregate([]*model.FramePrediction{
		prediction(0, 80, 40),
		failedPrediction(1),
	})

	// The failed frame must not dilute the averages.
	assert.Equal(t, model.StatusPartialSuccess, result.Status)
	assert.InDelta(t, 80.0, result.PerEmotionAverage["anger"], 1e-9)
	assert.InDelta(t, 40.0, result.PerEmotionAverage["fear"], 1e-9)
	assert.NotContains(t, result.PerEmotionAverage, model.ErrorLabel)
}

func TestAggregateStatusLaws(t *testing.T) {
	allOK := commands.Aggregate([]*model.FramePrediction{prediction(0, 1, 1), prediction(1, 1, 1)})
	assert.Equal(t, model.StatusSuccess, allOK.Status)

	mixed := commands.Aggregate([]*model.FramePrediction{prediction(0, 1, 1), failedPrediction(1)})
	assert.Equal(t, model.StatusPartialSuccess, mixed.Status)

	allFailed := commands.Aggregate([]*model.FramePrediction{failedPrediction(0), failedPrediction(1)})
	assert.Equal(t, model.StatusTotalFailure, allFailed.Status)
	assert.Equal(t, 0.0, allFailed.RiskScore)

	empty := commands.Aggregate(nil)
	assert.Equal(t, model.StatusTotalFailure, empty.Status)
}

func TestAggregateAlwaysReturnsResult(t *testing.T) {
	require.NotNil(t, commands.Aggregate(nil))
	require.NotNil(t, commands.Aggregate([]*model.FramePrediction{failedPrediction(0)}))
}
