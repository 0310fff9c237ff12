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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// final stage: reducing per-frame predictions into a single run verdict.
//
// Aggregation is a pure, order-independent reduction. Sentinel error
// predictions contribute nothing to any average; only genuinely scored frames
// move the numbers. The overall status follows from the failure count alone:
// every frame failed means the run failed, a mix means partial success, and
// zero failures means success.
package commands

import (
	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

// MaxRiskScore caps the composite risk score.
const MaxRiskScore = 100.0

// Aggregate reduces per-frame predictions into the run-level result. The
// input order never affects any output value.
func Aggregate(predictions []*model.FramePrediction) *model.AnalysisResult {
	sums := make(map[string]float64, len(model.EmotionLabels))
	failures := 0
	scored := 0

	for _, prediction := range predictions {
		if !prediction.OK {
			failures++
			continue
		}
		scored++
		for _, score := range prediction.Scores {
			sums[score.Label] += score.Confidence
		}
	}

	// Every known label gets an entry even when nothing was scored, so the
	// rendered result always carries the full emotion vector.
	averages := make(map[string]float64, len(model.EmotionLabels))
	for _, label := range model.EmotionLabels {
		if scored > 0 {
			averages[label] = sums[label] / float64(scored)
		} else {
			averages[label] = 0
		}
	}

	risk := (averages["anger"] + averages["fear"]) / 2
	if risk > MaxRiskScore {
		risk = MaxRiskScore
	}

	status := model.StatusSuccess
	switch {
	case len(predictions) == 0 || failures == len(predictions):
		status = model.StatusTotalFailure
	case failures > 0:
		status = model.StatusPartialSuccess
	}

	return &model.AnalysisResult{
		PerFrame:          predictions,
		PerEmotionAverage: averages,
		RiskScore:         risk,
		Status:            status,
	}
}

// EmotionAggregator is the command wrapper around Aggregate.
type EmotionAggregator struct {
	cor.BaseCommand
}

// NewEmotionAggregator is the constructor for the EmotionAggregator command.
func NewEmotionAggregator(name string) *EmotionAggregator {
	return &EmotionAggregator{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute reduces the frame predictions on the context into the final
// analysis result.
func (c *EmotionAggregator) Execute(context cor.Context) {
	predictions := context.Get(c.GetInputParam()).([]*model.FramePrediction)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, Aggregate(predictions))
}
