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

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements the
// emotion analysis workflow: the single pipeline that takes an uploaded media
// asset from classification through frame extraction and model scoring to the
// final aggregated verdict.
package workflow

import (
	"time"

	"github.com/caseflow/go-media-emotion/internal/config"
	"github.com/caseflow/go-media-emotion/internal/core/commands"
	"github.com/caseflow/go-media-emotion/internal/core/cor"
)

// EmotionAnalysisWorkflow orchestrates the full analysis of one media asset.
// It is designed to be executed once per request with a fresh context, and the
// same workflow instance is safe to run concurrently: all per-run state lives
// on the context, never on the workflow or its commands.
type EmotionAnalysisWorkflow struct {
	cor.BaseCommand
	config *config.Config
	scorer commands.FrameScorer
	chain  cor.Chain // The underlying chain of commands to be executed.
}

// Execute runs the emotion analysis workflow by invoking the underlying
// command chain. This is the entry point for the workflow's execution.
//
// Inputs:
//   - context: The chain of responsibility context for this execution, which
//     carries the media asset and passes state between commands.
func (w *EmotionAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain constructs the sequence of commands that define the
// analysis pipeline. This method is called by the constructor.
func (w *EmotionAnalysisWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: Decide whether the asset is a still image or a video.
	out.AddCommand(commands.NewMediaClassifier("media-classifier"))

	// Step 2: Derive the ordered frame list, invoking the external
	// transcoder for video assets.
	out.AddCommand(commands.NewFrameExtractor("frame-extractor", w.config.Transcoder))

	// Step 3: Score every frame through the shared model behind a bounded
	// worker pool.
	out.AddCommand(commands.NewScoreFrames(
		"frame-scorer",
		w.scorer,
		w.config.Application.ThreadPoolSize,
		time.Duration(w.config.Inference.PerFrameTimeoutInSecs)*time.Second,
	))

	// Step 4: Reduce the per-frame predictions into the run verdict.
	out.AddCommand(commands.NewEmotionAggregator("emotion-aggregator"))

	w.chain = out
}

// NewEmotionAnalysisWorkflow is the constructor for the EmotionAnalysisWorkflow.
//
// Inputs:
//   - cfg: The application's overall configuration.
//   - scorer: The shared model handle used by the scoring stage.
//
// Returns:
//   - A pointer to a newly created and fully initialized EmotionAnalysisWorkflow.
func NewEmotionAnalysisWorkflow(cfg *config.Config, scorer commands.FrameScorer) *EmotionAnalysisWorkflow {
	out := &EmotionAnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("emotion-analysis-workflow"),
		config:      cfg,
		scorer:      scorer,
	}
	out.initializeChain()
	return out
}
