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
// command that fans frames out to a bounded worker pool for model scoring.
//
// Logic Flow:
//  1. The ordered frame list is loaded into a buffered jobs channel.
//  2. A fixed number of workers drain the channel, each scoring one frame at
//     a time under a per-frame timeout.
//  3. Every worker writes its prediction into a pre-sized results slice at
//     the frame's own index: no two workers ever touch the same slot, so the
//     writes need no lock and completion order never changes result order.
//  4. A frame-level failure (scorer error or timeout) NEVER fails the run:
//     the worker records a sentinel error prediction for that slot and moves
//     on. The aggregation stage decides what the failures mean.
package commands

import (
	goctx "context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

// FrameScorer is the scoring dependency of the pool: anything that can turn
// a frame on disk into an emotion vector. The inference engine satisfies it;
// tests substitute lightweight fakes.
type FrameScorer interface {
	Score(ctx goctx.Context, framePath string) ([]model.EmotionScore, error)
}

// ScoreFrames is a command that scores every extracted frame concurrently
// through a shared FrameScorer, bounded by a fixed worker count.
type ScoreFrames struct {
	cor.BaseCommand
	scorer          FrameScorer
	numberOfWorkers int
	perFrameTimeout time.Duration
}

// NewScoreFrames is the constructor for the ScoreFrames command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - scorer: The shared model handle used by every worker.
//   - numberOfWorkers: The upper bound on concurrent inference calls.
//   - perFrameTimeout: The deadline for a single frame's scoring call.
func NewScoreFrames(name string, scorer FrameScorer, numberOfWorkers int, perFrameTimeout time.Duration) *ScoreFrames {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	return &ScoreFrames{
		BaseCommand:     *cor.NewBaseCommand(name),
		scorer:          scorer,
		numberOfWorkers: numberOfWorkers,
		perFrameTimeout: perFrameTimeout,
	}
}

// Execute scores all frames on the context and outputs one prediction per
// frame, in the frames' original temporal order.
func (c *ScoreFrames) Execute(context cor.Context) {
	frames := context.Get(c.GetInputParam()).([]*model.FrameHandle)

	jobs := make(chan *model.FrameHandle, len(frames))
	results := make([]*model.FramePrediction, len(frames))

	var waitGroup sync.WaitGroup
	for w := 0; w < c.numberOfWorkers; w++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			for frame := range jobs {
				results[frame.Index] = c.scoreFrame(context.GetContext(), frame)
			}
		}()
	}

	for _, frame := range frames {
		jobs <- frame
	}
	close(jobs)
	waitGroup.Wait()

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, results)
}

// scoreFrame runs one scoring call under the per-frame deadline. The scorer
// runs in its own goroutine so a call that ignores context cancellation still
// cannot hold up the pool past the deadline.
func (c *ScoreFrames) scoreFrame(ctx goctx.Context, frame *model.FrameHandle) *model.FramePrediction {
	callCtx, cancel := goctx.WithTimeout(ctx, c.perFrameTimeout)
	defer cancel()

	type outcome struct {
		scores []model.EmotionScore
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		scores, err := c.scorer.Score(callCtx, frame.Path)
		done <- outcome{scores: scores, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			slog.Warn("frame scoring failed",
				"frame", frame.Path,
				"index", frame.Index,
				"error", result.err)
			return model.NewErrorPrediction(frame, result.err.Error())
		}
		return &model.FramePrediction{Frame: frame, Scores: result.scores, OK: true}
	case <-callCtx.Done():
		slog.Warn("frame scoring timed out",
			"frame", frame.Path,
			"index", frame.Index,
			"timeout", c.perFrameTimeout)
		return model.NewErrorPrediction(frame,
			fmt.Sprintf("scoring timed out after %s", c.perFrameTimeout))
	}
}
