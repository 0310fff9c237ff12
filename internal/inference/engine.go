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

// Package inference hosts the classification model session. This file defines
// the Engine, the single process-wide handle to the ONNX emotion model.
//
// Logic Flow:
// Session construction is expensive, so the Engine builds it lazily on the
// first Score call and reuses it for the lifetime of the process. The session
// is explicit shared, read-only state: all concurrent callers use the same
// handle. Because the ONNX runtime's thread-safety guarantees vary by build,
// the engine can serialize inference calls behind a mutex (the default,
// controlled by configuration); with serialization off, calls run the session
// concurrently. Either way the behavior is covered by the concurrent-load
// tests in the scorer package.
//
// Each Score call:
//  1. Waits on the optional rate limiter.
//  2. Preprocesses the frame into the model's [1,1,N,N] tensor.
//  3. Runs the session and reads the 8-value output vector.
//  4. Zips the outputs positionally against the fixed label order, scales by
//     100, rounds to 2 decimals, and sorts descending by confidence.
package inference

import (
	"context"
	"math"
	"os"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/time/rate"

	"github.com/caseflow/go-media-emotion/internal/config"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

// Engine is the process-wide inference handle. Construct it once at startup
// with NewEngine and inject it wherever frames are scored.
type Engine struct {
	cfg config.Inference

	initOnce sync.Once
	initErr  error
	session  *ort.DynamicAdvancedSession

	// runMu serializes session.Run when cfg.Serialize is set.
	runMu sync.Mutex

	// limiter bounds the global inference rate when configured, the same way
	// the rest of the system wraps quota-limited backends.
	limiter *rate.Limiter
}

// NewEngine creates an Engine for the given inference configuration. The
// model session is not constructed until the first Score call.
func NewEngine(cfg config.Inference) *Engine {
	e := &Engine{cfg: cfg}
	if cfg.MaxScoresPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.MaxScoresPerSecond), cfg.MaxScoresPerSecond)
	}
	return e
}

// init constructs the shared session exactly once. A missing model artifact
// is detected here so the failure is reported cleanly instead of surfacing as
// an opaque runtime error.
func (e *Engine) init() error {
	e.initOnce.Do(func() {
		if _, err := os.Stat(e.cfg.ModelPath); err != nil {
			e.initErr = model.NewInferenceError("", "model artifact not found", err)
			return
		}
		if e.cfg.RuntimeLibraryPath != "" {
			ort.SetSharedLibraryPath(e.cfg.RuntimeLibraryPath)
		}
		if !ort.IsInitialized() {
			if err := ort.InitializeEnvironment(); err != nil {
				e.initErr = model.NewInferenceError("", "onnx runtime initialization failed", err)
				return
			}
		}
		session, err := ort.NewDynamicAdvancedSession(
			e.cfg.ModelPath,
			[]string{e.cfg.InputName},
			[]string{e.cfg.OutputName},
			nil,
		)
		if err != nil {
			e.initErr = model.NewInferenceError("", "model session construction failed", err)
			return
		}
		e.session = session
	})
	return e.initErr
}

// Score runs the model over a single frame and returns the full emotion
// vector sorted descending by confidence. Failures are always reported as
// *model.InferenceError.
func (e *Engine) Score(ctx context.Context, framePath string) ([]model.EmotionScore, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, model.NewInferenceError(framePath, "rate limiter interrupted", err)
		}
	}
	if err := e.init(); err != nil {
		return nil, err
	}

	data, err := Preprocess(framePath, e.cfg.InputSize)
	if err != nil {
		return nil, model.NewInferenceError(framePath, "preprocessing failed", err)
	}

	n := int64(e.cfg.InputSize)
	input, err := ort.NewTensor(ort.NewShape(1, 1, n, n), data)
	if err != nil {
		return nil, model.NewInferenceError(framePath, "input tensor construction failed", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(model.EmotionLabels))))
	if err != nil {
		return nil, model.NewInferenceError(framePath, "output tensor construction failed", err)
	}
	defer output.Destroy()

	if e.cfg.Serialize {
		e.runMu.Lock()
		err = e.session.Run([]ort.Value{input}, []ort.Value{output})
		e.runMu.Unlock()
	} else {
		err = e.session.Run([]ort.Value{input}, []ort.Value{output})
	}
	if err != nil {
		return nil, model.NewInferenceError(framePath, "model execution failed", err)
	}

	return scoresFromOutput(output.GetData()), nil
}

// scoresFromOutput zips the raw model outputs against the fixed label order.
// The label-to-index binding is fixed by training and must not be reordered.
// Raw scores are independent per-label confidences, not a probability simplex,
// so no re-normalization happens here.
func scoresFromOutput(raw []float32) []model.EmotionScore {
	scores := make([]model.EmotionScore, 0, len(model.EmotionLabels))
	for i, label := range model.EmotionLabels {
		confidence := 0.0
		if i < len(raw) {
			confidence = math.Round(float64(raw[i])*100*100) / 100
		}
		scores = append(scores, model.EmotionScore{Label: label, Confidence: confidence})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})
	return scores
}

// Shutdown releases the model session. Safe to call when the session was
// never constructed.
func (e *Engine) Shutdown() {
	if e.session != nil {
		_ = e.session.Destroy()
		e.session = nil
	}
}
