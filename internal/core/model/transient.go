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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains the struct definitions for data models
// that only live for the duration of a single analysis run. These objects are
// considered "transient" because they are never persisted: they are created
// when an upload reaches the pipeline, flow through the chain of commands as
// intermediate containers, and are discarded once the response is rendered.
package model

import "fmt"

// MediaKind distinguishes the two classes of input the pipeline understands.
type MediaKind int

const (
	// KindImage is a single still image; the asset itself is the only frame.
	KindImage MediaKind = iota
	// KindVideo is a moving picture that must be sampled into still frames
	// by the external transcoder before inference.
	KindVideo
)

// String returns a human-readable name for the media kind, used in logs and spans.
func (k MediaKind) String() string {
	if k == KindVideo {
		return "video"
	}
	return "image"
}

// EmotionLabels is the fixed, ordered label set of the classification model.
// The position of each label is bound to the model's output vector by training
// and must never be reordered.
var EmotionLabels = [8]string{
	"neutral",
	"happiness",
	"surprise",
	"sadness",
	"anger",
	"disgust",
	"fear",
	"contempt",
}

// ErrorLabel is the sentinel label attached to a failed frame's single score
// entry. It is deliberately not a member of EmotionLabels; downstream code
// that folds scores into per-emotion statistics must special-case it.
const ErrorLabel = "Error"

// MediaAsset represents one uploaded file handed to the pipeline by the HTTP
// layer. The pipeline owns the file for the duration of the run and the
// run's context is responsible for deleting it when the run concludes.
type MediaAsset struct {
	Path string    // Absolute filesystem path of the uploaded file.
	Name string    // The original client-supplied filename, used only for reporting.
	Kind MediaKind // Image or Video, decided by the media classifier.
}

// FrameHandle identifies a single still frame derived from a MediaAsset.
// For an image asset exactly one handle exists and its Path equals the asset
// path. For a video asset the handles point into a run-scoped scratch
// directory and Index preserves the temporal order of the sampled frames.
type FrameHandle struct {
	Source *MediaAsset // The asset this frame was derived from.
	Index  int         // 0-based, contiguous, extraction order.
	Path   string      // Filesystem path of the still image.
}

// EmotionScore is a single (label, confidence) pair. Confidence is expressed
// on a 0-100 scale and scores across labels are independent confidences, not
// a probability distribution, so they do not need to sum to 100.
type EmotionScore struct {
	Label      string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// FramePrediction holds the outcome of scoring one frame. When OK is false
// the frame failed (unreadable file, model error, timeout) and Scores holds
// the single sentinel entry rather than an empty slice, which keeps the shape
// uniform for response rendering.
type FramePrediction struct {
	Frame  *FrameHandle
	Scores []EmotionScore
	OK     bool
	Reason string // Short failure description when OK is false; empty otherwise.
}

// NewErrorPrediction builds the sentinel prediction recorded for a frame
// whose inference failed. The batch as a whole continues; only this slot is
// degraded.
func NewErrorPrediction(frame *FrameHandle, reason string) *FramePrediction {
	return &FramePrediction{
		Frame:  frame,
		Scores: []EmotionScore{{Label: ErrorLabel, Confidence: 0}},
		OK:     false,
		Reason: reason,
	}
}

// RunStatus is the overall outcome of one pipeline run.
type RunStatus string

const (
	StatusSuccess        RunStatus = "success"
	StatusPartialSuccess RunStatus = "partial_success"
	StatusTotalFailure   RunStatus = "error"
)

// AnalysisResult is the single immutable product of a run. PerFrame is
// strictly ordered by FrameHandle.Index regardless of which worker finished
// first. PerEmotionAverage maps every member of EmotionLabels to the
// arithmetic mean of its confidences across the successfully scored frames.
type AnalysisResult struct {
	PerFrame          []*FramePrediction
	PerEmotionAverage map[string]float64
	RiskScore         float64
	Status            RunStatus
}

// AverageFor returns the per-emotion average for the given label, or zero if
// the label was never scored.
func (r *AnalysisResult) AverageFor(label string) float64 {
	return r.PerEmotionAverage[label]
}

func (r *AnalysisResult) String() string {
	return fmt.Sprintf("AnalysisResult{frames: %d, risk: %.2f, status: %s}",
		len(r.PerFrame), r.RiskScore, r.Status)
}
