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
// This file provides canonical example objects, used by tests and by
// documentation to show the exact shape the pipeline produces.
package model

// GetExamplePrediction returns a fully populated, successful frame prediction
// with one confidence per label, sorted descending the way the inference
// engine emits them.
func GetExamplePrediction() *FramePrediction {
	frame := &FrameHandle{
		Source: &MediaAsset{Path: "/tmp/upload-01.jpg", Name: "upload-01.jpg", Kind: KindImage},
		Index:  0,
		Path:   "/tmp/upload-01.jpg",
	}
	return &FramePrediction{
		Frame: frame,
		OK:    true,
		Scores: []EmotionScore{
			{Label: "neutral", Confidence: 61.17},
			{Label: "happiness", Confidence: 22.03},
			{Label: "sadness", Confidence: 7.44},
			{Label: "surprise", Confidence: 4.19},
			{Label: "anger", Confidence: 2.71},
			{Label: "contempt", Confidence: 1.32},
			{Label: "disgust", Confidence: 0.83},
			{Label: "fear", Confidence: 0.31},
		},
	}
}

// GetExampleErrorPrediction returns the sentinel prediction shape recorded
// for a frame that failed to score.
func GetExampleErrorPrediction() *FramePrediction {
	frame := &FrameHandle{
		Source: &MediaAsset{Path: "/tmp/upload-02.mp4", Name: "upload-02.mp4", Kind: KindVideo},
		Index:  1,
		Path:   "/tmp/frames-1f2a/frame_0002.jpg",
	}
	return NewErrorPrediction(frame, "image decode failed")
}
