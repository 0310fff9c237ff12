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
// This file defines the error taxonomy of the pipeline. Only two error
// classes ever cross a component boundary:
//
//   - ExtractionError: the external transcoder could not be started, exited
//     non-zero, timed out, or produced no usable frames. An ExtractionError
//     aborts the run before any inference is attempted.
//   - InferenceError: a single frame could not be scored (missing model
//     artifact, unreadable frame, rejected input shape, timeout). An
//     InferenceError never escapes the worker pool; it degrades exactly one
//     frame's prediction to the sentinel entry.
//
// Cleanup failures are not part of the taxonomy: they are logged warnings and
// never change the reported outcome of a run.
package model

import (
	"errors"
	"fmt"
)

// ExtractionError indicates that frame extraction failed as a whole.
type ExtractionError struct {
	Reason string // Short machine-friendly description of what went wrong.
	Err    error  // Underlying cause, may be nil.
}

// NewExtractionError wraps a cause with a short reason string.
func NewExtractionError(reason string, err error) *ExtractionError {
	return &ExtractionError{Reason: reason, Err: err}
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("frame extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// InferenceError indicates that scoring a single frame failed.
type InferenceError struct {
	FramePath string // The frame that could not be scored; may be empty for session-level failures.
	Reason    string
	Err       error
}

// NewInferenceError wraps a cause with the offending frame path and a reason.
func NewInferenceError(framePath string, reason string, err error) *InferenceError {
	return &InferenceError{FramePath: framePath, Reason: reason, Err: err}
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failed for %q: %s: %v", e.FramePath, e.Reason, e.Err)
	}
	return fmt.Sprintf("inference failed for %q: %s", e.FramePath, e.Reason)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// IsExtractionError reports whether any error in err's chain is an ExtractionError.
func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// IsInferenceError reports whether any error in err's chain is an InferenceError.
func IsInferenceError(err error) bool {
	var target *InferenceError
	return errors.As(err, &target)
}
