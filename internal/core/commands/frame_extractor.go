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
// command that derives the set of still frames to analyze from an asset.
//
// Logic Flow:
// For an image asset the asset itself is the sole frame: no external process
// is invoked and no scratch directory is created. For a video asset:
//
//  1. A fresh scratch directory is created, named from a unique run
//     identifier so concurrent requests can never collide. The directory is
//     registered on the context for cleanup IMMEDIATELY after creation:
//     ownership transfers to the context's janitor even when the extraction
//     itself subsequently fails.
//  2. The external transcoder is invoked once under a bounded timeout,
//     requesting up to `maxFrames` stills sampled evenly across the media's
//     duration, written as sequentially numbered images at a fixed downscaled
//     resolution. Downscaling is intentional: it bounds preprocessing cost
//     and is independent of the model's own input size.
//  3. The scratch directory is listed, filtered to the expected extension,
//     sorted by the embedded frame number, and truncated to `maxFrames`.
//  4. An empty listing is an ExtractionError, never a silent empty result:
//     the pipeline must not proceed to inference with zero frames.
package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	goctx "context"

	"github.com/google/uuid"

	"github.com/caseflow/go-media-emotion/internal/config"
	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

const (
	// ScratchDirPrefix names the run-scoped frame directories under the OS
	// temp dir.
	ScratchDirPrefix = "emotion-frames-"
	// FramePattern is the sequentially numbered output file pattern handed
	// to the transcoder.
	FramePattern = "frame_%04d"
)

// FrameExtractor is a command that wraps the external transcoder to sample
// still frames from a video asset, or passes an image asset through as its
// own single frame.
type FrameExtractor struct {
	cor.BaseCommand
	cfg config.Transcoder
}

// NewFrameExtractor is the constructor for the FrameExtractor command.
//
// Inputs:
//   - name: A string name for this command instance, used for logging and telemetry.
//   - cfg: The transcoder configuration (binary path, sampling policy, timeout).
func NewFrameExtractor(name string, cfg config.Transcoder) *FrameExtractor {
	return &FrameExtractor{BaseCommand: *cor.NewBaseCommand(name), cfg: cfg}
}

// Execute derives the ordered frame list for the asset currently on the
// context and stores it for the scoring stage. On extraction failure an
// ExtractionError is recorded and the chain stops before any inference runs.
func (c *FrameExtractor) Execute(context cor.Context) {
	asset := context.Get(c.GetInputParam()).(*model.MediaAsset)

	frames, err := c.extract(context, asset)
	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, frames)
}

// extract performs the actual frame derivation. Scratch artifacts are
// registered on the context, never deleted here, so extraction and cleanup
// stay independently testable.
func (c *FrameExtractor) extract(context cor.Context, asset *model.MediaAsset) ([]*model.FrameHandle, error) {
	if asset.Kind == model.KindImage {
		return []*model.FrameHandle{{Source: asset, Index: 0, Path: asset.Path}}, nil
	}

	scratchDir := filepath.Join(os.TempDir(), ScratchDirPrefix+uuid.NewString())
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, model.NewExtractionError("could not create scratch directory", err)
	}
	// Ownership of the scratch directory transfers to the janitor here, so
	// it is removed even when the transcoder fails below.
	context.AddTempDir(scratchDir)

	timeout := time.Duration(c.cfg.TimeoutInSeconds) * time.Second
	runCtx, cancel := goctx.WithTimeout(context.GetContext(), timeout)
	defer cancel()

	pattern := filepath.Join(scratchDir, FramePattern+"."+c.cfg.OutputFormat)
	cmd := exec.CommandContext(runCtx, c.cfg.CommandPath, c.buildArgs(asset.Path, pattern)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() == goctx.DeadlineExceeded {
			return nil, model.NewExtractionError(
				fmt.Sprintf("transcoder timed out after %s", timeout), runCtx.Err())
		}
		return nil, model.NewExtractionError(
			fmt.Sprintf("transcoder failed: %s", strings.TrimSpace(string(output))), err)
	}

	frames, err := c.collectFrames(scratchDir, asset)
	if err != nil {
		return nil, err
	}
	return frames, nil
}

// buildArgs assembles the transcoder invocation. The sampling rate is chosen
// so that `maxFrames` stills cover the whole duration; when the duration
// cannot be probed the extractor falls back to one frame per second and
// relies on the output cap.
func (c *FrameExtractor) buildArgs(inputPath, outputPattern string) []string {
	sample := "1"
	if duration, err := c.probeDuration(inputPath); err == nil && duration > 0 {
		sample = fmt.Sprintf("%d/%.3f", c.cfg.MaxFrames, duration)
	}
	return []string{
		"-y",
		"-hide_banner",
		"-i", inputPath,
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d", sample, c.cfg.FrameWidth, c.cfg.FrameHeight),
		"-frames:v", strconv.Itoa(c.cfg.MaxFrames),
		outputPattern,
	}
}

// probeDuration asks the probe binary shipped next to the transcoder for the
// media duration in seconds.
func (c *FrameExtractor) probeDuration(inputPath string) (float64, error) {
	probePath := filepath.Join(filepath.Dir(c.cfg.CommandPath), "ffprobe")
	cmd := exec.Command(probePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
}

// collectFrames lists the scratch directory, orders the stills by their
// embedded frame number, and truncates to the configured cap. Indexes are
// assigned contiguously from zero in temporal order.
func (c *FrameExtractor) collectFrames(scratchDir string, asset *model.MediaAsset) ([]*model.FrameHandle, error) {
	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		return nil, model.NewExtractionError("could not list scratch directory", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), "."+c.cfg.OutputFormat) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, model.NewExtractionError("transcoder produced no frames", nil)
	}

	// The zero-padded frame numbers make lexical order temporal order.
	sort.Strings(names)
	if len(names) > c.cfg.MaxFrames {
		names = names[:c.cfg.MaxFrames]
	}

	frames := make([]*model.FrameHandle, 0, len(names))
	for i, name := range names {
		frames = append(frames, &model.FrameHandle{
			Source: asset,
			Index:  i,
			Path:   filepath.Join(scratchDir, name),
		})
	}
	return frames, nil
}
