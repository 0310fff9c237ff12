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
// frame extractor, using executable shell scripts in place of the real
// transcoder so the tests run anywhere.
package commands_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/go-media-emotion/internal/config"
	"github.com/caseflow/go-media-emotion/internal/core/commands"
	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
	test "github.com/caseflow/go-media-emotion/internal/testutil"
)

func transcoderConfig(commandPath string) config.Transcoder {
	return config.Transcoder{
		CommandPath:      commandPath,
		MaxFrames:        5,
		FrameWidth:       320,
		FrameHeight:      240,
		OutputFormat:     "jpg",
		TimeoutInSeconds: 10,
	}
}

func runExtractor(t *testing.T, cfg config.Transcoder, asset *model.MediaAsset) cor.Context {
	t.Helper()
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, asset)
	commands.NewFrameExtractor("extractor-under-test", cfg).Execute(ctx)
	return ctx
}

func TestImagePassthrough(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "photo.jpg")
	test.WriteTestJPEG(t, imgPath, 100, 100)
	asset := &model.MediaAsset{Path: imgPath, Name: "photo.jpg", Kind: model.KindImage}

	// Point the transcoder at a binary that cannot exist: if the extractor
	// tried to invoke it for an image, the test would fail.
	ctx := runExtractor(t, transcoderConfig("/nonexistent/transcoder"), asset)

	require.False(t, ctx.HasErrors())
	frames := ctx.Get(cor.CtxOut).([]*model.FrameHandle)
	require.Len(t, frames, 1)
	assert.Equal(t, 0, frames[0].Index)
	assert.Equal(t, imgPath, frames[0].Path)
	assert.Same(t, asset, frames[0].Source)
	// An image run creates no scratch directory.
	assert.Empty(t, ctx.GetTempDirs())
}

func TestVideoExtractionOrdersAndIndexesFrames(t *testing.T) {
	dir := t.TempDir()
	script := test.WriteFakeTranscoder(t, dir, 3)
	asset := &model.MediaAsset{Path: filepath.Join(dir, "clip.mp4"), Name: "clip.mp4", Kind: model.KindVideo}

	ctx := runExtractor(t, transcoderConfig(script), asset)

	require.False(t, ctx.HasErrors())
	frames := ctx.Get(cor.CtxOut).([]*model.FrameHandle)
	require.Len(t, frames, 3)
	for i, frame := range frames {
		assert.Equal(t, i, frame.Index)
		assert.Same(t, asset, frame.Source)
	}
	assert.True(t, frames[0].Path < frames[1].Path)
	assert.True(t, frames[1].Path < frames[2].Path)

	// The scratch directory holding the stills is registered for cleanup.
	require.Len(t, ctx.GetTempDirs(), 1)
	assert.Equal(t, ctx.GetTempDirs()[0], filepath.Dir(frames[0].Path))
}

func TestVideoExtractionTruncatesToMaxFrames(t *testing.T) {
	dir := t.TempDir()
	script := test.WriteFakeTranscoder(t, dir, 8)
	asset := &model.MediaAsset{Path: filepath.Join(dir, "clip.mp4"), Name: "clip.mp4", Kind: model.KindVideo}

	ctx := runExtractor(t, transcoderConfig(script), asset)

	require.False(t, ctx.HasErrors())
	frames := ctx.Get(cor.CtxOut).([]*model.FrameHandle)
	assert.Len(t, frames, 5)
}

func TestZeroFramesIsExtractionError(t *testing.T) {
	dir := t.TempDir()
	script := test.WriteFakeTranscoder(t, dir, 0)
	asset := &model.MediaAsset{Path: filepath.Join(dir, "clip.mp4"), Name: "clip.mp4", Kind: model.KindVideo}

	ctx := runExtractor(t, transcoderConfig(script), asset)

	require.True(t, ctx.HasErrors())
	for _, err := range ctx.GetErrors() {
		assert.True(t, model.IsExtractionError(err))
	}
	// The scratch directory is still registered for cleanup on failure.
	assert.Len(t, ctx.GetTempDirs(), 1)
}

func TestTranscoderFailureIsExtractionError(t *testing.T) {
	dir := t.TempDir()
	script := test.WriteFakeTranscoder(t, dir, -1)
	asset := &model.MediaAsset{Path: filepath.Join(dir, "clip.mp4"), Name: "clip.mp4", Kind: model.KindVideo}

	ctx := runExtractor(t, transcoderConfig(script), asset)

	require.True(t, ctx.HasErrors())
	for _, err := range ctx.GetErrors() {
		assert.True(t, model.IsExtractionError(err))
		assert.Contains(t, err.Error(), "simulated transcoder failure")
	}
}

func TestTranscoderTimeoutIsExtractionError(t *testing.T) {
	dir := t.TempDir()
	script := test.WriteHangingTranscoder(t, dir)
	cfg := transcoderConfig(script)
	cfg.TimeoutInSeconds = 1
	asset := &model.MediaAsset{Path: filepath.Join(dir, "clip.mp4"), Name: "clip.mp4", Kind: model.KindVideo}

	ctx := runExtractor(t, cfg, asset)

	require.True(t, ctx.HasErrors())
	for _, err := range ctx.GetErrors() {
		assert.True(t, model.IsExtractionError(err))
		assert.Contains(t, err.Error(), "timed out")
	}
}
