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

// Package cor_test verifies the chain framework: the piping of data between
// commands, the stop-on-error behavior, and the exactly-once cleanup of
// temporary artifacts registered on the context.
package cor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caseflow/go-media-emotion/internal/core/cor"
)

// appendCommand appends its own suffix to the string flowing through the
// chain, recording execution order in the output itself.
type appendCommand struct {
	cor.BaseCommand
	suffix string
	fail   bool
}

func newAppendCommand(name, suffix string, fail bool) *appendCommand {
	return &appendCommand{BaseCommand: *cor.NewBaseCommand(name), suffix: suffix, fail: fail}
}

func (c *appendCommand) Execute(ctx cor.Context) {
	if c.fail {
		ctx.AddError(c.GetName(), errors.New("simulated failure"))
		return
	}
	in := ctx.Get(c.GetInputParam()).(string)
	ctx.Add(cor.CtxOut, in+c.suffix)
}

func newRunContext() cor.Context {
	out := cor.NewBaseContext()
	out.SetContext(context.Background())
	return out
}

func TestChainPipesOutputToNextInput(t *testing.T) {
	chain := cor.NewBaseChain("pipe-test")
	chain.AddCommand(newAppendCommand("first", "-a", false))
	chain.AddCommand(newAppendCommand("second", "-b", false))

	ctx := newRunContext()
	ctx.Add(cor.CtxIn, "seed")
	chain.Execute(ctx)

	assert.False(t, ctx.HasErrors())
	assert.Equal(t, "seed-a-b", ctx.Get(cor.CtxIn))
}

func TestChainStopsOnFirstError(t *testing.T) {
	chain := cor.NewBaseChain("stop-test")
	chain.AddCommand(newAppendCommand("first", "-a", false))
	chain.AddCommand(newAppendCommand("failing", "", true))
	chain.AddCommand(newAppendCommand("unreachable", "-c", false))

	ctx := newRunContext()
	ctx.Add(cor.CtxIn, "seed")
	chain.Execute(ctx)

	assert.True(t, ctx.HasErrors())
	errs := ctx.GetErrors()
	assert.Contains(t, errs, "failing")
	assert.NotContains(t, errs, "unreachable")
	// The last successful output is still on the context.
	assert.Equal(t, "seed-a", ctx.Get(cor.CtxIn))
}

func TestCloseDeletesRegisteredArtifacts(t *testing.T) {
	dir := t.TempDir()

	tempFile := filepath.Join(dir, "upload.bin")
	assert.NoError(t, os.WriteFile(tempFile, []byte("x"), 0644))

	scratchDir := filepath.Join(dir, "scratch")
	assert.NoError(t, os.MkdirAll(scratchDir, 0755))
	assert.NoError(t, os.WriteFile(filepath.Join(scratchDir, "frame_0001.jpg"), []byte("x"), 0644))

	ctx := newRunContext()
	ctx.AddTempFile(tempFile)
	ctx.AddTempDir(scratchDir)
	ctx.Close()

	_, err := os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(scratchDir)
	assert.True(t, os.IsNotExist(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	tempFile := filepath.Join(dir, "upload.bin")
	assert.NoError(t, os.WriteFile(tempFile, []byte("x"), 0644))

	ctx := newRunContext()
	ctx.AddTempFile(tempFile)

	ctx.Close()
	// A second Close must be a no-op, not a second delete attempt.
	ctx.Close()

	_, err := os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err))
}

func TestCloseToleratesMissingArtifacts(t *testing.T) {
	ctx := newRunContext()
	ctx.AddTempFile(filepath.Join(t.TempDir(), "never-created.bin"))
	ctx.AddTempDir(filepath.Join(t.TempDir(), "never-created-dir"))

	// Must not panic or error: cleanup is best-effort.
	ctx.Close()
}

func TestCloseRunsOnFailurePaths(t *testing.T) {
	dir := t.TempDir()
	tempFile := filepath.Join(dir, "upload.bin")
	assert.NoError(t, os.WriteFile(tempFile, []byte("x"), 0644))

	chain := cor.NewBaseChain("failure-cleanup-test")
	chain.AddCommand(newAppendCommand("failing", "", true))

	ctx := newRunContext()
	ctx.AddTempFile(tempFile)
	ctx.Add(cor.CtxIn, "seed")
	chain.Execute(ctx)
	assert.True(t, ctx.HasErrors())

	ctx.Close()
	_, err := os.Stat(tempFile)
	assert.True(t, os.IsNotExist(err))
}
