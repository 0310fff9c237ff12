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

// Package test provides utility functions and synthetic media to support the
// application's test suite. It helps in setting up a consistent test
// environment, building test-specific configurations, and generating image
// fixtures and fake transcoder scripts without shipping binary assets in the
// repository.
package test

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/caseflow/go-media-emotion/internal/config"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs, so config defaults are built only once per
// test binary.
type StateManager struct {
	config *config.Config
}

// state holds the singleton StateManager for the test binary.
var state = &StateManager{}

// HandleErr is a simple test helper that fails the test when err is non-nil.
//
// Inputs:
//   - err: The error to check.
//   - t: The *testing.T object from the current test.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// GetConfig returns a configuration suitable for tests: the compiled-in
// defaults, untouched by any TOML file on disk.
func GetConfig() *config.Config {
	if state.config == nil {
		state.config = config.NewConfig()
	}
	return state.config
}

// WriteTestJPEG writes a solid mid-gray JPEG of the given dimensions to path.
// A uniform image keeps preprocessing assertions exact: every pixel survives
// resizing and grayscale conversion with the same value.
func WriteTestJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image %s: %v", path, err)
	}
	defer file.Close()
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode test image %s: %v", path, err)
	}
}

// WriteFakeTranscoder writes an executable shell script that imitates the
// external transcoder's contract: it ignores its arguments except for the
// final output pattern and writes `frames` sequentially numbered JPEG stills
// next to it. A negative frame count produces a script that exits non-zero,
// and a zero count produces a script that succeeds without writing anything.
//
// Returns the path of the script.
func WriteFakeTranscoder(t *testing.T, dir string, frames int) string {
	t.Helper()

	scriptPath := filepath.Join(dir, "fake-transcoder.sh")
	script := "#!/bin/sh\n"
	switch {
	case frames < 0:
		script += "echo 'simulated transcoder failure' >&2\nexit 1\n"
	case frames == 0:
		script += "exit 0\n"
	default:
		// The output pattern is always the last argument. Substitute the
		// frame number the same way the real transcoder does.
		script += "for a in \"$@\"; do pattern=\"$a\"; done\n"
		for i := 1; i <= frames; i++ {
			script += fmt.Sprintf("out=$(echo \"$pattern\" | sed 's/%%04d/%04d/')\n", i)
			script += fmt.Sprintf("cp %q \"$out\"\n", filepath.Join(dir, "seed.jpg"))
		}
		script += "exit 0\n"
		WriteTestJPEG(t, filepath.Join(dir, "seed.jpg"), 320, 240)
	}

	if err := os.WriteFile(scriptPath, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake transcoder: %v", err)
	}
	return scriptPath
}

// WriteHangingTranscoder writes an executable shell script that sleeps far
// past any test timeout, for exercising the extraction deadline.
func WriteHangingTranscoder(t *testing.T, dir string) string {
	t.Helper()
	scriptPath := filepath.Join(dir, "hanging-transcoder.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\nsleep 300\n"), 0755); err != nil {
		t.Fatalf("failed to write hanging transcoder: %v", err)
	}
	return scriptPath
}
