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

// Package cor (Chain of Responsibility) provides the fundamental building blocks
// for creating workflows. This file defines `BaseContext`, the default
// implementation of the `Context` interface.
//
// The context doubles as the run's resource janitor. Every temporary file and
// scratch directory created during a workflow is registered here at creation
// time, and `Close` deletes them all exactly once when the run concludes, on
// every control-flow exit. Deletion failures are logged as warnings and never
// surface to the caller: cleanup is best-effort at the filesystem level but
// mandatory at the call-site level.
package cor

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// BaseContext is the default implementation of the Context interface. It holds
// the shared state for a workflow execution.
type BaseContext struct {
	mu        sync.Mutex
	data      map[string]interface{} // Arbitrary key-value data shared between commands.
	errors    map[string]error       // Errors keyed by the command name that produced them.
	tempFiles []string               // Paths of temporary files to delete on Close.
	tempDirs  []string               // Paths of scratch directories to delete recursively on Close.
	closeOnce sync.Once              // Guarantees each registered artifact is deleted exactly once.
	context   context.Context        // The standard Go context for cancellation and trace propagation.
}

// NewBaseContext is the constructor for BaseContext. It initializes all the
// internal maps and slices to ensure they are ready for use.
func NewBaseContext() Context {
	return &BaseContext{
		data:      make(map[string]interface{}),
		errors:    make(map[string]error),
		tempFiles: make([]string, 0),
		tempDirs:  make([]string, 0),
	}
}

// SetContext sets the underlying standard Go context. This is used by the
// BaseChain to manage the context for OpenTelemetry spans.
func (c *BaseContext) SetContext(context context.Context) {
	c.context = context
}

// GetContext retrieves the underlying standard Go context.
func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close deletes every temporary file and scratch directory registered on this
// context. The sync.Once guard makes repeated calls harmless, so callers can
// both defer Close and invoke it explicitly on an early-return path without
// attempting a double delete.
func (c *BaseContext) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		files := append([]string(nil), c.tempFiles...)
		dirs := append([]string(nil), c.tempDirs...)
		c.tempFiles = nil
		c.tempDirs = nil
		c.mu.Unlock()

		for _, file := range files {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				slog.Warn("failed to remove temporary file", "path", file, "error", err)
			}
		}
		for _, dir := range dirs {
			if err := os.RemoveAll(dir); err != nil {
				slog.Warn("failed to remove scratch directory", "path", dir, "error", err)
			}
		}
	})
}

// Add stores a key-value pair in the context's data map and returns the
// context for fluent chaining.
func (c *BaseContext) Add(key string, value interface{}) Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return c
}

// Get retrieves a value from the context by its key, or nil when absent.
func (c *BaseContext) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key]
}

// Remove deletes a key-value pair from the context.
func (c *BaseContext) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// AddError records an error under the name of the command that produced it.
func (c *BaseContext) AddError(key string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[key] = err
}

// GetErrors returns the map of all errors collected during the workflow.
func (c *BaseContext) GetErrors() map[string]error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]error, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// HasErrors checks if any errors have been recorded in the context.
func (c *BaseContext) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}

// AddTempFile tracks a temporary file for deletion when the run concludes.
func (c *BaseContext) AddTempFile(file string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempFiles = append(c.tempFiles, file)
}

// AddTempDir tracks a scratch directory for recursive deletion when the run
// concludes.
func (c *BaseContext) AddTempDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tempDirs = append(c.tempDirs, dir)
}

// GetTempFiles returns a copy of the tracked temporary file paths.
func (c *BaseContext) GetTempFiles() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tempFiles...)
}

// GetTempDirs returns a copy of the tracked scratch directory paths.
func (c *BaseContext) GetTempDirs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.tempDirs...)
}
