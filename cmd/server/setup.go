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

// Package main contains the setup and initialization logic for the
// application's state. This file creates the centralized state manager that
// holds the shared dependencies: configuration, the model engine, and the
// analysis service with its workflow.
//
// Functions:
//   - SetupOS: Points the configuration loader at the correct TOML files.
//   - GetConfig: A singleton loader for the application configuration.
//   - InitState: Creates the inference engine, the analysis workflow, and the
//     analysis service, wiring them together.
package main

import (
	"context"
	"log"
	"os"

	"github.com/caseflow/go-media-emotion/internal/config"
	"github.com/caseflow/go-media-emotion/internal/core/services"
	"github.com/caseflow/go-media-emotion/internal/core/workflow"
	"github.com/caseflow/go-media-emotion/internal/inference"
)

// StateManager holds all the shared dependencies for the application, acting
// as a centralized container so handlers never reach for globals of their own.
type StateManager struct {
	config          *config.Config
	engine          *inference.Engine
	analysisService *services.AnalysisService
}

// state is the single instance of StateManager for this process.
var state = &StateManager{}

// SetupOS sets the environment variables the configuration loader uses to
// find the TOML files: the config directory prefix and the runtime name
// (e.g. "local", "test", "prod") whose overlay file overrides base settings.
func SetupOS() (err error) {
	if err = os.Setenv(config.EnvConfigFilePrefix, "configs"); err != nil {
		return err
	}
	return os.Setenv(config.EnvConfigRuntime, "local")
}

// GetConfig provides a singleton instance of the application configuration,
// loading it from the file system on the first call only.
func GetConfig() *config.Config {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			log.Fatalf("failed to set up config environment: %v\n", err)
		}
		cfg := config.NewConfig()
		config.LoadConfig(cfg)
		state.config = cfg
	}
	return state.config
}

// InitState initializes the application state: the shared model engine, the
// analysis workflow built around it, and the analysis service exposed to the
// HTTP layer.
func InitState(_ context.Context) {
	cfg := GetConfig()

	state.engine = inference.NewEngine(cfg.Inference)
	analysisWorkflow := workflow.NewEmotionAnalysisWorkflow(cfg, state.engine)
	state.analysisService = services.NewAnalysisService(analysisWorkflow)
}
