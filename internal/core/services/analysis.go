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

// Package services contains the business logic sitting between the HTTP
// boundary and the workflow engine. This file defines the AnalysisService,
// which owns the lifecycle of a single analysis run: it seeds the workflow
// context, guarantees cleanup of every temporary artifact on every exit path,
// and translates workflow errors into the pipeline's error taxonomy.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

// AnalysisService runs the emotion analysis workflow for uploaded assets.
// One instance serves all requests; per-run state lives on the workflow
// context created inside Analyze.
type AnalysisService struct {
	Workflow cor.Command // The analysis pipeline, executed once per run.
}

// NewAnalysisService is the constructor for AnalysisService.
func NewAnalysisService(workflow cor.Command) *AnalysisService {
	return &AnalysisService{Workflow: workflow}
}

// Analyze runs the full pipeline over the uploaded file at assetPath.
//
// The uploaded file is registered for deletion before anything else happens,
// so it is removed on success, on failure, and on panic alike; the deferred
// Close is the single cleanup point for the run and is idempotent. A non-nil
// error is only returned for run-level failures (extraction, invalid input);
// frame-level inference failures are folded into the result's status instead.
//
// Inputs:
//   - ctx: The request context, used for cancellation and trace propagation.
//   - assetPath: The temporary path of the uploaded media file.
//   - originalName: The client-provided filename, echoed back in the result.
//
// Outputs:
//   - *model.AnalysisResult: The aggregated verdict, nil on error.
//   - error: A run-level failure, typed per the pipeline's error taxonomy.
func (s *AnalysisService) Analyze(ctx context.Context, assetPath string, originalName string) (*model.AnalysisResult, error) {
	runID := uuid.NewString()
	start := time.Now()

	runContext := cor.NewBaseContext()
	runContext.SetContext(ctx)
	runContext.AddTempFile(assetPath)
	defer runContext.Close()

	asset := &model.MediaAsset{Path: assetPath, Name: originalName}
	runContext.Add(cor.CtxIn, asset)

	s.Workflow.Execute(runContext)

	if runContext.HasErrors() {
		for name, err := range runContext.GetErrors() {
			slog.Error("analysis run failed",
				"run_id", runID,
				"asset", originalName,
				"command", name,
				"error", err)
			return nil, err
		}
	}

	result, ok := runContext.Get(cor.CtxIn).(*model.AnalysisResult)
	if !ok {
		return nil, fmt.Errorf("workflow produced no result for asset %q", originalName)
	}

	slog.Info("analysis run complete",
		"run_id", runID,
		"asset", originalName,
		"kind", asset.Kind,
		"status", result.Status,
		"frames", len(result.PerFrame),
		"risk_score", result.RiskScore,
		"duration", time.Since(start))
	return result, nil
}
