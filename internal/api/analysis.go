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

// Package api contains the HTTP route definitions for the server. This file
// defines the analysis upload endpoint: the single place where client input
// is validated before the pipeline runs.
//
// Validation happens at this boundary, not inside the pipeline: the upload
// size cap is enforced against the declared part size, and the content type
// is sniffed from the file's leading bytes rather than trusted from the
// filename or the Content-Type header. Files that pass are staged to the
// upload directory under a generated name (keeping the client's original
// extension, which downstream classification relies on) and handed to the
// analysis service, which owns their deletion from that point on.
package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/h2non/filetype"

	"github.com/caseflow/go-media-emotion/internal/config"
	"github.com/caseflow/go-media-emotion/internal/core/model"
	"github.com/caseflow/go-media-emotion/internal/core/services"
)

// FrameResult is the per-frame element of the response payload.
type FrameResult struct {
	File       string               `json:"file"`
	Prediction []model.EmotionScore `json:"prediction"`
}

// Metrics carries the aggregated run-level numbers, rendered as
// percent strings.
type Metrics struct {
	CriminalLikelihood string `json:"criminalLikelihood"`
	AngerAverage       string `json:"angerAverage"`
	FearAverage        string `json:"fearAverage"`
}

// AnalysisResponse is the JSON body returned by the analysis endpoint.
type AnalysisResponse struct {
	Status           string        `json:"status"`
	OriginalFilename string        `json:"originalFilename"`
	Emotions         []FrameResult `json:"emotions"`
	Metrics          Metrics       `json:"metrics"`
	Timestamp        string        `json:"timestamp"`
}

// ErrorResponse is the JSON body returned when a run fails outright.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Analysis registers the media analysis endpoint on the given route group.
//
// Inputs:
//   - r: The router group to register under (e.g. /api/v1).
//   - cfg: The server configuration providing the upload guardrails.
//   - service: The analysis service that executes the pipeline.
func Analysis(r *gin.RouterGroup, cfg *config.Config, service *services.AnalysisService) {
	analysis := r.Group("/analysis")
	{
		analysis.POST("", func(c *gin.Context) {
			header, err := c.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{
					Status:  string(model.StatusTotalFailure),
					Message: "multipart field 'file' is required",
				})
				return
			}

			maxBytes := cfg.Server.MaxUploadMB * 1024 * 1024
			if maxBytes > 0 && header.Size > maxBytes {
				c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
					Status:  string(model.StatusTotalFailure),
					Message: fmt.Sprintf("upload exceeds the %d MB limit", cfg.Server.MaxUploadMB),
				})
				return
			}

			upload, err := header.Open()
			if err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Status:  string(model.StatusTotalFailure),
					Message: "could not read upload",
				})
				return
			}
			defer upload.Close()

			if !sniffAllowed(upload, cfg.Server.AllowedTypes) {
				c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
					Status:  string(model.StatusTotalFailure),
					Message: "unsupported media type",
				})
				return
			}

			assetPath, err := stageUpload(upload, header.Filename, cfg.Server.UploadDirectory)
			if err != nil {
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Status:  string(model.StatusTotalFailure),
					Message: "could not stage upload",
				})
				return
			}

			result, err := service.Analyze(c.Request.Context(), assetPath, header.Filename)
			if err != nil {
				status := http.StatusInternalServerError
				if model.IsExtractionError(err) {
					status = http.StatusUnprocessableEntity
				}
				c.JSON(status, ErrorResponse{
					Status:  string(model.StatusTotalFailure),
					Message: err.Error(),
				})
				return
			}

			c.JSON(http.StatusOK, renderResult(header.Filename, result))
		})
	}
}

// sniffAllowed checks the upload's leading bytes against the configured MIME
// allow-list, then rewinds the reader for staging. The client-declared
// Content-Type and filename play no part in the decision.
func sniffAllowed(upload io.ReadSeeker, allowed []string) bool {
	head := make([]byte, 261)
	n, _ := io.ReadFull(upload, head)
	if _, err := upload.Seek(0, io.SeekStart); err != nil {
		return false
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return false
	}
	for _, mime := range allowed {
		if kind.MIME.Value == mime {
			return true
		}
	}
	return false
}

// stageUpload copies the upload into the staging directory under a generated
// name. The original extension is preserved because downstream media
// classification dispatches on it.
func stageUpload(upload io.Reader, originalName string, uploadDirectory string) (string, error) {
	if uploadDirectory == "" {
		uploadDirectory = os.TempDir()
	}
	assetPath := filepath.Join(uploadDirectory, uuid.NewString()+filepath.Ext(originalName))

	out, err := os.Create(assetPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, upload); err != nil {
		os.Remove(assetPath)
		return "", err
	}
	return assetPath, nil
}

// renderResult maps the pipeline's result onto the response payload. All
// frames appear in the emotions array, sentinel predictions included, so a
// partial success shows exactly which frames failed.
func renderResult(originalName string, result *model.AnalysisResult) AnalysisResponse {
	frames := make([]FrameResult, 0, len(result.PerFrame))
	for _, prediction := range result.PerFrame {
		frames = append(frames, FrameResult{
			File:       filepath.Base(prediction.Frame.Path),
			Prediction: prediction.Scores,
		})
	}

	return AnalysisResponse{
		Status:           string(result.Status),
		OriginalFilename: originalName,
		Emotions:         frames,
		Metrics: Metrics{
			CriminalLikelihood: fmt.Sprintf("%.2f%%", result.RiskScore),
			AngerAverage:       fmt.Sprintf("%.2f%%", result.PerEmotionAverage["anger"]),
			FearAverage:        fmt.Sprintf("%.2f%%", result.PerEmotionAverage["fear"]),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
