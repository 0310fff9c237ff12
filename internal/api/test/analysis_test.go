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

// Package api_test verifies the HTTP boundary: upload validation, response
// rendering, and the rate limiting middleware. The pipeline behind the
// handler is replaced with a stub workflow producing canned results.
package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseflow/go-media-emotion/internal/api"
	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
	"github.com/caseflow/go-media-emotion/internal/core/services"
	test "github.com/caseflow/go-media-emotion/internal/testutil"
)

// cannedWorkflow is a stand-in for the analysis pipeline: it emits a fixed
// result for whatever asset it is given.
type cannedWorkflow struct {
	cor.BaseCommand
	result *model.AnalysisResult
}

func newCannedWorkflow(result *model.AnalysisResult) cor.Command {
	out := cor.NewBaseChain("canned-workflow")
	out.AddCommand(&cannedWorkflow{BaseCommand: *cor.NewBaseCommand("canned"), result: result})
	return out
}

func (c *cannedWorkflow) Execute(ctx cor.Context) {
	ctx.Add(cor.CtxOut, c.result)
}

func cannedResult() *model.AnalysisResult {
	frame := &model.FrameHandle{Index: 0, Path: "/tmp/scratch/frame_0001.jpg"}
	scores := []model.EmotionScore{
		{Label: "anger", Confidence: 80.5},
		{Label: "fear", Confidence: 20.5},
	}
	averages := map[string]float64{}
	for _, label := range model.EmotionLabels {
		averages[label] = 1
	}
	averages["anger"] = 80.5
	averages["fear"] = 20.5
	return &model.AnalysisResult{
		PerFrame:          []*model.FramePrediction{{Frame: frame, Scores: scores, OK: true}},
		PerEmotionAverage: averages,
		RiskScore:         50.5,
		Status:            model.StatusSuccess,
	}
}

func newTestRouter(result *model.AnalysisResult) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := test.GetConfig()
	service := services.NewAnalysisService(newCannedWorkflow(result))

	r := gin.New()
	apiV1 := r.Group("/api/v1")
	api.Analysis(apiV1, cfg, service)
	api.Health(r)
	return r
}

// multipartUpload builds a multipart body carrying the file at path under the
// `file` field.
func multipartUpload(t *testing.T, path string) (*bytes.Buffer, string) {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestAnalysisEndpointSuccess(t *testing.T) {
	imgPath := filepath.Join(t.TempDir(), "portrait.jpg")
	test.WriteTestJPEG(t, imgPath, 64, 64)

	router := newTestRouter(cannedResult())
	body, contentType := multipartUpload(t, imgPath)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp api.AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "portrait.jpg", resp.OriginalFilename)
	require.Len(t, resp.Emotions, 1)
	assert.Equal(t, "frame_0001.jpg", resp.Emotions[0].File)
	assert.Equal(t, "50.50%", resp.Metrics.CriminalLikelihood)
	assert.Equal(t, "80.50%", resp.Metrics.AngerAverage)
	assert.Equal(t, "20.50%", resp.Metrics.FearAverage)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestAnalysisEndpointRequiresFileField(t *testing.T) {
	router := newTestRouter(cannedResult())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", bytes.NewBufferString("no form"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisEndpointRejectsUnknownContent(t *testing.T) {
	textPath := filepath.Join(t.TempDir(), "notes.jpg")
	require.NoError(t, os.WriteFile(textPath, []byte("plain text wearing a jpg extension"), 0644))

	router := newTestRouter(cannedResult())
	body, contentType := multipartUpload(t, textPath)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(cannedResult())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(api.RateLimit(1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	// The burst allows the first request; the second inside the same minute
	// is rejected.
	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(api.RateLimit(0))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
