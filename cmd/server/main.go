// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// *****************************************************************************************************//
// Package main is the entry point for the media emotion analysis server.
//
// This application sets up and runs a web server using the Gin framework. It
// provides a REST API that accepts a media upload (image or video) and returns
// an aggregated emotional analysis of its content. The server is instrumented
// with OpenTelemetry for logging, tracing, and metrics.
//
// The main function initializes configuration, logging, and telemetry, builds
// the application state (the model engine and the analysis workflow), registers
// the API routes, and handles graceful shutdown.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/caseflow/go-media-emotion/internal/api"
	"github.com/caseflow/go-media-emotion/internal/telemetry"
)

// main orchestrates the setup of logging, telemetry, configuration, the
// analysis pipeline, the web server, and graceful shutdown on interrupt.
func main() {
	// Initialize structured logging for the application.
	telemetry.SetupLogging()
	slog.Info("Logging initialized")

	// The root context for the application; cancelled when main exits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load application configuration from TOML files.
	cfg := GetConfig()

	// Initialize OpenTelemetry for distributed tracing and metrics.
	otelShutdown, err := telemetry.SetupOpenTelemetry(ctx, cfg)
	if err != nil {
		slog.Error("Failed to setup OpenTelemetry", "error", err)
		log.Fatal(err)
	}
	slog.Info("Tracing initialized")

	// Initialize the application's state: model engine, workflow, service.
	InitState(ctx)
	slog.Info("Initialized State")

	// Set up the Gin web server with default middleware.
	r := gin.Default()

	// Trace incoming requests with OpenTelemetry middleware.
	r.Use(otelgin.Middleware(cfg.Application.Name))

	// Permissive CORS, suitable for development.
	r.Use(cors.Default())

	// Liveness probe and Prometheus scrape endpoint sit outside the API group
	// so they are never rate limited.
	api.Health(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Group routes under the "/api/v1" prefix.
	apiV1 := r.Group("/api/v1")
	apiV1.Use(api.RateLimit(cfg.Server.RequestsPerMin))
	{
		api.Analysis(apiV1, cfg, state.analysisService)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	// Start the HTTP server in a separate goroutine so it doesn't block.
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to listen", "error", err)
		}
	}()
	slog.Info("Server Ready", "port", cfg.Server.Port)

	// Block until an interrupt signal is received.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutdown Server ...")

	// Give active requests time to complete before shutting down.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server Shutdown Failed:", "error", err)
	}

	// Release the model session and flush telemetry.
	state.engine.Shutdown()
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Error("Telemetry Shutdown Failed:", "error", err)
	}

	log.Println("Server exiting")
}
