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

// Package config defines the data structures for application configuration,
// loaded from TOML files. Everything the pipeline treats as a tuning decision
// lives here rather than in code: the frame cap, the extraction resolution,
// the model input size and tensor names, worker counts, and timeouts. These
// encode cost-versus-fidelity tradeoffs, so a deployment can change them
// without touching pipeline structure.
//
// Structs:
//   - Server: HTTP listener settings and the upload guardrails.
//   - Transcoder: the external video transcoder binary and its sampling policy.
//   - Inference: the classification model artifact and runtime behavior.
//   - Telemetry: trace export settings.
//   - Config: the top-level struct aggregating all of the above.
package config

// Server holds HTTP listener settings and the upload validation limits the
// HTTP layer enforces before the pipeline ever sees a file.
type Server struct {
	Port            int      `toml:"port"`              // TCP port for the API server.
	MaxUploadMB     int64    `toml:"max_upload_mb"`     // Upload size cap in megabytes.
	AllowedTypes    []string `toml:"allowed_types"`     // MIME allow-list for uploads (e.g. "image/jpeg", "video/mp4").
	UploadDirectory string   `toml:"upload_directory"`  // Where uploaded assets are staged; empty means the OS temp dir.
	RequestsPerMin  int      `toml:"requests_per_min"`  // Rate limit for analysis requests; zero disables limiting.
}

// Transcoder configures the external process used to sample still frames out
// of a video asset.
type Transcoder struct {
	CommandPath      string `toml:"command_path"`       // Path to the transcoder executable (e.g. "/usr/bin/ffmpeg").
	MaxFrames        int    `toml:"max_frames"`         // Upper bound on frames sampled per video.
	FrameWidth       int    `toml:"frame_width"`        // Width of extracted stills; bounds preprocessing cost.
	FrameHeight      int    `toml:"frame_height"`       // Height of extracted stills.
	OutputFormat     string `toml:"output_format"`      // Still image extension the transcoder writes (e.g. "jpg").
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Hard bound on one transcoder invocation.
}

// Inference configures the classification model session and how it is driven.
type Inference struct {
	ModelPath             string `toml:"model_path"`                // Filesystem path of the model artifact.
	RuntimeLibraryPath    string `toml:"runtime_library_path"`      // Optional path of the ONNX runtime shared library.
	InputSize             int    `toml:"input_size"`                // Side length of the square model input canvas (pixels).
	InputName             string `toml:"input_name"`                // Name of the model's input tensor.
	OutputName            string `toml:"output_name"`               // Name of the model's output tensor.
	Serialize             bool   `toml:"serialize"`                 // Serialize inference calls behind a mutex when the runtime is not thread-safe.
	PerFrameTimeoutInSecs int    `toml:"per_frame_timeout_in_secs"` // Bound on scoring a single frame.
	MaxScoresPerSecond    int    `toml:"max_scores_per_second"`     // Rate limit on inference calls; zero disables limiting.
}

// Telemetry configures trace export. Metrics are always exposed on the
// Prometheus endpoint and need no endpoint configuration.
type Telemetry struct {
	TraceEndpoint string `toml:"trace_endpoint"` // OTLP/HTTP collector endpoint; empty disables export.
}

// Config represents the overall configuration for the application, loaded from
// TOML files. It acts as the root container for all other configuration structs.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name           string `toml:"name"`             // The name of the application, used as the telemetry service name.
		ThreadPoolSize int    `toml:"thread_pool_size"` // The size of the worker pool driving per-frame inference.
	} `toml:"application"`
	Server     Server     `toml:"server"`
	Transcoder Transcoder `toml:"transcoder"`
	Inference  Inference  `toml:"inference"`
	Telemetry  Telemetry  `toml:"telemetry"`
}

// NewConfig creates a Config pre-populated with the defaults the pipeline was
// tuned with. Values loaded from TOML files overwrite these.
func NewConfig() *Config {
	c := &Config{}
	c.Application.Name = "media-emotion-server"
	c.Application.ThreadPoolSize = 4
	c.Server = Server{
		Port:         8080,
		MaxUploadMB:  100,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "video/mp4", "video/quicktime"},
	}
	c.Transcoder = Transcoder{
		CommandPath:      "/usr/bin/ffmpeg",
		MaxFrames:        5,
		FrameWidth:       320,
		FrameHeight:      240,
		OutputFormat:     "jpg",
		TimeoutInSeconds: 60,
	}
	c.Inference = Inference{
		ModelPath:             "models/emotion-ferplus-8.onnx",
		InputSize:             64,
		InputName:             "Input3",
		OutputName:            "Plus692_Output_0",
		Serialize:             true,
		PerFrameTimeoutInSecs: 10,
	}
	return c
}
