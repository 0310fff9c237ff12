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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// command that decides whether an uploaded asset is a still image or a video.
//
// Classification is a pure function of the asset's file extension: a fixed,
// case-insensitive set of video extensions maps to the video path, and
// everything else, including unrecognized extensions and files with no
// extension at all, silently falls through to the image path. Tightening that
// default is a boundary concern, not a pipeline one: the HTTP layer already
// sniffs content before anything reaches this command.
package commands

import (
	"path/filepath"
	"strings"

	"github.com/caseflow/go-media-emotion/internal/core/cor"
	"github.com/caseflow/go-media-emotion/internal/core/model"
)

// videoExtensions is the fixed extension set that routes an asset to the
// frame extractor's video path.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".avi":  true,
}

// ClassifyKind returns the media kind for a filesystem path based solely on
// its extension. No I/O is performed and there are no error cases.
func ClassifyKind(path string) model.MediaKind {
	ext := strings.ToLower(filepath.Ext(path))
	if videoExtensions[ext] {
		return model.KindVideo
	}
	return model.KindImage
}

// MediaClassifier is the command wrapper around ClassifyKind. It reads the
// run's MediaAsset from the context, stamps its Kind, and passes it along.
type MediaClassifier struct {
	cor.BaseCommand
}

// NewMediaClassifier is the constructor for the MediaClassifier command.
func NewMediaClassifier(name string) *MediaClassifier {
	return &MediaClassifier{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute stamps the asset's media kind and forwards the asset to the next
// command in the chain.
func (c *MediaClassifier) Execute(context cor.Context) {
	asset := context.Get(c.GetInputParam()).(*model.MediaAsset)
	asset.Kind = ClassifyKind(asset.Path)
	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(cor.CtxOut, asset)
}
