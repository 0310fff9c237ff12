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

// Package inference hosts the classification model session and the exact
// preprocessing the pretrained model was trained against. This file implements
// the preprocessing contract, which must be reproduced bit-for-bit:
//
//  1. Decode the frame image (JPEG, PNG, or GIF).
//  2. Resize onto a fixed square canvas with bilinear interpolation.
//  3. Convert to single-channel grayscale.
//  4. Normalize each 8-bit channel value to [0,1] by dividing by 255.
//
// The result is a row-major float32 tensor presented to the model as a
// batch-of-one, single-channel input (shape [1,1,N,N]).
package inference

import (
	"fmt"
	"image"
	"os"

	// Registered decoders for the frame formats the pipeline accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Preprocess loads the image at framePath and converts it into the model's
// normalized grayscale input tensor of shape [1,1,size,size].
//
// Inputs:
//   - framePath: the still image to prepare.
//   - size: the side length of the square model input canvas.
//
// Outputs:
//   - []float32: size*size values in row-major order, each in [0,1].
//   - error: when the file cannot be opened or decoded.
func Preprocess(framePath string, size int) ([]float32, error) {
	file, err := os.Open(framePath)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	return TensorFromImage(img, size), nil
}

// TensorFromImage resizes an already decoded image to the model canvas,
// grayscales it, and normalizes it to [0,1] floats. Split out from Preprocess
// so tests can feed synthetic images without touching the filesystem.
func TensorFromImage(img image.Image, size int) []float32 {
	// Scaling directly into a Gray destination performs the grayscale
	// conversion through the standard library's luma color model.
	gray := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float32, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out[y*size+x] = float32(gray.GrayAt(x, y).Y) / 255.0
		}
	}
	return out
}
