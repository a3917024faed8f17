/*
 *	Copyright 2026 The MLExport Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package vision

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
)

// SyntheticImage returns a deterministic test image: a diagonal color
// gradient, deliberately not square so the resize path is exercised.
func SyntheticImage() image.Image {
	const width, height = 320, 240
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) * 255 / (width + height)),
				A: 255,
			})
		}
	}
	return img
}

// InputTensor resizes img to the model's input size and converts it to a
// [1, InputSize, InputSize, 3] float32 tensor with values in [0, 1].
func InputTensor(img image.Image) *tensors.Tensor {
	resized := imaging.Resize(img, InputSize, InputSize, imaging.Lanczos)
	return images.ToTensor(dtypes.Float32).Batch([]image.Image{resized})
}
