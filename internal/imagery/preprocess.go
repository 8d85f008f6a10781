package imagery

import (
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Preprocessor rewrites sheet photos into an OCR-friendlier form. All entry
// points degrade gracefully: if anything fails the original path is returned
// and extraction proceeds on the untouched image.
type Preprocessor struct{}

// NewPreprocessor creates a Preprocessor.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Bounds for the long edge after resizing.
const (
	minLongEdge = 512
	maxLongEdge = 1024
)

var sharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// Optimize applies the fixed enhancement pipeline. The aggressive variant
// pushes contrast and sharpening harder for badly degraded photos.
func (p *Preprocessor) Optimize(path string, aggressive bool) string {
	img, err := imaging.Open(path)
	if err != nil {
		zap.L().Warn("imagery: preprocess skipped", zap.String("path", path), zap.Error(err))
		return path
	}

	img = resizeToBounds(img)
	img = imaging.Grayscale(img)
	if aggressive {
		img = imaging.AdjustContrast(img, 60)
		img = imaging.Sharpen(img, 2.0)
		img = imaging.Blur(img, 0.4)
	} else {
		img = imaging.AdjustContrast(img, 40)
		img = imaging.Sharpen(img, 1.5)
	}
	img = finalPolish(img)

	return p.save(path, img)
}

// Adaptive selects an enhancement path from the measured quality report.
func (p *Preprocessor) Adaptive(path string, report QualityReport) string {
	img, err := imaging.Open(path)
	if err != nil {
		zap.L().Warn("imagery: preprocess skipped", zap.String("path", path), zap.Error(err))
		return path
	}

	img = resizeToBounds(img)
	img = imaging.Grayscale(img)

	switch {
	case report.Overall < 0.4:
		// Heavily degraded photo, push everything.
		img = imaging.AdjustContrast(img, 60)
		img = imaging.Sharpen(img, 2.0)
		img = imaging.Blur(img, 0.4)
	case report.Contrast < 30:
		// Washed-out ink: local contrast boost then moderate sharpening.
		img = imaging.AdjustSigmoid(img, 0.5, 8)
		img = imaging.Sharpen(img, 1.5)
	case report.Sharpness < 0.3:
		// Soft focus: unsharp pass then a sharpening kernel.
		img = unsharp(img, 2.0)
		img = convolveSharpen(img)
		img = imaging.AdjustContrast(img, 15)
	default:
		img = imaging.AdjustContrast(img, 40)
		img = imaging.Sharpen(img, 1.5)
	}
	img = finalPolish(img)

	return p.save(path, img)
}

// resizeToBounds brings the longer edge into [minLongEdge, maxLongEdge]
// preserving aspect ratio. Images already in range pass through.
func resizeToBounds(img image.Image) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	long := w
	if h > long {
		long = h
	}

	target := 0
	switch {
	case long > maxLongEdge:
		target = maxLongEdge
	case long < minLongEdge:
		target = minLongEdge
	}
	if target == 0 {
		return imaging.Clone(img)
	}
	if w >= h {
		return imaging.Resize(img, target, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, target, imaging.Lanczos)
}

// finalPolish smooths residual noise from the enhancement passes.
func finalPolish(img image.Image) *image.NRGBA {
	out := imaging.Blur(img, 0.5)
	return imaging.AdjustContrast(out, 10)
}

func convolveSharpen(img image.Image) *image.NRGBA {
	return imaging.Convolve3x3(imaging.Clone(img), sharpenKernel, nil)
}

// unsharp blends the image against a gaussian-blurred copy with weights
// 2.0 and -1.0, the classic unsharp mask.
func unsharp(img image.Image, sigma float64) *image.NRGBA {
	src := imaging.Clone(img)
	blurred := imaging.Blur(src, sigma)
	out := imaging.Clone(src)
	for i := 0; i < len(out.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := 2*int(src.Pix[i+c]) - int(blurred.Pix[i+c])
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			out.Pix[i+c] = uint8(v)
		}
	}
	return out
}

// save writes the processed image beside the original as <name>_processed.jpg.
func (p *Preprocessor) save(origPath string, img image.Image) string {
	ext := filepath.Ext(origPath)
	out := strings.TrimSuffix(origPath, ext) + "_processed.jpg"
	if err := imaging.Save(img, out, imaging.JPEGQuality(95)); err != nil {
		zap.L().Warn("imagery: save processed image", zap.String("path", out), zap.Error(err))
		return origPath
	}
	return out
}
