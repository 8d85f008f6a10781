package imagery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeWritesProcessedCopy(t *testing.T) {
	path := writeImage(t, "sheet.png", flatGray(600, 400, 90))

	out := NewPreprocessor().Optimize(path, false)

	assert.Equal(t, strings.TrimSuffix(path, ".png")+"_processed.jpg", out)
	_, err := os.Stat(out)
	assert.NoError(t, err)

	// Original untouched.
	orig, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 600, orig.Bounds().Dx())
}

func TestOptimizeAggressive(t *testing.T) {
	path := writeImage(t, "sheet.png", checkerboard(520, 520))

	out := NewPreprocessor().Optimize(path, true)
	require.NotEqual(t, path, out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 520, img.Bounds().Dx())
}

func TestOptimizeUnreadableReturnsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.jpg")
	assert.Equal(t, path, NewPreprocessor().Optimize(path, false))
}

func TestAdaptiveResizesLongEdgeDown(t *testing.T) {
	path := writeImage(t, "wide.png", flatGray(2000, 1000, 128))

	out := NewPreprocessor().Adaptive(path, QualityReport{Overall: 0.8, Contrast: 80, Sharpness: 0.9})
	require.NotEqual(t, path, out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 1024, img.Bounds().Dx())
	assert.Equal(t, 512, img.Bounds().Dy())
}

func TestAdaptiveResizesShortImagesUp(t *testing.T) {
	path := writeImage(t, "tiny.png", flatGray(300, 200, 128))

	out := NewPreprocessor().Adaptive(path, QualityReport{Overall: 0.8, Contrast: 80, Sharpness: 0.9})
	require.NotEqual(t, path, out)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 512, img.Bounds().Dx())
}

func TestAdaptivePathsProduceOutput(t *testing.T) {
	tests := []struct {
		name   string
		report QualityReport
	}{
		{"aggressive", QualityReport{Overall: 0.2, Contrast: 80, Sharpness: 0.9}},
		{"low_contrast", QualityReport{Overall: 0.6, Contrast: 10, Sharpness: 0.9}},
		{"soft_focus", QualityReport{Overall: 0.6, Contrast: 80, Sharpness: 0.1}},
		{"standard", QualityReport{Overall: 0.9, Contrast: 80, Sharpness: 0.9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeImage(t, "sheet.png", checkerboard(540, 540))
			out := NewPreprocessor().Adaptive(path, tt.report)
			require.NotEqual(t, path, out)
			_, err := os.Stat(out)
			assert.NoError(t, err)
		})
	}
}
