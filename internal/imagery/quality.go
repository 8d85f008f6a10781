package imagery

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// QualityReport summarizes the measurable quality of a sheet photo. All
// normalized metrics are in [0,1]; Brightness is a 0-255 mean and Contrast
// a raw standard deviation so thresholds read like camera numbers.
type QualityReport struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Brightness  float64 `json:"brightness"`
	Contrast    float64 `json:"contrast"`
	Sharpness   float64 `json:"sharpness"`
	Noise       float64 `json:"noise"`
	Overall     float64 `json:"overall"`
}

// Overall-score weights. Resolution saturates at one megapixel.
const (
	weightBrightness = 0.15
	weightContrast   = 0.25
	weightSharpness  = 0.25
	weightNoise      = 0.20
	weightResolution = 0.15

	resolutionSaturation = 1_000_000
)

// Assessor measures image quality ahead of strategy selection.
type Assessor struct{}

// NewAssessor creates an Assessor.
func NewAssessor() *Assessor {
	return &Assessor{}
}

// Assess computes a QualityReport for the image at path. A file that cannot
// be opened or decoded yields a fixed neutral report rather than an error so
// the pipeline can always proceed with middle-of-the-road strategies.
func (a *Assessor) Assess(path string) QualityReport {
	img, err := imaging.Open(path)
	if err != nil {
		zap.L().Warn("imagery: quality assessment fell back to neutral",
			zap.String("path", path),
			zap.Error(err),
		)
		return neutralReport()
	}
	return assessImage(img)
}

func neutralReport() QualityReport {
	return QualityReport{
		AspectRatio: 1.0,
		Brightness:  128,
		Contrast:    50,
		Sharpness:   0.5,
		Noise:       0.5,
		Overall:     0.5,
	}
}

func assessImage(img image.Image) QualityReport {
	lum, w, h := luminance(img)

	r := QualityReport{Width: w, Height: h, AspectRatio: 1.0}
	if h > 0 {
		r.AspectRatio = round3(float64(w) / float64(h))
	}

	mean, std := meanStd(lum)
	r.Brightness = round3(mean)
	r.Contrast = round3(std)
	r.Sharpness = round3(capped(laplacianVariance(lum, w, h) / 10000))
	r.Noise = round3(capped(noiseLevel(lum, w, h) / 255))

	brightnessScore := 1 - math.Abs(mean-128)/128
	contrastScore := capped(std / 100)
	resolutionScore := capped(float64(w*h) / resolutionSaturation)

	r.Overall = round3(weightBrightness*brightnessScore +
		weightContrast*contrastScore +
		weightSharpness*r.Sharpness +
		weightNoise*(1-r.Noise) +
		weightResolution*resolutionScore)
	return r
}

// luminance flattens the image to per-pixel brightness values.
func luminance(img image.Image) ([]float64, int, int) {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			lum[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		}
	}
	return lum, w, h
}

func meanStd(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(vals)))
}

// laplacianVariance runs a 4-neighbor Laplacian over interior pixels and
// returns the response variance. Blurry images score near zero.
func laplacianVariance(lum []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	resp := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := lum[y*w+x]
			v := 4*c - lum[(y-1)*w+x] - lum[(y+1)*w+x] - lum[y*w+x-1] - lum[y*w+x+1]
			resp = append(resp, v)
		}
	}
	_, std := meanStd(resp)
	return std * std
}

// noiseLevel measures the standard deviation of an 8-neighbor high-pass
// response, which spikes on sensor grain and compression artifacts.
func noiseLevel(lum []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	resp := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := 8 * lum[y*w+x]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dy == 0 && dx == 0 {
						continue
					}
					v -= lum[(y+dy)*w+x+dx]
				}
			}
			resp = append(resp, v)
		}
	}
	_, std := meanStd(resp)
	return std
}

func capped(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
