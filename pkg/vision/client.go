package vision

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the vision API operations used by the extraction pipeline.
type Client interface {
	ExtractSheet(ctx context.Context, req Request) (*Response, error)
}

// Request is our own request type for a single vision extraction call.
type Request struct {
	ImagePath   string
	System      string
	Prompt      string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

// Response is our own response type from a vision call.
type Response struct {
	Text       string
	Model      string
	StopReason string
	Usage      TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
	"claude-opus-4-6":            {15.00, 75.00},
}

// EstimateCost computes an estimated cost in USD from a TokenUsage and model ID.
// Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(u.InputTokens)/1e6)*pricing[0] + (float64(u.OutputTokens)/1e6)*pricing[1]
}

// LogCost logs token usage and estimated cost with structured zap fields.
func (u TokenUsage) LogCost(model, strategy string) {
	zap.L().Info("cost attribution",
		zap.String("model", model),
		zap.String("strategy", strategy),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.EstimateCost(model)),
	)
}

// API calls get one retry on transient failures. Permanent errors (auth,
// bad request, oversized image) surface immediately.
const maxAttempts = 2

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient creates a vision client backed by the SDK.
func NewClient(apiKey, model string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		model: model,
	}
}

func (c *sdkClient) ExtractSheet(ctx context.Context, req Request) (*Response, error) {
	data, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return nil, eris.Wrapf(err, "vision: read image %s", req.ImagePath)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	media := mediaTypeFor(req.ImagePath)

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewImageBlockBase64(media, encoded),
				sdk.NewTextBlock(req.Prompt),
			),
		},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoff(attempt)
			zap.L().Warn("vision: retrying extraction call",
				zap.String("image", req.ImagePath),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(lastErr, "vision: canceled during backoff")
			case <-time.After(delay):
			}
		}

		callCtx := ctx
		var cancel context.CancelFunc
		if req.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		}
		msg, err := c.client.Messages.New(callCtx, params)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			lastErr = err
			if !IsTransient(err) || ctx.Err() != nil {
				return nil, eris.Wrap(err, "vision: create message")
			}
			continue
		}

		resp := &Response{
			Model:      string(msg.Model),
			StopReason: string(msg.StopReason),
			Usage: TokenUsage{
				InputTokens:  msg.Usage.InputTokens,
				OutputTokens: msg.Usage.OutputTokens,
			},
		}
		var sb strings.Builder
		for _, b := range msg.Content {
			if b.Type == "text" {
				sb.WriteString(b.Text)
			}
		}
		resp.Text = sb.String()
		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "vision: create message after retries")
}

// backoff returns 2^attempt seconds capped at 30s.
func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
