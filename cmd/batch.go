package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/terrafield/crewsheet-cli/internal/pipeline"
)

var (
	batchUser     string
	batchTemplate string
	batchLimit    int
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Extract every crew sheet photo in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, "extract")
		if err != nil {
			return err
		}
		defer env.Close()

		images, err := listImages(args[0])
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(images) > batchLimit {
			images = images[:batchLimit]
		}
		if len(images) == 0 {
			zap.L().Info("no images found", zap.String("dir", args[0]))
			return nil
		}

		return processBatch(ctx, env.Service, images)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchUser, "user", "", "user id owning the sheets")
	batchCmd.Flags().StringVar(&batchTemplate, "template", "", "sheet template id")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of images to process")
	rootCmd.AddCommand(batchCmd)
}

// listImages returns the image files in dir, sorted by name.
func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read dir %s", dir)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)
	return images, nil
}

// processBatch runs the pipeline over the images with bounded concurrency
// and rate limiting. Individual failures do not abort the batch.
func processBatch(ctx context.Context, svc *pipeline.Service, images []string) error {
	limiter := rate.NewLimiter(rate.Limit(cfg.Batch.RequestsPerSecond), 1)

	zap.L().Info("processing batch",
		zap.Int("images", len(images)),
		zap.Int("concurrency", cfg.Batch.MaxConcurrentSheets),
		zap.Float64("requests_per_second", cfg.Batch.RequestsPerSecond),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.MaxConcurrentSheets)

	var succeeded, failed, needsReview atomic.Int64

	for _, image := range images {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}

			log := zap.L().With(zap.String("image", image))
			out, err := svc.ProcessSheet(gctx, batchUser, image, pipeline.Options{
				TemplateID:    batchTemplate,
				MinConfidence: cfg.Extraction.MinConfidence,
			})
			if err != nil {
				failed.Add(1)
				log.Error("sheet processing failed", zap.Error(err))
				return nil
			}
			if out.Result == nil || !out.Result.Valid {
				failed.Add(1)
				return nil
			}

			succeeded.Add(1)
			if out.Sheet.NeedsReview {
				needsReview.Add(1)
			}
			log.Info("sheet processed",
				zap.String("sheet_id", out.Sheet.ID),
				zap.Float64("confidence", out.Result.Confidence),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch processing")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int64("needs_review", needsReview.Load()),
	)
	return nil
}
