package main

import (
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/fervo-ui/fervo/examples"
	"github.com/fervo-ui/fervo/internal/config"
	"github.com/fervo-ui/fervo/pkg/export"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the example gallery to static HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if output == "" {
				output = cfg.Export.Output
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			exporter := export.New(logger)

			pages := []export.Page{
				{Path: "index.html", Component: examples.Gallery, Title: cfg.Name},
				{Path: "counter.html", Component: examples.Counter, Title: "Counter"},
				{Path: "fizzbuzz.html", Component: examples.FizzBuzz, Title: "FizzBuzz"},
			}

			if cfg.Export.S3Bucket != "" {
				awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
				if err != nil {
					return err
				}
				pub := export.NewS3Publisher(s3.NewFromConfig(awsCfg), cfg.Export.S3Bucket, cfg.Export.S3Prefix)
				if err := exporter.Export(ctx, pub, pages); err != nil {
					return err
				}
				if cfg.Export.PruneDays > 0 {
					maxAge := time.Duration(cfg.Export.PruneDays) * 24 * time.Hour
					return pub.Prune(ctx, maxAge)
				}
				return nil
			}

			return exporter.Export(ctx, &export.DirPublisher{Root: output}, pages)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (overrides fervo.json)")
	return cmd
}
