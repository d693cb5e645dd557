package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/catalog/pkg/snapshot"
)

func publishCmd(opts *globalOptions) *cobra.Command {
	var (
		bucket      string
		prefix      string
		region      string
		endpoint    string
		out         string
		parallelism int
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload pre-rendered pages",
		Long: `Render the home page, the cached list page and every detail page and
upload them to S3, or write them to a directory with --out.

Credentials are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN.

Examples:
  catalog publish --bucket=my-site --prefix=catalog
  catalog publish --endpoint=http://localhost:9000 --bucket=dev
  catalog publish --out=./public`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.wait()

			var store snapshot.Store
			var target string
			if out != "" {
				disk, err := snapshot.NewDiskStore(out)
				if err != nil {
					return err
				}
				store, target = disk, out
			} else {
				if bucket == "" {
					bucket = a.cfg.Publish.Bucket
				}
				if prefix == "" {
					prefix = a.cfg.Publish.Prefix
				}
				if region == "" {
					region = a.cfg.Publish.Region
				}
				if bucket == "" {
					return fmt.Errorf("publish: --bucket or publish.bucket is required")
				}
				client := snapshot.NewS3Client(region, endpoint)
				store, target = snapshot.NewS3Store(client, bucket, prefix), "s3://"+bucket+"/"+prefix
			}

			pub := &snapshot.Publisher{
				Selector:    a.selector,
				Views:       a.views,
				Store:       store,
				Parallelism: parallelism,
				Logger:      a.logger,
			}
			report, err := pub.Publish(cmd.Context())
			w := cmd.OutOrStdout()
			for _, key := range report.Skipped {
				info(w, "skipped %s", key)
			}
			for _, key := range report.Failed {
				info(w, "failed  %s", key)
			}
			if err != nil {
				return err
			}
			success(w, "Published %d pages to %s", len(report.Published), target)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "S3 bucket (default from config)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix inside the bucket")
	cmd.Flags().StringVar(&region, "region", "", "AWS region")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "S3-compatible endpoint URL")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write pages to this directory instead of S3")
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "Concurrent renders and uploads")

	return cmd
}
