package main

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"calsite/internal/capture"
	appLog "calsite/internal/log"
)

func addCapture(topLevel *cobra.Command, o *rootOptions) {
	opts := capture.Options{}
	var page string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot a page of the running preview server to PNG",
		Example: `
calsite capture
calsite capture --page month/2024-6.html --out june.png --width 1600
calsite capture --url https://cal.example.com/agenda/
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if opts.URL == "" {
				opts.URL = pageURL(cfg.Listen, cfg.BaseURLPath, page)
			}
			if opts.OutputPath == "" {
				opts.OutputPath = filepath.Join(cfg.OutputDir, "preview.png")
			}

			appLog.Info("capture start", "url", opts.URL, "output", opts.OutputPath)
			if err := capture.PagePNG(cmd.Context(), opts); err != nil {
				return err
			}
			appLog.Info("capture done", "output", opts.OutputPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.URL, "url", "", "Absolute URL to capture (default: the preview server)")
	cmd.Flags().StringVar(&page, "page", "", "Page below base_url_path, e.g. week/2024-23.html (default: site root)")
	cmd.Flags().StringVar(&opts.OutputPath, "out", "", "PNG output path (default: <output_dir>/preview.png)")
	cmd.Flags().IntVar(&opts.Width, "width", capture.DefaultWidth, "Viewport width in pixels")
	cmd.Flags().IntVar(&opts.Height, "height", capture.DefaultHeight, "Viewport height in pixels")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", capture.DefaultTimeoutSec*time.Second, "Overall capture timeout")

	topLevel.AddCommand(cmd)
}

// pageURL points at the preview server started by `calsite serve`.
func pageURL(listen, base, page string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	p := "/" + strings.Trim(base, "/")
	if p != "/" {
		p += "/"
	}
	return "http://" + host + p + strings.TrimPrefix(page, "/")
}
