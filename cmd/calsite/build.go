package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"calsite/internal/app"
	"calsite/internal/site"
)

func addBuild(topLevel *cobra.Command, o *rootOptions) {
	var today string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch sources and write the site once",
		Example: `
calsite build
calsite build --today 2024-06-05 --config site.yaml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			if today != "" {
				cfg.Today = today
			}

			res, err := app.Build(cmd.Context(), cfg, time.Now())
			if err != nil {
				return err
			}
			printSummary(cmd, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", `Override the cursor date ("now" or YYYY-MM-DD)`)

	topLevel.AddCommand(cmd)
}

func printSummary(cmd *cobra.Command, res *app.Result) {
	m := res.Manifest
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, color.New(color.Bold).Sprintf("%d events, today %s", m.Events, m.Today))

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("VIEW", "PAGES", "INDEX", "ROOT")
	for _, vm := range m.Views {
		root := ""
		if vm.View == m.RootView && m.RootIndex != "" {
			root = "*"
		}
		tbl.AddRow(vm.View, len(vm.Pages), indexOrDash(vm), root)
	}
	fmt.Fprintln(out, tbl)

	if len(res.Unknown) > 0 {
		fmt.Fprintln(out, color.YellowString("ignored properties: %s", strings.Join(res.Unknown, ", ")))
	}
	if res.Skipped > 0 || res.FailedSources > 0 {
		fmt.Fprintln(out, color.YellowString("skipped events: %d, failed sources: %d", res.Skipped, res.FailedSources))
	}
	if res.FeedPath != "" {
		fmt.Fprintln(out, "feed:", res.FeedPath)
	}
}

func indexOrDash(vm site.ViewManifest) string {
	if vm.Index == "" {
		return "-"
	}
	return vm.Index
}
