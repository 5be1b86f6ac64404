package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/atoll-dev/siteplanner/internal/geo"
	"github.com/atoll-dev/siteplanner/internal/label"
	"github.com/atoll-dev/siteplanner/internal/survey"
	"github.com/atoll-dev/siteplanner/pkg/overpass"
)

var (
	collectSpacing float64
	collectWorkers int
	collectRule    string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect a labeled dataset from live OpenStreetMap data",
	RunE: func(cmd *cobra.Command, args []string) error {
		rule, err := label.ByVersion(collectRule)
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		client := overpass.NewClient(
			overpass.WithEndpoint(cfg.Overpass.Endpoint),
			overpass.WithRadius(cfg.Overpass.RadiusMeters),
			overpass.WithRateLimit(cfg.Overpass.RateLimitRPS),
			overpass.WithRetries(cfg.Overpass.MaxRetries, time.Duration(cfg.Overpass.RetryDelaySecs)*time.Second),
		)

		spacing := collectSpacing
		if spacing == 0 {
			spacing = cfg.Collect.SpacingDeg
		}
		workers := collectWorkers
		if workers == 0 {
			workers = cfg.Collect.Workers
		}

		r := survey.NewRunner(client, store, geo.FromConfig(cfg.Bounds), spacing,
			survey.WithWorkers(workers),
			survey.WithRule(collectRule, rule))
		n, err := r.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Stored %d survey samples\n", n)
		return nil
	},
}

func init() {
	collectCmd.Flags().Float64Var(&collectSpacing, "spacing", 0, "grid spacing in degrees (default from config)")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 0, "concurrent grid points (default from config)")
	collectCmd.Flags().StringVar(&collectRule, "rule", "v2", "labeling rule version (v1 or v2)")
	rootCmd.AddCommand(collectCmd)
}
