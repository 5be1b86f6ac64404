package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/atoll-dev/siteplanner/internal/geo"
)

var (
	predictLat float64
	predictLon float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the development type for one coordinate",
	RunE: func(cmd *cobra.Command, args []string) error {
		bounds := geo.FromConfig(cfg.Bounds)
		if !bounds.Contains(predictLat, predictLon) {
			cmd.PrintErrf("warning: (%.5f, %.5f) lies outside the configured region\n", predictLat, predictLon)
		}

		svc := newPredictService(cfg)
		result, err := svc.Predict(cmd.Context(), predictLat, predictLon)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	predictCmd.Flags().Float64Var(&predictLat, "lat", 0, "latitude")
	predictCmd.Flags().Float64Var(&predictLon, "lon", 0, "longitude")
	predictCmd.MarkFlagRequired("lat") //nolint:errcheck
	predictCmd.MarkFlagRequired("lon") //nolint:errcheck
	rootCmd.AddCommand(predictCmd)
}
