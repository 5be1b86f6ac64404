package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atoll-dev/siteplanner/internal/geo"
	"github.com/atoll-dev/siteplanner/internal/synth"
)

var synthSpacing float64

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate a synthetic training dataset over the region grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		spacing := synthSpacing
		if spacing == 0 {
			spacing = cfg.Synth.SpacingDeg
		}

		g := synth.NewGenerator(geo.FromConfig(cfg.Bounds), spacing, nil)
		n, err := synth.Run(cmd.Context(), store, g)
		if err != nil {
			return err
		}

		fmt.Printf("Stored %d synthetic samples\n", n)
		return nil
	},
}

func init() {
	synthCmd.Flags().Float64Var(&synthSpacing, "spacing", 0, "grid spacing in degrees (default from config)")
	rootCmd.AddCommand(synthCmd)
}
