package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atoll-dev/siteplanner/internal/feature"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the POI feature cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired and corrupt cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cache := feature.NewFileCache(cfg.Cache.Dir, cfg.Cache.TTL())
		removed, err := cache.Purge()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d cache entries\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
