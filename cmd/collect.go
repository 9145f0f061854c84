package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"railplan.dev/railplan/hsp"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collects delay training data from the HSP API",
	Args:  cobra.NoArgs,
	RunE:  collect,
}

var (
	sampleCount  int
	threadCount  int
	collectorOut string
)

func init() {
	collectCmd.Flags().IntVarP(&sampleCount, "count", "c", 0, "Number of samples to collect per thread")
	collectCmd.Flags().IntVarP(&threadCount, "thread-count", "t", 1, "Number of threads to use")
	collectCmd.Flags().StringVarP(&collectorOut, "output", "o", "", "Path of output csv file")
	collectCmd.MarkFlagRequired("count")
	collectCmd.MarkFlagRequired("output")
}

func collect(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	collector := &hsp.Collector{
		Client: &hsp.Client{
			URL:      viper.GetString("hsp_url"),
			Username: viper.GetString("username"),
			Password: viper.GetString("password"),
		},
		Store:       store,
		Count:       sampleCount,
		ThreadCount: threadCount,
		Output:      collectorOut,
	}
	return collector.Run(context.Background())
}
