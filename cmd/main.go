package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"railplan.dev/railplan/feed"
	"railplan.dev/railplan/progress"
	"railplan.dev/railplan/storage"
)

var rootCmd = &cobra.Command{
	Use:          "railplan",
	Short:        "UK rail trip planning tool",
	Long:         "Ingests the National Rail open data feeds and plans journeys over them",
	SilenceUsage: true,
}

var (
	configFile   string
	databasePath string
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&databasePath, "database", "", "railplan.db", "SQLite database path")

	viper.SetDefault("base_url", "https://opendata.nationalrail.co.uk")
	viper.SetDefault("hsp_url", "https://hsp-prod.rockshore.net")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(journeysCmd)
	rootCmd.AddCommand(faresCmd)
	rootCmd.AddCommand(collectCmd)
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("railplan")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config")
	}

	viper.SetEnvPrefix("RAILPLAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			fmt.Println(err)
			os.Exit(1)
		}
	}
}

// openStore opens the database, refreshing any feeds whose expiry has
// passed.
func openStore() (*storage.Store, error) {
	return feed.Open(databasePath, feed.Config{
		Username:        viper.GetString("username"),
		Password:        viper.GetString("password"),
		BaseURL:         viper.GetString("base_url"),
		DisableDownload: viper.GetBool("disable_download"),
		BackupToLocal:   viper.GetBool("backup_to_local"),
		LocalStorageDir: viper.GetString("local_storage_dir"),
		Progress:        progress.New(nil),
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
