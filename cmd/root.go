// Package cmd implements the command-line interface for EthoScraper.
// It provides the root command and subcommands for running scrape jobs and
// validating target configurations.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Maybol283/EthoScraper/cmd/scrape"
	"github.com/Maybol283/EthoScraper/cmd/target"
)

// version is set at build time.
var version = "0.1.0"

var (
	// Debug enables debug mode for all commands.
	Debug bool

	// rootCmd represents the root command for the EthoScraper CLI.
	rootCmd = &cobra.Command{
		Use:   "ethoscraper",
		Short: "An ethics-first declarative web scraper",
		Long: `EthoScraper crawls websites described by a target.yaml job file,
extracts fields through declarative transformation chains, applies privacy
redaction, and writes the records to CSV, JSON, or YAML.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to Viper
	_ = godotenv.Load()

	// Parse flags early to get the debug flag before commands build loggers
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ethoscraper version %s\n", version)
		},
	})

	rootCmd.AddCommand(scrape.Command())
	rootCmd.AddCommand(target.Command())
}

// initConfig wires environment variables and defaults into Viper. The job
// file carries the crawl configuration; Viper only covers ambient settings.
func initConfig() error {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ETHOSCRAPER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("compliance.file", "compliance.yaml")

	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}

	if viper.GetBool("app.debug") {
		viper.Set("logger.level", "debug")
	}

	return nil
}
