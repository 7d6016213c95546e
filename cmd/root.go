// Package cmd implements the command-line interface for the kommune content
// crawler. It provides the root command and subcommands for running the
// ingestion pipeline and managing its artifacts.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdagents "github.com/kommuneai/crawler/cmd/agents"
	cmdbackup "github.com/kommuneai/crawler/cmd/backup"
	cmdcrawl "github.com/kommuneai/crawler/cmd/crawl"
	cmdruns "github.com/kommuneai/crawler/cmd/runs"
	cmdschedule "github.com/kommuneai/crawler/cmd/schedule"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug logging for all commands.
	Debug bool

	// rootCmd represents the root command for the crawler CLI.
	rootCmd = &cobra.Command{
		Use:   "kommunecrawl",
		Short: "Kommune content-ingestion pipeline",
		Long: `Crawls the configured sources of a Kommune's topic agents, normalizes
the results into canonical records, and maintains compressed and backed-up
generations of the data for the downstream conversational agent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to Viper
	_ = godotenv.Load()

	// Parse flags early so --debug is visible before logger creation
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kommunecrawl version %s\n", version)
		},
	})

	rootCmd.AddCommand(cmdcrawl.Command())
	rootCmd.AddCommand(cmdagents.Command())
	rootCmd.AddCommand(cmdbackup.Command())
	rootCmd.AddCommand(cmdruns.Command())
	rootCmd.AddCommand(cmdschedule.Command())
}

// initConfig reads the config file and environment variables into Viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvPrefix("CRAWLER")
	viper.AutomaticEnv()

	if Debug {
		viper.Set("log.level", "debug")
		viper.Set("log.development", true)
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}
