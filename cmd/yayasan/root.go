package main

import (
	"fmt"

	"github.com/goliatone/go-yayasan/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	cfg     *config.Config
	logger  *slogLogger
	printer *Printer
)

var rootCmd = &cobra.Command{
	Use:   "yayasan",
	Short: "Yayasan site client",
	Long: `yayasan runs the server rendered site and talks to the Yayasan backend
from the terminal. Terminal sessions are kept in the file token store so
they survive between runs.

Example usage:
  yayasan serve                     # Run the web front
  yayasan login admin1              # Log in as staff
  yayasan signin siti@example.org   # Sign in as an applicant
  yayasan status                    # Show the current session
  yayasan news                      # List the latest news`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./yayasan.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
}

func initConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger = newLogger(cmd.ErrOrStderr(), level)
	printer = NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !noColor)

	logger.Debug("configuration loaded: api=%s store=%s", cfg.API.BaseURL, cfg.Store.Driver)
	return nil
}
