// Package cli provides the command-line interface for GapSentinel.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "gapsentinel",
		Short: "GapSentinel - daily gap and relative volume calculator",
		Long: `GapSentinel fetches daily bars for (symbol, date) pairs and computes overnight gaps,
intraday and week-over-week change and 10-day relative volume. Results are printed
and appended to the stock_data table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
	}

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newScheduleCmd(a))
	rootCmd.AddCommand(newCalendarCmd(a))
	rootCmd.AddCommand(newVersionCmd(version))

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file path (default $CONFIG_PATH or "+DefaultConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().StringVar(&a.provider, "provider", "", "override data_source.provider (yahoo, rest, longport, mock)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	return rootCmd
}
