package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/pitchside/pitchside_backend/cmd/http"
	systemcmd "github.com/pitchside/pitchside_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "pitchside",
	Short: "Pitchside venue and game booking backend.",
	Long: `Pitchside lets players book sports venues by the hour and join pickup games.
It serves venue availability, takes payment through Stripe checkout and
confirms bookings without ever double-booking a slot.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global config flag, available for all commands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
