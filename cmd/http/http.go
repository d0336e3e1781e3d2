package http

import "github.com/spf13/cobra"

// NewHTTPCommand groups the commands that run the booking API.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Booking API server commands",
	}

	cmd.AddCommand(NewStartCommand())

	return cmd
}
