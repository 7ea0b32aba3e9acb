package main

import (
	"fmt"

	"github.com/metinatakli/cinex-booking/internal/app"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the seatd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), app.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
