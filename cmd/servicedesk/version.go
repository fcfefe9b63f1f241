package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/servicedesk"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of servicedesk",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "servicedesk version %s\n", strings.TrimSpace(servicedesk.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
