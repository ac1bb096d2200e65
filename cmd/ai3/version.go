package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/your-org/ai3/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}
