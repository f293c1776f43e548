package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

const banner = `
  ___                ____             _
 |_ _|_ __ ___  _ __/ ___|  ___  __ _| |
  | || '__/ _ \| '_ \___ \ / _ \/ _` + "`" + ` | |
  | || | | (_) | | | |__) |  __/ (_| | |
 |___|_|  \___/|_| |_|____/ \___|\__,_|_|

`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Configuration Secret Encryption - Version %s\x1b[0m\n\n", Version)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		printBanner(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
