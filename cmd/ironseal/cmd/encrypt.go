package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironseal/secret"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt [value]",
	Short: "Encrypt a value into an envelope",
	Long: `Prints the envelope for a value. The value is read from stdin when no
argument is given, which keeps it out of shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEncrypt,
}

func init() {
	rootCmd.AddCommand(encryptCmd)
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	value, err := readValue(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	codec, err := loadCodec()
	if err != nil {
		return err
	}
	env, err := codec.Encode(secret.New(value))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), env)
	return nil
}
