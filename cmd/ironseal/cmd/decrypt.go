package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNotDecryptable = errors.New("value cannot be decrypted with the configured keys")

var decryptFallback bool

var decryptCmd = &cobra.Command{
	Use:   "decrypt [value]",
	Short: "Decrypt an envelope or legacy value",
	Long: `Prints the plaintext of a stored value. The value is read from stdin when
no argument is given.

Without --fallback a value that no key can open is an error. With it the
value is printed as is, the same way configuration loading treats it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecrypt,
}

func init() {
	rootCmd.AddCommand(decryptCmd)
	decryptCmd.Flags().BoolVar(&decryptFallback, "fallback", false, "Treat undecryptable input as plain text")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	raw, err := readValue(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	codec, err := loadCodec()
	if err != nil {
		return err
	}

	if decryptFallback {
		fmt.Fprintln(cmd.OutOrStdout(), codec.FromString(raw).PlainText())
		return nil
	}
	s := codec.Decrypt(raw)
	if s == nil {
		return errNotDecryptable
	}
	fmt.Fprintln(cmd.OutOrStdout(), s.PlainText())
	return nil
}
