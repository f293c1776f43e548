package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/ironseal/internal/util"
	"github.com/jmcleod/ironseal/key"
)

const passphraseSaltSize = 16

var (
	keygenFromPassphrase bool
	keygenSalt           string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the master key file",
	Long: `Creates a new master key and writes it to the key file with owner-only
permissions. An existing key file is never overwritten.

With --passphrase the key is derived from a passphrase read from stdin using
Argon2id. Keep the printed salt: the same passphrase and salt recreate the
same key.`,
	Args: cobra.NoArgs,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().BoolVar(&keygenFromPassphrase, "passphrase", false, "Derive the key from a passphrase read from stdin")
	keygenCmd.Flags().StringVar(&keygenSalt, "salt", "", "Base64 salt for --passphrase (default: random)")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	var (
		master *key.MasterKey
		salt   []byte
		err    error
	)
	if keygenFromPassphrase {
		master, salt, err = passphraseMasterKey(cmd)
	} else {
		master, err = key.NewMasterKey()
	}
	if err != nil {
		return err
	}
	defer master.Destroy()

	if err := master.WriteFile(keyFile); err != nil {
		return err
	}
	logger.Info("master key written", "path", keyFile, "key_id", master.ID())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Key ID:   %s\n", master.ID())
	fmt.Fprintf(out, "Key file: %s\n", keyFile)
	if salt != nil {
		fmt.Fprintf(out, "Salt:     %s\n", util.EncodeBase64(salt))
	}
	return nil
}

func passphraseMasterKey(cmd *cobra.Command) (*key.MasterKey, []byte, error) {
	var salt []byte
	var err error
	if keygenSalt != "" {
		salt, err = util.DecodeBase64(keygenSalt)
		if err != nil {
			return nil, nil, fmt.Errorf("decoding salt: %w", err)
		}
	} else {
		salt, err = util.RandomBytes(passphraseSaltSize)
		if err != nil {
			return nil, nil, err
		}
	}

	passphrase, err := readValue(nil, cmd.InOrStdin())
	if err != nil {
		return nil, nil, err
	}
	master, err := key.MasterKeyFromPassphrase(passphrase, salt, util.DefaultArgon2idParams())
	if err != nil {
		return nil, nil, err
	}
	return master, salt, nil
}
