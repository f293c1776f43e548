package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmcleod/ironseal/key"
	"github.com/jmcleod/ironseal/secret"
)

// loadCodec opens the master key file and builds the codec every command
// shares. The master key is dropped as soon as the purpose key is derived.
func loadCodec(opts ...secret.CodecOption) (*secret.Codec, error) {
	master, err := key.LoadMasterKeyFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading master key (run 'ironseal keygen' first?): %w", err)
	}
	defer master.Destroy()

	ck, err := key.NewConfidentialKey(master, purpose)
	if err != nil {
		return nil, err
	}
	logger.Debug("master key loaded", "key_id", master.ID(), "purpose", purpose)

	base := []secret.CodecOption{
		secret.WithLogger(logger),
		secret.WithLegacyDecoders(legacyChain(legacySecret)...),
	}
	return secret.NewCodec(ck, append(base, opts...)...), nil
}

// legacyChain is the provider's own legacy decoder, followed by the
// historical key when a legacy secret is configured.
func legacyChain(legacySecret string) []secret.LegacyDecoder {
	chain := []secret.LegacyDecoder{secret.ProviderMagicDecoder()}
	if legacySecret != "" {
		chain = append(chain, key.NewLegacyKey(legacySecret).MagicDecoder())
	}
	return chain
}

// readValue returns the single positional argument, or the first line of
// in when there is none. Reading from stdin keeps secrets out of shell
// history.
func readValue(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading value from stdin: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
