package secret

import "errors"

var (
	// ErrConfiguration indicates the key provider itself is broken (bad key
	// size, destroyed key material). Encode surfaces it; decoding treats it as
	// "cannot open this format" and falls back.
	ErrConfiguration = errors.New("key configuration fault")
	// ErrMalformedEnvelope indicates a value that does not parse as an envelope.
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrDecryptionFailed indicates a well-formed envelope that the installation key cannot open.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrLegacyChainExhausted indicates no legacy decoder recognized the value.
	ErrLegacyChainExhausted = errors.New("no legacy decoder recognized the value")
)
