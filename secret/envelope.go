package secret

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/jmcleod/ironseal/internal/util"
)

var (
	// metaValuePattern matches a possible envelope: base64 wrapped in braces.
	metaValuePattern = regexp.MustCompile(`^\{[A-Za-z0-9+/]+={0,2}\}$`)
	// valuePattern matches any base64 value, braces optional.
	valuePattern = regexp.MustCompile(`^\{?[A-Za-z0-9+/]+={0,2}\}?$`)
)

// LooksEncrypted reports whether s has the shape of an envelope. A match can
// be a false positive; confirm with Codec.Decode.
func LooksEncrypted(s string) bool {
	return metaValuePattern.MatchString(s)
}

// LooksEncoded reports whether s is base64, optionally wrapped in braces.
// Values that do not match cannot have been written by any release.
func LooksEncoded(s string) bool {
	return valuePattern.MatchString(s)
}

// envelope is the JSON object inside the braces. Pointer fields let parsing
// tell a missing field from an empty one.
type envelope struct {
	IV     *string `json:"iv"`
	Secret *string `json:"secret"`
}

func formatEnvelope(iv, cipherText []byte) (string, error) {
	ivText := util.EncodeBase64(iv)
	secretText := util.EncodeBase64(cipherText)
	data, err := json.Marshal(envelope{IV: &ivText, Secret: &secretText})
	if err != nil {
		return "", fmt.Errorf("marshaling envelope: %w", err)
	}
	return "{" + util.EncodeBase64(data) + "}", nil
}

func parseEnvelope(s string) (iv, cipherText []byte, err error) {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, nil, fmt.Errorf("%w: missing braces", ErrMalformedEnvelope)
	}

	data, err := util.DecodeBase64(s[1 : len(s)-1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: outer base64: %w", ErrMalformedEnvelope, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var env envelope
	if err := dec.Decode(&env); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedEnvelope)
	}
	if env.IV == nil || env.Secret == nil {
		return nil, nil, fmt.Errorf("%w: iv and secret are both required", ErrMalformedEnvelope)
	}

	iv, err = util.DecodeBase64(*env.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv: %w", ErrMalformedEnvelope, err)
	}
	cipherText, err = util.DecodeBase64(*env.Secret)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: secret: %w", ErrMalformedEnvelope, err)
	}
	return iv, cipherText, nil
}
