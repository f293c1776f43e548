// Package key provides the installation master key and the ciphers derived
// from it for secret.Codec.
//
// The master key lives in a memguard Enclave and is only decrypted into a
// locked buffer for the duration of a single derivation.
package key
