// Package secret keeps sensitive strings encrypted whenever they are
// persisted.
//
// A Secret holds its plaintext in memory. A Codec turns it into an envelope
// for storage:
//
//	{base64({"iv":"<base64 IV>","secret":"<base64 ciphertext>"})}
//
// Reading is permissive. Codec.FromString accepts any string: a current
// envelope is decrypted, a value written by an older release is handed to the
// legacy decoder chain, and anything else is taken to be the plaintext itself.
// Values stored before encryption was introduced therefore keep working, and
// the next save rewrites them as envelopes.
//
// Matching the envelope shape is not proof of encryption: a plaintext
// password can look like base64 wrapped in braces. Only a successful decode
// distinguishes the two.
package secret
