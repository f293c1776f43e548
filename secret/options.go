package secret

import "log/slog"

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithLegacyDecoders replaces the legacy decoder chain. Decoders are tried in
// the order given. Pass none to disable legacy decoding entirely.
func WithLegacyDecoders(decoders ...LegacyDecoder) CodecOption {
	return func(c *Codec) {
		c.legacy = LegacyChain(decoders)
	}
}

// WithLogger sets the logger used for decode diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) CodecOption {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver reports encode and decode outcomes, e.g. to metrics.
func WithObserver(o Observer) CodecOption {
	return func(c *Codec) {
		if o != nil {
			c.observer = o
		}
	}
}
