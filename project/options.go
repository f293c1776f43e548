package project

import "log/slog"

// DefaultNamespace is the storage namespace projects are kept in.
const DefaultNamespace = "projects"

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNamespace sets the storage namespace.
// Default: DefaultNamespace.
func WithNamespace(ns string) StoreOption {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}
