package engine

import (
	"github.com/cabewaldrop/docdb/internal/config"
	"github.com/cabewaldrop/docdb/internal/document"
)

// DefaultBufferCapacity is a sane default page count for the buffer pool
// when the caller doesn't specify one.
const DefaultBufferCapacity = 64

// Option configures an Engine at construction time.
type Option func(*settings)

type settings struct {
	bufferCapacity  int
	maxDocumentSize int
	skipValidation  bool
	compression     bool
	configErr       error
}

func defaultSettings() settings {
	return settings{
		bufferCapacity:  DefaultBufferCapacity,
		maxDocumentSize: document.MaxDocumentSize,
	}
}

// WithBufferCapacity sets the buffer pool's resident page capacity.
func WithBufferCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.bufferCapacity = n
		}
	}
}

// WithMaxDocumentSize overrides the encoded-size cap enforced on Insert/Update.
func WithMaxDocumentSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxDocumentSize = n
		}
	}
}

// WithSkipValidation disables automatic document.Validator invocation on
// Insert/Update for callers who want a looser default.
func WithSkipValidation(skip bool) Option {
	return func(s *settings) { s.skipValidation = skip }
}

// WithCompression enables the optional zstd compression hook used by
// Compact when persisting a page whose heap shrank by more than half.
// Disabled by default; see DESIGN.md for the rationale.
func WithCompression(enabled bool) Option {
	return func(s *settings) { s.compression = enabled }
}

// WithConfigFile loads buffer capacity, max document size, skip-validation,
// and compression settings from a YAML file, applying them before any
// options listed after it in the Open call.
func WithConfigFile(path string) Option {
	return func(s *settings) {
		cfg, err := config.Load(path)
		if err != nil {
			s.configErr = err
			return
		}
		if cfg.BufferCapacity > 0 {
			s.bufferCapacity = cfg.BufferCapacity
		}
		if cfg.MaxDocumentSize > 0 {
			s.maxDocumentSize = cfg.MaxDocumentSize
		}
		s.skipValidation = cfg.SkipValidation
		s.compression = cfg.Compression
	}
}
