// Package metrics serves a metrics snapshot over HTTP in the text
// exposition format, gzip-compressed when the client accepts it.
package metrics

import (
	"io"
)

// FmtMetrics renders the current metrics snapshot as exposition text.
// Implementations must be safe to call from concurrent scrapes and must
// report failures as errors rather than panicking.
type FmtMetrics interface {
	FmtMetrics(w io.Writer) error
}

// FmtFunc adapts an ordinary function to FmtMetrics.
type FmtFunc func(w io.Writer) error

// FmtMetrics calls f(w).
func (f FmtFunc) FmtMetrics(w io.Writer) error {
	return f(w)
}

// Multi renders each source in order into the same writer. Rendering stops
// at the first error.
func Multi(sources ...FmtMetrics) FmtMetrics {
	return FmtFunc(func(w io.Writer) error {
		for _, src := range sources {
			if err := src.FmtMetrics(w); err != nil {
				return err
			}
		}
		return nil
	})
}
