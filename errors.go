package reel

import (
	"errors"
	"fmt"
)

// ErrMissingResource reports that a primitive references a texture id
// absent from the registry. Fatal to the frame being compiled and, during
// export, to the whole export.
var ErrMissingResource = errors.New("missing resource")

// TessellationError reports degenerate stroke geometry. It is a hard
// error for the frame: dropping the primitive instead would make an
// exported video diverge silently from the interactive preview.
type TessellationError struct {
	Reason string
}

func (e *TessellationError) Error() string {
	return "tessellation failed: " + e.Reason
}

// SurfaceErrorKind classifies surface-acquisition failures on the
// interactive presentation path.
type SurfaceErrorKind int

const (
	// SurfaceLost means the surface must be reconfigured before the next
	// frame. Recoverable.
	SurfaceLost SurfaceErrorKind = iota

	// SurfaceOutdated means the surface no longer matches the window and
	// must be reconfigured. Recoverable.
	SurfaceOutdated

	// SurfaceOutOfMemory is fatal: the render loop must terminate.
	SurfaceOutOfMemory

	// SurfaceTimeout means frame acquisition timed out. Log and skip the
	// frame; the next tick retries.
	SurfaceTimeout
)

// SurfaceError reports a failure to acquire the presentation surface.
type SurfaceError struct {
	Kind SurfaceErrorKind
}

func (e *SurfaceError) Error() string {
	switch e.Kind {
	case SurfaceLost:
		return "surface lost"
	case SurfaceOutdated:
		return "surface outdated"
	case SurfaceOutOfMemory:
		return "surface out of memory"
	case SurfaceTimeout:
		return "surface timeout"
	}
	return fmt.Sprintf("surface error (%d)", int(e.Kind))
}

// Recoverable reports whether the surface should be reconfigured and
// rendering retried on the next frame.
func (e *SurfaceError) Recoverable() bool {
	return e.Kind == SurfaceLost || e.Kind == SurfaceOutdated
}

// EncoderError reports a codec or muxer failure during export. The
// sequencer still attempts to flush any partial output so the file on
// disk stays playable.
type EncoderError struct {
	Frame int
	Err   error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("encoder failed at frame %d: %v", e.Frame, e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }
