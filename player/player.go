// Package player owns the interactive side of the pipeline: playback
// pacing, contention between redraw and export, and presentation
// fallbacks.
//
// The renderer and every GPU object behind it belong to one logical
// owner at a time. The redraw path uses a non-blocking try-acquire and
// falls back to the most recent frame when an export holds the
// renderer; export takes exclusive ownership for its whole duration.
// Texture refresh requests that arrive while the renderer is busy are
// queued and applied at the next acquisition.
package player

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/render"
	"github.com/gogpu/reel/scene"
	"github.com/gogpu/reel/video"
)

// ErrExportInProgress is returned when an export is requested while a
// previous one still holds the renderer.
var ErrExportInProgress = errors.New("player: export already in progress")

// SurfaceAction tells the presentation loop how to react to a surface
// acquisition failure.
type SurfaceAction int

const (
	// ActionNone means the error is not a surface error.
	ActionNone SurfaceAction = iota
	// ActionReconfigure means the surface must be resized or recreated
	// before the next frame.
	ActionReconfigure
	// ActionSkip means the frame should be dropped and presentation
	// retried next tick.
	ActionSkip
	// ActionFatal means the render loop must terminate.
	ActionFatal
)

// ClassifySurfaceError maps a surface acquisition failure to the action
// the presentation loop should take. Lost and outdated surfaces are
// recoverable by reconfiguring, a timeout only costs the current frame,
// and out-of-memory ends the loop.
func ClassifySurfaceError(err error) SurfaceAction {
	var surfErr *reel.SurfaceError
	if !errors.As(err, &surfErr) {
		return ActionNone
	}
	switch surfErr.Kind {
	case reel.SurfaceLost, reel.SurfaceOutdated:
		return ActionReconfigure
	case reel.SurfaceTimeout:
		return ActionSkip
	default:
		return ActionFatal
	}
}

// Player paces playback over a clip and mediates renderer access
// between the redraw path and export.
type Player struct {
	// renderMu guards the renderer and all GPU state behind it.
	// Present tries it without blocking; export holds it outright.
	renderMu sync.Mutex
	renderer render.FrameRenderer

	res  render.Resolution
	clip *scene.VideoDescription

	mu       sync.Mutex
	frame    int
	playing  bool
	lastTick time.Time
	fatal    error

	lastFrame      atomic.Pointer[image.RGBA]
	refreshPending atomic.Bool
	exporting      atomic.Bool

	// reconfigure recreates the presentation surface after a lost or
	// outdated error. Optional; without it a reconfigure-class error is
	// treated as a skipped frame.
	reconfigure func() error
}

// New creates a player over the clip. The player takes over scheduling
// of the renderer but not its lifetime; the caller still closes it.
func New(renderer render.FrameRenderer, clip *scene.VideoDescription) *Player {
	return &Player{
		renderer: renderer,
		res:      renderer.Resolution(),
		clip:     clip,
	}
}

// SetReconfigure installs the surface reconfiguration hook used after
// recoverable surface errors.
func (p *Player) SetReconfigure(fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reconfigure = fn
}

// Frame reports the current play head.
func (p *Player) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// Playing reports whether the play head advances on ticks.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Err reports the fatal presentation error that stopped the loop, if
// any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fatal
}

// Play starts playback from the current play head.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fatal != nil {
		return
	}
	p.playing = true
	p.lastTick = time.Time{}
}

// Pause halts playback without moving the play head.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Seek moves the play head, clamped to the clip bounds.
func (p *Player) Seek(frame int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frame = p.clampLocked(frame)
}

// Step moves the play head by delta frames. Stepping past either end
// clamps to the boundary and stops playback.
func (p *Player) Step(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	target := p.frame + delta
	clamped := p.clampLocked(target)
	if clamped != target {
		p.playing = false
	}
	p.frame = clamped
}

// Tick advances the play head when at least one frame interval of
// wall-clock time has elapsed since the last advance. The head moves at
// most one frame per tick; reaching the end of the clip clamps and
// stops playback.
func (p *Player) Tick(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.clip.FPS <= 0 {
		return
	}
	if p.lastTick.IsZero() {
		p.lastTick = now
		return
	}
	interval := time.Second / time.Duration(p.clip.FPS)
	if now.Sub(p.lastTick) < interval {
		return
	}
	p.lastTick = now

	if p.frame >= len(p.clip.Frames)-1 {
		p.frame = p.clampLocked(len(p.clip.Frames) - 1)
		p.playing = false
		return
	}
	p.frame++
}

func (p *Player) clampLocked(frame int) int {
	if frame < 0 {
		return 0
	}
	if last := len(p.clip.Frames) - 1; frame > last {
		if last < 0 {
			return 0
		}
		return last
	}
	return frame
}

// RequestTextureRefresh asks for the registry's textures to be re-read.
// Applied immediately when the renderer is idle, otherwise queued and
// applied at the next acquisition (typically when export finishes).
func (p *Player) RequestTextureRefresh() {
	p.refreshPending.Store(true)
	if p.renderMu.TryLock() {
		defer p.renderMu.Unlock()
		p.applyRefreshLocked()
	}
}

// applyRefreshLocked runs a pending refresh. Caller holds renderMu.
func (p *Player) applyRefreshLocked() {
	if !p.refreshPending.CompareAndSwap(true, false) {
		return
	}
	if err := p.renderer.RefreshTextures(); err != nil {
		reel.Logger().Error("texture refresh failed", "error", err)
		p.refreshPending.Store(true)
	}
}

// Present returns the raster frame for the current play head. The
// renderer is acquired without blocking: when an export holds it, or
// when the frame cannot be rendered this tick, the most recently
// rendered frame is re-presented instead, or a black frame if nothing
// has been rendered yet. Present never fails; fatal errors stop
// playback and are reported through Err.
func (p *Player) Present() *image.RGBA {
	if !p.renderMu.TryLock() {
		return p.staleFrame()
	}
	defer p.renderMu.Unlock()

	p.applyRefreshLocked()

	p.mu.Lock()
	frame := p.frame
	p.mu.Unlock()
	if frame >= len(p.clip.Frames) {
		return p.staleFrame()
	}

	img, err := p.renderer.RenderFrame(&p.clip.Frames[frame])
	if err != nil {
		p.handleRenderError(frame, err)
		return p.staleFrame()
	}
	p.lastFrame.Store(img)
	return img
}

func (p *Player) handleRenderError(frame int, err error) {
	switch ClassifySurfaceError(err) {
	case ActionReconfigure:
		reel.Logger().Warn("surface needs reconfigure", "frame", frame, "error", err)
		p.mu.Lock()
		fn := p.reconfigure
		p.mu.Unlock()
		if fn != nil {
			if recErr := fn(); recErr != nil {
				reel.Logger().Error("surface reconfigure failed", "error", recErr)
			}
		}
	case ActionSkip:
		reel.Logger().Debug("surface timeout, skipping frame", "frame", frame)
	case ActionFatal:
		reel.Logger().Error("fatal surface error", "frame", frame, "error", err)
		p.mu.Lock()
		p.fatal = err
		p.playing = false
		p.mu.Unlock()
	default:
		// Geometry or resource errors degrade to the stale frame in the
		// interactive path; they only abort exports.
		reel.Logger().Warn("frame render failed", "frame", frame, "error", err)
	}
}

func (p *Player) staleFrame() *image.RGBA {
	if img := p.lastFrame.Load(); img != nil {
		return img
	}
	return render.BlackFrame(p.res)
}

// StartExport encodes the whole clip on its own goroutine while holding
// exclusive renderer access. At most one export runs at a time; the
// returned channel receives the export result exactly once. Texture
// refresh requests made during the export are applied when it finishes.
func (p *Player) StartExport(ctx context.Context, enc video.Encoder, progress video.ProgressFunc) (<-chan error, error) {
	if !p.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	done := make(chan error, 1)
	go func() {
		p.renderMu.Lock()
		defer p.renderMu.Unlock()
		defer p.exporting.Store(false)

		err := video.Export(ctx, p.clip, p.renderer, enc, progress)
		p.applyRefreshLocked()
		done <- err
	}()
	return done, nil
}

// Exporting reports whether an export currently holds the renderer.
func (p *Player) Exporting() bool {
	return p.exporting.Load()
}
