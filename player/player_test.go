package player

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/reel"
	"github.com/gogpu/reel/render"
	"github.com/gogpu/reel/scene"
)

type stubRenderer struct {
	mu        sync.Mutex
	res       render.Resolution
	renderErr error
	renders   int
	refreshes int
}

func newStubRenderer() *stubRenderer {
	return &stubRenderer{res: render.Resolution{Width: 4, Height: 2}}
}

func (r *stubRenderer) RenderFrame(*scene.FrameDescription) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.renderErr != nil {
		return nil, r.renderErr
	}
	img := image.NewRGBA(image.Rect(0, 0, r.res.Width, r.res.Height))
	for i := range img.Pix {
		img.Pix[i] = byte(r.renders + 1)
	}
	r.renders++
	return img, nil
}

func (r *stubRenderer) Resolution() render.Resolution { return r.res }

func (r *stubRenderer) RefreshTextures() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes++
	return nil
}

func (r *stubRenderer) Close() error { return nil }

func (r *stubRenderer) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderErr = err
}

func (r *stubRenderer) refreshCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshes
}

// blockingEncoder parks inside Start until released, pinning the
// renderer for the duration of an export.
type blockingEncoder struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingEncoder() *blockingEncoder {
	return &blockingEncoder{started: make(chan struct{}), release: make(chan struct{})}
}

func (e *blockingEncoder) Start(width, height, fps int) error {
	close(e.started)
	<-e.release
	return fmt.Errorf("released early")
}

func (e *blockingEncoder) WriteFrame([]byte) error { return nil }
func (e *blockingEncoder) Close() error            { return nil }

func clipOf(n, fps int) *scene.VideoDescription {
	desc := &scene.VideoDescription{FPS: fps}
	for i := 0; i < n; i++ {
		desc.Frames = append(desc.Frames, scene.FrameDescription{
			Settings: scene.DefaultSettings(),
		})
	}
	return desc
}

func TestTickPacing(t *testing.T) {
	p := New(newStubRenderer(), clipOf(10, 16))
	p.Play()

	t0 := time.Unix(100, 0)
	p.Tick(t0)
	if p.Frame() != 0 {
		t.Fatalf("frame = %d after first tick, want 0", p.Frame())
	}

	// 16 fps means one frame per 62.5ms; 30ms is not enough.
	p.Tick(t0.Add(30 * time.Millisecond))
	if p.Frame() != 0 {
		t.Errorf("frame advanced after 30ms, want hold")
	}

	p.Tick(t0.Add(70 * time.Millisecond))
	if p.Frame() != 1 {
		t.Errorf("frame = %d after 70ms, want 1", p.Frame())
	}

	// Same instant again: no double advance.
	p.Tick(t0.Add(70 * time.Millisecond))
	if p.Frame() != 1 {
		t.Errorf("frame = %d after repeated tick, want 1", p.Frame())
	}
}

func TestTickClampsAtEnd(t *testing.T) {
	p := New(newStubRenderer(), clipOf(3, 16))
	p.Seek(2)
	p.Play()

	t0 := time.Unix(100, 0)
	p.Tick(t0)
	p.Tick(t0.Add(time.Second))
	if p.Frame() != 2 {
		t.Errorf("frame = %d, want clamp at 2", p.Frame())
	}
	if p.Playing() {
		t.Error("playback must stop at the last frame")
	}
}

func TestStepClamps(t *testing.T) {
	p := New(newStubRenderer(), clipOf(3, 16))
	p.Play()

	p.Step(-1)
	if p.Frame() != 0 {
		t.Errorf("frame = %d, want 0", p.Frame())
	}
	if p.Playing() {
		t.Error("stepping before the first frame must stop playback")
	}

	p.Play()
	p.Step(10)
	if p.Frame() != 2 {
		t.Errorf("frame = %d, want 2", p.Frame())
	}
	if p.Playing() {
		t.Error("stepping past the last frame must stop playback")
	}
}

func TestSeekClamps(t *testing.T) {
	p := New(newStubRenderer(), clipOf(3, 16))
	p.Seek(100)
	if p.Frame() != 2 {
		t.Errorf("frame = %d, want 2", p.Frame())
	}
	p.Seek(-5)
	if p.Frame() != 0 {
		t.Errorf("frame = %d, want 0", p.Frame())
	}
}

func TestPresentFallsBackToStaleFrame(t *testing.T) {
	renderer := newStubRenderer()
	p := New(renderer, clipOf(3, 16))

	first := p.Present()
	if first == nil || first.Pix[0] != 1 {
		t.Fatal("first present did not render")
	}

	// A failed render re-presents the previous frame.
	renderer.setError(fmt.Errorf("compile failed: %w", reel.ErrMissingResource))
	again := p.Present()
	if again != first {
		t.Error("expected the previously rendered frame on failure")
	}
}

func TestPresentBlackFrameBeforeFirstRender(t *testing.T) {
	renderer := newStubRenderer()
	renderer.setError(fmt.Errorf("boom"))
	p := New(renderer, clipOf(3, 16))

	img := p.Present()
	if img == nil {
		t.Fatal("nil frame")
	}
	b := img.Bounds()
	if b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("fallback bounds = %v, want 4x2", b)
	}
	if img.Pix[0] != 0 || img.Pix[3] != 255 {
		t.Errorf("fallback pixel = %v, want opaque black", img.Pix[:4])
	}
}

func TestPresentDuringExportDoesNotBlock(t *testing.T) {
	renderer := newStubRenderer()
	p := New(renderer, clipOf(3, 16))

	first := p.Present()

	enc := newBlockingEncoder()
	done, err := p.StartExport(context.Background(), enc, nil)
	if err != nil {
		t.Fatalf("StartExport: %v", err)
	}
	<-enc.started

	got := p.Present()
	if got != first {
		t.Error("present during export must return the stale frame")
	}
	if !p.Exporting() {
		t.Error("Exporting() = false during export")
	}

	close(enc.release)
	<-done
}

func TestSecondExportRejected(t *testing.T) {
	p := New(newStubRenderer(), clipOf(3, 16))

	enc := newBlockingEncoder()
	done, err := p.StartExport(context.Background(), enc, nil)
	if err != nil {
		t.Fatalf("StartExport: %v", err)
	}
	<-enc.started

	if _, err := p.StartExport(context.Background(), newBlockingEncoder(), nil); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("second export error = %v, want ErrExportInProgress", err)
	}

	close(enc.release)
	<-done
}

func TestRefreshQueuedDuringExport(t *testing.T) {
	renderer := newStubRenderer()
	p := New(renderer, clipOf(3, 16))

	enc := newBlockingEncoder()
	done, err := p.StartExport(context.Background(), enc, nil)
	if err != nil {
		t.Fatalf("StartExport: %v", err)
	}
	<-enc.started

	p.RequestTextureRefresh()
	if renderer.refreshCount() != 0 {
		t.Error("refresh applied while export holds the renderer")
	}

	close(enc.release)
	<-done
	if renderer.refreshCount() != 1 {
		t.Errorf("refreshes after export = %d, want 1", renderer.refreshCount())
	}
}

func TestRefreshAppliedWhenIdle(t *testing.T) {
	renderer := newStubRenderer()
	p := New(renderer, clipOf(3, 16))

	p.RequestTextureRefresh()
	if renderer.refreshCount() != 1 {
		t.Errorf("refreshes = %d, want immediate apply", renderer.refreshCount())
	}
}

func TestClassifySurfaceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want SurfaceAction
	}{
		{"lost", &reel.SurfaceError{Kind: reel.SurfaceLost}, ActionReconfigure},
		{"outdated", &reel.SurfaceError{Kind: reel.SurfaceOutdated}, ActionReconfigure},
		{"timeout", &reel.SurfaceError{Kind: reel.SurfaceTimeout}, ActionSkip},
		{"oom", &reel.SurfaceError{Kind: reel.SurfaceOutOfMemory}, ActionFatal},
		{"wrapped", fmt.Errorf("present: %w", &reel.SurfaceError{Kind: reel.SurfaceLost}), ActionReconfigure},
		{"other", errors.New("not a surface error"), ActionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifySurfaceError(tt.err); got != tt.want {
				t.Errorf("ClassifySurfaceError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFatalSurfaceErrorStopsPlayback(t *testing.T) {
	renderer := newStubRenderer()
	renderer.setError(&reel.SurfaceError{Kind: reel.SurfaceOutOfMemory})
	p := New(renderer, clipOf(3, 16))
	p.Play()

	p.Present()
	if p.Err() == nil {
		t.Error("fatal error not recorded")
	}
	if p.Playing() {
		t.Error("playback must stop after a fatal surface error")
	}
	// Play refuses to restart a dead loop.
	p.Play()
	if p.Playing() {
		t.Error("playback restarted after fatal error")
	}
}

func TestReconfigureHookCalledOnLostSurface(t *testing.T) {
	renderer := newStubRenderer()
	renderer.setError(&reel.SurfaceError{Kind: reel.SurfaceLost})
	p := New(renderer, clipOf(3, 16))

	calls := 0
	p.SetReconfigure(func() error {
		calls++
		return nil
	})

	p.Present()
	if calls != 1 {
		t.Errorf("reconfigure calls = %d, want 1", calls)
	}
	if p.Err() != nil {
		t.Errorf("lost surface recorded as fatal: %v", p.Err())
	}
}
