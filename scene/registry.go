package scene

import (
	"fmt"
	"image"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/reel"
)

// Registry maps texture ids to decoded RGBA images. The resource-loading
// collaborator owns writes; the batch compiler only reads by id.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	textures map[uint32]*image.RGBA
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{textures: make(map[uint32]*image.RGBA)}
}

// Set stores a decoded image under id, converting to RGBA if needed.
// Replaces any previous image with the same id.
func (r *Registry) Set(id uint32, img image.Image) {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	}

	r.mu.Lock()
	r.textures[id] = rgba
	r.mu.Unlock()
}

// Lookup returns the image stored under id. A missing id is a hard
// error: the caller must abort the frame rather than draw without the
// texture.
func (r *Registry) Lookup(id uint32) (*image.RGBA, error) {
	r.mu.RLock()
	img, ok := r.textures[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("texture id %d: %w", id, reel.ErrMissingResource)
	}
	return img, nil
}

// Remove deletes the image stored under id, if any.
func (r *Registry) Remove(id uint32) {
	r.mu.Lock()
	delete(r.textures, id)
	r.mu.Unlock()
}

// IDs returns the currently registered texture ids, in no particular order.
func (r *Registry) IDs() []uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint32, 0, len(r.textures))
	for id := range r.textures {
		ids = append(ids, id)
	}
	return ids
}
