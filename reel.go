// Package reel renders hierarchical 2D scene descriptions into raster
// frames and assembles frame sequences into encoded video.
//
// The pipeline is: a scene description (scene.FrameDescription) is
// flattened into a depth-ordered list of drawable primitives, vector
// strokes are tessellated into triangle meshes, primitives are compiled
// into GPU draw batches (render package), and each frame is rendered
// off-screen and either presented interactively (player package) or
// handed to a video encoder (video package).
//
// The root package holds the shared geometric and color primitives plus
// the library-wide logger and error taxonomy.
package reel
