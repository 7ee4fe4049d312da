package scene

import (
	"sort"

	"github.com/gogpu/reel"
)

// Placed is a drawable primitive with its effective transform and
// combined depth, as produced by Flatten.
type Placed struct {
	Object    Object
	Transform reel.Matrix
	Depth     float64
}

// queueEntry pairs a node with the transform and depth accumulated from
// its ancestors.
type queueEntry struct {
	node      *Node
	transform reel.Matrix
	depth     float64
}

// Flatten walks the frame's scene forest breadth-first and returns its
// drawable primitives ordered by ascending combined depth. Ties keep
// discovery order (the sort is stable), so siblings at equal depth draw
// in declaration order.
//
// An invisible node is skipped together with its whole subtree. Each
// emitted primitive carries the composition of all ancestor transforms
// with its node's local transform, premultiplied by the camera view.
func Flatten(frame *FrameDescription) []Placed {
	view := frame.Settings.Camera.Matrix()

	var queue []queueEntry
	for i := range frame.Things {
		queue = append(queue, queueEntry{
			node:      &frame.Things[i],
			transform: view,
			depth:     0,
		})
	}

	var out []Placed
	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		n := entry.node
		if !n.Visible {
			continue
		}
		transform := entry.transform.Multiply(n.Transform.Matrix())
		depth := entry.depth + n.Z

		for i := range n.Children {
			child := &n.Children[i]
			if child.Node != nil {
				queue = append(queue, queueEntry{
					node:      child.Node,
					transform: transform,
					depth:     depth,
				})
				continue
			}
			out = append(out, Placed{
				Object:    child.Leaf,
				Transform: transform,
				Depth:     depth,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Depth < out[j].Depth
	})
	return out
}
