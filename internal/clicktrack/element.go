package clicktrack

import "slices"

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (r Rect) Center() (x, y float64) {
	return r.Left + r.Width/2, r.Top + r.Height/2
}

// Element is one node of the presentation tree as seen by a click.
type Element struct {
	ID         string            `json:"id,omitempty"`
	Classes    []string          `json:"classes,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Rect       Rect              `json:"rect"`
	Parent     *Element          `json:"-"`
}

// HasClass reports whether the element carries class name.
func (e *Element) HasClass(name string) bool {
	return e != nil && slices.Contains(e.Classes, name)
}

// Attr returns an attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil || e.Attributes == nil {
		return "", false
	}
	v, ok := e.Attributes[name]
	return v, ok
}

// Closest returns the element itself or its nearest ancestor matching fn.
func (e *Element) Closest(fn func(*Element) bool) *Element {
	for el := e; el != nil; el = el.Parent {
		if fn(el) {
			return el
		}
	}
	return nil
}

// LinkPath turns a target-first ancestry path into a linked chain and
// returns the target. The last entry is the root. An empty path yields nil.
func LinkPath(path []Element) *Element {
	if len(path) == 0 {
		return nil
	}
	nodes := make([]*Element, len(path))
	for i := range path {
		el := path[i]
		nodes[i] = &el
	}
	for i := 0; i < len(nodes)-1; i++ {
		nodes[i].Parent = nodes[i+1]
	}
	nodes[len(nodes)-1].Parent = nil
	return nodes[0]
}
