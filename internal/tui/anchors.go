package tui

// Rect is a cell rectangle. W and H are exclusive.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether the cell (x, y) is inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Node is an element in the TUI document tree. Anchors, their labels and
// popup surfaces are all nodes; the tree is what outside-click containment
// is checked against.
type Node struct {
	ID     string
	Parent *Node
	Rect   Rect
}

// NewNode creates a child of parent.
func NewNode(id string, parent *Node) *Node {
	return &Node{ID: id, Parent: parent}
}

// Contains reports whether target is n or one of its descendants.
// It implements popup.Anchor.
func (n *Node) Contains(target any) bool {
	t, ok := target.(*Node)
	if !ok {
		return false
	}
	for ; t != nil; t = t.Parent {
		if t == n {
			return true
		}
	}
	return false
}

// hitMap resolves cells to nodes. Regions added later have priority.
type hitMap struct {
	regions []*Node
}

func (h *hitMap) add(n *Node) {
	h.regions = append(h.regions, n)
}

// test returns the topmost node at (x, y), or nil.
func (h *hitMap) test(x, y int) *Node {
	for i := len(h.regions) - 1; i >= 0; i-- {
		if h.regions[i].Rect.Contains(x, y) {
			return h.regions[i]
		}
	}
	return nil
}
