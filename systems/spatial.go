// Package systems provides the spatial core: the BVH index, raycasting and
// visibility, grid pathfinding and movement resolution.
package systems

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

const nullNode int32 = -1

// bvhNode is either a leaf holding one entity or an internal node whose box
// is the union of its two children.
type bvhNode struct {
	box    AABB
	parent int32
	left   int32
	right  int32
	height int32 // 0 for leaves

	entity ecs.Entity
	caps   Capabilities
	seq    uint64 // Registration order, used to break ray ties
}

func (n *bvhNode) isLeaf() bool { return n.left == nullNode }

// RayCandidate is an entity whose box a ray intersects.
type RayCandidate struct {
	Entity   ecs.Entity
	Distance float64 // Entry distance, clamped to 0 when the origin is inside
	Normal   r2.Vec  // Entry face normal
	Inside   bool    // Origin lies inside the box
	Caps     Capabilities

	seq uint64
}

// SpatialIndex is a dynamic bounding volume hierarchy over entity boxes.
// Nodes live in a pooled slice and are linked by index.
type SpatialIndex struct {
	nodes   []bvhNode
	free    []int32
	root    int32
	leaves  map[ecs.Entity]int32
	resolve AttrResolver
	nextSeq uint64
}

// NewSpatialIndex creates an empty index. resolve reads the blocking
// attributes of each entity once, when it is first inserted.
func NewSpatialIndex(resolve AttrResolver) *SpatialIndex {
	return &SpatialIndex{
		nodes:   make([]bvhNode, 0, 64),
		root:    nullNode,
		leaves:  make(map[ecs.Entity]int32, 32),
		resolve: resolve,
	}
}

// Len returns the number of registered entities.
func (s *SpatialIndex) Len() int { return len(s.leaves) }

// Contains reports whether e is registered.
func (s *SpatialIndex) Contains(e ecs.Entity) bool {
	_, ok := s.leaves[e]
	return ok
}

// Bounds returns the stored box of e.
func (s *SpatialIndex) Bounds(e ecs.Entity) (AABB, bool) {
	leaf, ok := s.leaves[e]
	if !ok {
		return AABB{}, false
	}
	return s.nodes[leaf].box, true
}

// Capabilities returns the blocking flags resolved for e at registration.
func (s *SpatialIndex) Capabilities(e ecs.Entity) (Capabilities, bool) {
	leaf, ok := s.leaves[e]
	if !ok {
		return Capabilities{}, false
	}
	return s.nodes[leaf].caps, true
}

// Height returns the tree height (0 for empty or single-leaf trees).
func (s *SpatialIndex) Height() int {
	if s.root == nullNode {
		return 0
	}
	return int(s.nodes[s.root].height)
}

// InsertOrUpdate registers e with box, or moves an existing entry to box.
// Invalid boxes are logged and rejected with ErrInvalidBounds.
func (s *SpatialIndex) InsertOrUpdate(e ecs.Entity, box AABB) error {
	if !box.Valid() {
		err := fmt.Errorf("entity %v box %v: %w", e, box, ErrInvalidBounds)
		slog.Warn("spatial index skipped entity", "entity", e, "error", err)
		return err
	}

	if leaf, ok := s.leaves[e]; ok {
		if s.nodes[leaf].box == box {
			return nil
		}
		s.removeLeaf(leaf)
		s.nodes[leaf].box = box
		s.insertLeaf(leaf)
		return nil
	}

	leaf := s.allocate()
	s.nodes[leaf] = bvhNode{
		box:    box,
		parent: nullNode,
		left:   nullNode,
		right:  nullNode,
		entity: e,
		caps:   ResolveCapabilities(e, s.resolve),
		seq:    s.nextSeq,
	}
	s.nextSeq++
	s.leaves[e] = leaf
	s.insertLeaf(leaf)
	return nil
}

// Remove drops e from the index. Unknown entities are ignored.
func (s *SpatialIndex) Remove(e ecs.Entity) {
	leaf, ok := s.leaves[e]
	if !ok {
		return
	}
	s.removeLeaf(leaf)
	delete(s.leaves, e)
	s.release(leaf)
}

// QueryRegion returns every entity whose box intersects rect, touching included.
func (s *SpatialIndex) QueryRegion(rect AABB) []ecs.Entity {
	if s.root == nullNode {
		return nil
	}
	var out []ecs.Entity
	stack := make([]int32, 0, 32)
	stack = append(stack, s.root)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &s.nodes[i]
		if !n.box.Intersects(rect) {
			continue
		}
		if n.isLeaf() {
			out = append(out, n.entity)
			continue
		}
		stack = append(stack, n.right, n.left)
	}
	return out
}

// QueryRay returns every entity whose box the ray intersects, nearest first.
func (s *SpatialIndex) QueryRay(r Ray) []RayCandidate {
	return s.QueryRayWithin(r, -1)
}

// QueryRayWithin is QueryRay limited to entry distances <= maxDist.
// A negative maxDist means unlimited. Equal distances keep registration order.
func (s *SpatialIndex) QueryRayWithin(r Ray, maxDist float64) []RayCandidate {
	if s.root == nullNode {
		return nil
	}
	var out []RayCandidate
	stack := make([]int32, 0, 32)
	stack = append(stack, s.root)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &s.nodes[i]
		hit, ok := r.intersect(n.box)
		if !ok || (maxDist >= 0 && hit.entry > maxDist) {
			continue
		}
		if !n.isLeaf() {
			stack = append(stack, n.right, n.left)
			continue
		}
		c := RayCandidate{
			Entity:   n.entity,
			Distance: hit.entry,
			Normal:   hit.normal,
			Caps:     n.caps,
			seq:      n.seq,
		}
		if hit.entry < 0 {
			c.Distance = 0
			c.Inside = true
		}
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].seq < out[b].seq
	})
	return out
}

// Each visits every node depth first. depth is 0 at the root.
func (s *SpatialIndex) Each(fn func(box AABB, depth int, leaf bool, e ecs.Entity)) {
	if s.root == nullNode {
		return
	}
	type item struct {
		node  int32
		depth int
	}
	stack := []item{{s.root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &s.nodes[it.node]
		fn(n.box, it.depth, n.isLeaf(), n.entity)
		if !n.isLeaf() {
			stack = append(stack, item{n.right, it.depth + 1}, item{n.left, it.depth + 1})
		}
	}
}

// Validate checks the structural invariants: parent links, containment,
// heights and the leaf map.
func (s *SpatialIndex) Validate() error {
	if s.root == nullNode {
		if len(s.leaves) != 0 {
			return fmt.Errorf("empty tree with %d registered leaves", len(s.leaves))
		}
		return nil
	}
	if p := s.nodes[s.root].parent; p != nullNode {
		return fmt.Errorf("root %d has parent %d", s.root, p)
	}

	leaves := 0
	var walk func(i int32) (int32, error)
	walk = func(i int32) (int32, error) {
		n := &s.nodes[i]
		if n.isLeaf() {
			if n.right != nullNode {
				return 0, fmt.Errorf("leaf %d has a right child", i)
			}
			if got, ok := s.leaves[n.entity]; !ok || got != i {
				return 0, fmt.Errorf("leaf %d for entity %v not in leaf map", i, n.entity)
			}
			leaves++
			return 0, nil
		}
		for _, c := range [2]int32{n.left, n.right} {
			if s.nodes[c].parent != i {
				return 0, fmt.Errorf("node %d child %d points to parent %d", i, c, s.nodes[c].parent)
			}
			if !n.box.Contains(s.nodes[c].box) {
				return 0, fmt.Errorf("node %d box %v does not contain child %d box %v", i, n.box, c, s.nodes[c].box)
			}
		}
		hl, err := walk(n.left)
		if err != nil {
			return 0, err
		}
		hr, err := walk(n.right)
		if err != nil {
			return 0, err
		}
		h := 1 + max(hl, hr)
		if h != n.height {
			return 0, fmt.Errorf("node %d height %d, want %d", i, n.height, h)
		}
		return h, nil
	}
	if _, err := walk(s.root); err != nil {
		return err
	}
	if leaves != len(s.leaves) {
		return fmt.Errorf("tree has %d leaves, leaf map has %d", leaves, len(s.leaves))
	}
	return nil
}

func (s *SpatialIndex) allocate() int32 {
	if n := len(s.free); n > 0 {
		i := s.free[n-1]
		s.free = s.free[:n-1]
		return i
	}
	s.nodes = append(s.nodes, bvhNode{})
	return int32(len(s.nodes) - 1)
}

func (s *SpatialIndex) release(i int32) {
	s.nodes[i] = bvhNode{parent: nullNode, left: nullNode, right: nullNode}
	s.free = append(s.free, i)
}

// insertLeaf links an allocated leaf into the tree, choosing the sibling
// with the lowest perimeter cost, then refits and rebalances the ancestors.
func (s *SpatialIndex) insertLeaf(leaf int32) {
	if s.root == nullNode {
		s.root = leaf
		s.nodes[leaf].parent = nullNode
		return
	}

	box := s.nodes[leaf].box
	index := s.root
	for !s.nodes[index].isLeaf() {
		n := &s.nodes[index]
		area := n.box.Perimeter()
		combined := n.box.Union(box).Perimeter()

		// Cost of making a new parent for this node and the leaf
		cost := 2 * combined
		// Minimum cost pushed down to either child
		inheritance := 2 * (combined - area)

		costLeft := s.descendCost(n.left, box) + inheritance
		costRight := s.descendCost(n.right, box) + inheritance
		if cost < costLeft && cost < costRight {
			break
		}
		if costLeft < costRight {
			index = n.left
		} else {
			index = n.right
		}
	}

	sibling := index
	oldParent := s.nodes[sibling].parent
	newParent := s.allocate()
	s.nodes[newParent] = bvhNode{
		box:    s.nodes[sibling].box.Union(box),
		parent: oldParent,
		left:   sibling,
		right:  leaf,
		height: s.nodes[sibling].height + 1,
	}
	s.nodes[sibling].parent = newParent
	s.nodes[leaf].parent = newParent

	if oldParent == nullNode {
		s.root = newParent
	} else if s.nodes[oldParent].left == sibling {
		s.nodes[oldParent].left = newParent
	} else {
		s.nodes[oldParent].right = newParent
	}

	s.refit(newParent)
}

func (s *SpatialIndex) descendCost(child int32, box AABB) float64 {
	c := &s.nodes[child]
	u := c.box.Union(box).Perimeter()
	if c.isLeaf() {
		return u
	}
	return u - c.box.Perimeter()
}

// removeLeaf unlinks a leaf, replacing its parent with its sibling.
// The leaf node itself stays allocated.
func (s *SpatialIndex) removeLeaf(leaf int32) {
	if leaf == s.root {
		s.root = nullNode
		return
	}

	parent := s.nodes[leaf].parent
	grand := s.nodes[parent].parent
	sibling := s.nodes[parent].left
	if sibling == leaf {
		sibling = s.nodes[parent].right
	}

	if grand == nullNode {
		s.root = sibling
		s.nodes[sibling].parent = nullNode
		s.release(parent)
	} else {
		if s.nodes[grand].left == parent {
			s.nodes[grand].left = sibling
		} else {
			s.nodes[grand].right = sibling
		}
		s.nodes[sibling].parent = grand
		s.release(parent)
		s.refit(grand)
	}
	s.nodes[leaf].parent = nullNode
}

// refit walks from index to the root, rebalancing and recomputing boxes.
func (s *SpatialIndex) refit(index int32) {
	for index != nullNode {
		index = s.balance(index)
		n := &s.nodes[index]
		l, r := &s.nodes[n.left], &s.nodes[n.right]
		n.height = 1 + max(l.height, r.height)
		n.box = l.box.Union(r.box)
		index = n.parent
	}
}

// balance performs a left or right rotation if node a is imbalanced and
// returns the index of the subtree's new root.
func (s *SpatialIndex) balance(ia int32) int32 {
	a := &s.nodes[ia]
	if a.isLeaf() || a.height < 2 {
		return ia
	}

	ib, ic := a.left, a.right
	b, c := &s.nodes[ib], &s.nodes[ic]
	diff := c.height - b.height

	// Rotate c up
	if diff > 1 {
		ifn, ig := c.left, c.right
		f, g := &s.nodes[ifn], &s.nodes[ig]

		c.left = ia
		c.parent = a.parent
		a.parent = ic
		s.replaceChild(c.parent, ia, ic)

		if f.height > g.height {
			c.right = ifn
			a.right = ig
			g.parent = ia
			a.box = b.box.Union(g.box)
			c.box = a.box.Union(f.box)
			a.height = 1 + max(b.height, g.height)
			c.height = 1 + max(a.height, f.height)
		} else {
			c.right = ig
			a.right = ifn
			f.parent = ia
			a.box = b.box.Union(f.box)
			c.box = a.box.Union(g.box)
			a.height = 1 + max(b.height, f.height)
			c.height = 1 + max(a.height, g.height)
		}
		return ic
	}

	// Rotate b up
	if diff < -1 {
		id, ie := b.left, b.right
		d, e := &s.nodes[id], &s.nodes[ie]

		b.left = ia
		b.parent = a.parent
		a.parent = ib
		s.replaceChild(b.parent, ia, ib)

		if d.height > e.height {
			b.right = id
			a.left = ie
			e.parent = ia
			a.box = c.box.Union(e.box)
			b.box = a.box.Union(d.box)
			a.height = 1 + max(c.height, e.height)
			b.height = 1 + max(a.height, d.height)
		} else {
			b.right = ie
			a.left = id
			d.parent = ia
			a.box = c.box.Union(d.box)
			b.box = a.box.Union(e.box)
			a.height = 1 + max(c.height, d.height)
			b.height = 1 + max(a.height, e.height)
		}
		return ib
	}

	return ia
}

func (s *SpatialIndex) replaceChild(parent, old, repl int32) {
	if parent == nullNode {
		s.root = repl
		return
	}
	if s.nodes[parent].left == old {
		s.nodes[parent].left = repl
	} else {
		s.nodes[parent].right = repl
	}
}
