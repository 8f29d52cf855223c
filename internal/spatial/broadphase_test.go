package spatial

import (
	"sort"
	"testing"
)

func defaultFilter() Filter { return Filter{Group: 1, Mask: 1} }

func mustAdd(t *testing.T, bp *Broadphase, aabb AABB, filter Filter) *Proxy {
	t.Helper()
	p := NewProxy()
	p.AABB = aabb
	p.Filter = filter
	if err := bp.Add(p, true); err != nil {
		t.Fatalf("Add(%+v): %v", aabb, err)
	}
	if p.ID == InvalidProxyID {
		t.Fatalf("Add(%+v): proxy not registered", aabb)
	}
	return p
}

func pairSet(bp *Broadphase) map[uint32]bool {
	out := make(map[uint32]bool)
	for _, w := range bp.Pairs() {
		out[w] = true
	}
	return out
}

// TestTranslateOutOfOverlap is spec.md's scenario 1.
func TestTranslateOutOfOverlap(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{20, 0, 10, 10}, defaultFilter())

	if n := len(bp.Pairs()); n != 0 {
		t.Fatalf("pairsCount = %d, want 0", n)
	}

	if err := bp.Update(b, AABB{8, 0, 10, 10}); err != nil {
		t.Fatal(err)
	}
	pairs := bp.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("pairsCount = %d, want 1", len(pairs))
	}
	if encodePair(a.ID, b.ID) != pairs[0] {
		t.Fatalf("pair = %x, want (%d,%d)", pairs[0], a.ID, b.ID)
	}

	if err := bp.Update(b, AABB{100, 0, 10, 10}); err != nil {
		t.Fatal(err)
	}
	if n := len(bp.Pairs()); n != 0 {
		t.Fatalf("pairsCount after separating = %d, want 0", n)
	}
}

// TestRemoveMiddleProxy is spec.md's scenario 2: three mutually overlapping
// boxes, remove the middle one, check the survivors' back-references.
func TestRemoveMiddleProxy(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{5, 5, 10, 10}, defaultFilter())
	c := mustAdd(t, bp, AABB{8, 2, 10, 10}, defaultFilter())

	want := map[uint32]bool{
		encodePair(a.ID, b.ID): true,
		encodePair(a.ID, c.ID): true,
		encodePair(b.ID, c.ID): true,
	}
	if got := pairSet(bp); !mapsEqualUint32(got, want) {
		t.Fatalf("pairs = %v, want %v", got, want)
	}

	if err := bp.Remove(b); err != nil {
		t.Fatal(err)
	}

	wantAfter := map[uint32]bool{encodePair(a.ID, c.ID): true}
	if got := pairSet(bp); !mapsEqualUint32(got, wantAfter) {
		t.Fatalf("pairs after remove = %v, want %v", got, wantAfter)
	}

	if n := countValidOverlaps(a); n != 1 {
		t.Fatalf("A.overlaps has %d valid entries, want 1", n)
	}
	if n := countValidOverlaps(c); n != 1 {
		t.Fatalf("C.overlaps has %d valid entries, want 1", n)
	}
}

// TestClearResetsToEmpty is spec.md's scenario 3.
func TestClearResetsToEmpty(t *testing.T) {
	bp := New(16, 64)
	mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	mustAdd(t, bp, AABB{5, 5, 10, 10}, defaultFilter())
	mustAdd(t, bp, AABB{8, 2, 10, 10}, defaultFilter())

	bp.Clear()

	if bp.NumEntities() != 0 {
		t.Fatalf("NumEntities = %d, want 0", bp.NumEntities())
	}
	if n := len(bp.Pairs()); n != 0 {
		t.Fatalf("pairsCount = %d, want 0", n)
	}
	for axis := 0; axis < numAxes; axis++ {
		if got := len(bp.endpoints[axis]); got != 2 {
			t.Fatalf("axis %d endpoint array has %d words, want 2 (sentinels only)", axis, got)
		}
	}
}

// TestFilterRejectsOverlappingPair is spec.md's scenario 4.
func TestFilterRejectsOverlappingPair(t *testing.T) {
	bp := New(16, 64)
	mustAdd(t, bp, AABB{0, 0, 10, 10}, Filter{Group: 1, Mask: 2})
	mustAdd(t, bp, AABB{5, 5, 10, 10}, Filter{Group: 4, Mask: 1})

	if n := len(bp.Pairs()); n != 0 {
		t.Fatalf("pairsCount = %d, want 0 (filters disjoint)", n)
	}
}

// TestAddFilterRejected checks the silent no-op path of Add itself.
func TestAddFilterRejected(t *testing.T) {
	bp := New(16, 64)
	p := NewProxy()
	p.AABB = AABB{0, 0, 10, 10}
	p.Filter = Filter{Group: 0, Mask: 1}

	if err := bp.Add(p, true); err != nil {
		t.Fatalf("Add with zero group: %v, want nil (silent no-op)", err)
	}
	if p.ID != InvalidProxyID {
		t.Fatalf("p.ID = %d, want InvalidProxyID after filter-rejected add", p.ID)
	}
}

// TestUpdateNoOpWhenUnchanged exercises the idempotence property: Update
// with the same AABB must not perturb sort order or the pair set.
func TestUpdateNoOpWhenUnchanged(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{5, 5, 10, 10}, defaultFilter())

	before := pairSet(bp)
	if err := bp.Update(a, a.AABB); err != nil {
		t.Fatal(err)
	}
	after := pairSet(bp)
	if !mapsEqualUint32(before, after) {
		t.Fatalf("no-op Update changed pairs: before=%v after=%v", before, after)
	}
	_ = b
}

// TestTouchingAABBsOverlap exercises the strict-< boundary rule: a shared
// edge counts as overlapping.
func TestTouchingAABBsOverlap(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{10, 0, 10, 10}, defaultFilter())

	if !bp.TestEntitiesOverlap(a, b) {
		t.Fatalf("touching AABBs should overlap")
	}
	if n := len(bp.Pairs()); n != 1 {
		t.Fatalf("pairsCount = %d, want 1 for touching AABBs", n)
	}
}

// TestZeroAreaAABBInsideAnother exercises the zero-area boundary case.
func TestZeroAreaAABBInsideAnother(t *testing.T) {
	bp := New(16, 64)
	container := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	point := mustAdd(t, bp, AABB{5, 5, 0, 0}, defaultFilter())

	if n := len(bp.Pairs()); n != 1 {
		t.Fatalf("pairsCount = %d, want 1 (zero-area AABB inside container)", n)
	}
	outside := mustAdd(t, bp, AABB{50, 50, 0, 0}, defaultFilter())
	if bp.TestEntitiesOverlap(outside, container) {
		t.Fatalf("zero-area AABB outside container should not overlap")
	}
	_ = point
}

// TestRemoveThenReAddIsClean exercises the round-trip property: after
// Remove, a later Add should not see leftover pairs from the removed proxy.
func TestRemoveThenReAddIsClean(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{5, 5, 10, 10}, defaultFilter())

	if err := bp.Remove(b); err != nil {
		t.Fatal(err)
	}
	if n := len(bp.Pairs()); n != 0 {
		t.Fatalf("pairsCount after remove = %d, want 0", n)
	}

	c := mustAdd(t, bp, AABB{5, 5, 10, 10}, defaultFilter())
	if n := len(bp.Pairs()); n != 1 {
		t.Fatalf("pairsCount after re-add = %d, want 1", n)
	}
	pairs := bp.Pairs()
	if pairs[0] != encodePair(a.ID, c.ID) {
		t.Fatalf("pair = %x, want (%d,%d)", pairs[0], a.ID, c.ID)
	}
}

// TestOverlapSlotCapacity is spec.md's scenario 6: fill one proxy's
// overlaps to capacity, then a further overlap must fail loudly rather
// than silently corrupt state (resolving spec.md's Open Question #2).
func TestOverlapSlotCapacity(t *testing.T) {
	bp := New(64, 64)
	hub := mustAdd(t, bp, AABB{0, 0, 100, 100}, defaultFilter())

	for i := 0; i < maxOverlapsPerEntity; i++ {
		x := int32(i)
		mustAdd(t, bp, AABB{x, 0, 1, 1}, defaultFilter())
	}
	if n := countValidOverlaps(hub); n != maxOverlapsPerEntity {
		t.Fatalf("hub has %d overlaps, want %d (at capacity)", n, maxOverlapsPerEntity)
	}

	extra := NewProxy()
	extra.AABB = AABB{50, 0, 1, 1}
	extra.Filter = defaultFilter()
	err := bp.Add(extra, true)
	if err != ErrOverCapacity {
		t.Fatalf("Add past per-entity overlap capacity: err = %v, want ErrOverCapacity", err)
	}
}

func TestUpdateAndRemoveOnUnregisteredProxy(t *testing.T) {
	bp := New(4, 4)
	p := NewProxy()

	if err := bp.Update(p, AABB{0, 0, 1, 1}); err != ErrNotRegistered {
		t.Fatalf("Update on unregistered proxy: err = %v, want ErrNotRegistered", err)
	}
	if err := bp.Remove(p); err != ErrNotRegistered {
		t.Fatalf("Remove on unregistered proxy: err = %v, want ErrNotRegistered", err)
	}
}

func TestAddOverCapacity(t *testing.T) {
	bp := New(1, 4)
	mustAdd(t, bp, AABB{0, 0, 1, 1}, defaultFilter())

	p := NewProxy()
	p.AABB = AABB{5, 5, 1, 1}
	p.Filter = defaultFilter()
	if err := bp.Add(p, true); err != ErrOverCapacity {
		t.Fatalf("Add past maxEntities: err = %v, want ErrOverCapacity", err)
	}
}

func TestDoubleAddIsNoOp(t *testing.T) {
	bp := New(4, 4)
	p := mustAdd(t, bp, AABB{0, 0, 1, 1}, defaultFilter())
	id := p.ID

	if err := bp.Add(p, true); err != nil {
		t.Fatalf("double Add: %v, want nil (silent no-op)", err)
	}
	if p.ID != id {
		t.Fatalf("double Add changed id from %d to %d", id, p.ID)
	}
}

func countValidOverlaps(p *Proxy) int {
	return overlapCount(p)
}

func mapsEqualUint32(a, b map[uint32]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// TestPermutingUpdateOrderYieldsSameFinalPairSet exercises spec.md §5's
// ordering guarantee: the final pair set after a round of updates depends
// only on final positions, not on the order Update was called in.
func TestPermutingUpdateOrderYieldsSameFinalPairSet(t *testing.T) {
	build := func(order []int) map[uint32]bool {
		bp := New(16, 64)
		start := []AABB{{0, 0, 10, 10}, {3, 3, 10, 10}, {50, 50, 10, 10}}
		proxies := make([]*Proxy, len(start))
		for i, a := range start {
			proxies[i] = mustAdd(t, bp, a, defaultFilter())
		}
		moved := []AABB{{0, 0, 10, 10}, {60, 0, 10, 10}, {5, 5, 10, 10}}
		for _, i := range order {
			if err := bp.Update(proxies[i], moved[i]); err != nil {
				t.Fatal(err)
			}
		}
		return pairSet(bp)
	}

	base := build([]int{0, 1, 2})
	for _, perm := range [][]int{{2, 1, 0}, {1, 0, 2}, {1, 2, 0}} {
		if got := build(perm); !mapsEqualUint32(got, base) {
			t.Fatalf("order %v: pairs = %v, want %v", perm, got, base)
		}
	}
}

// TestCornerTouchAABBsOverlap exercises the boundary case the review flagged:
// two boxes that only share a single corner (both axes merely touch, neither
// axis has a strict crossing) must still produce a pair at construction time.
func TestCornerTouchAABBsOverlap(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{10, 10, 10, 10}, defaultFilter())

	if !bp.TestEntitiesOverlap(a, b) {
		t.Fatalf("corner-touching AABBs should overlap")
	}
	if n := len(bp.Pairs()); n != 1 {
		t.Fatalf("pairsCount = %d, want 1 for corner-touching AABBs", n)
	}
}

// TestUpdateToEdgeTouchFormsPair covers an Update that brings one axis to an
// exact edge touch while the other axis was already fully overlapping (so
// only the touching axis's endpoints cross, never a strict pass). The pair
// must still form.
func TestUpdateToEdgeTouchFormsPair(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	b := mustAdd(t, bp, AABB{20, 0, 10, 10}, defaultFilter())

	if n := len(bp.Pairs()); n != 0 {
		t.Fatalf("pairsCount before touch = %d, want 0", n)
	}

	if err := bp.Update(b, AABB{10, 0, 10, 10}); err != nil {
		t.Fatal(err)
	}
	if !bp.TestEntitiesOverlap(a, b) {
		t.Fatalf("edge-touching AABBs should overlap")
	}
	pairs := bp.Pairs()
	if len(pairs) != 1 {
		t.Fatalf("pairsCount after touch = %d, want 1", len(pairs))
	}
	if pairs[0] != encodePair(a.ID, b.ID) {
		t.Fatalf("pair = %x, want (%d,%d)", pairs[0], a.ID, b.ID)
	}
}

func TestStatsReportsMaxOverlapsPerEntityUsed(t *testing.T) {
	bp := New(16, 64)
	hub := mustAdd(t, bp, AABB{0, 0, 100, 100}, defaultFilter())
	_ = hub

	if got := bp.Stats().MaxOverlapsPerEntityUsed; got != 0 {
		t.Fatalf("MaxOverlapsPerEntityUsed = %d, want 0 before any overlaps", got)
	}

	for i := 0; i < 3; i++ {
		x := int32(i)
		mustAdd(t, bp, AABB{x, 0, 1, 1}, defaultFilter())
	}

	if got := bp.Stats().MaxOverlapsPerEntityUsed; got != 3 {
		t.Fatalf("MaxOverlapsPerEntityUsed = %d, want 3", got)
	}
}

func TestQueryAABB(t *testing.T) {
	bp := New(16, 64)
	a := mustAdd(t, bp, AABB{0, 0, 10, 10}, defaultFilter())
	_ = mustAdd(t, bp, AABB{100, 100, 10, 10}, defaultFilter())

	got := bp.QueryAABB(AABB{0, 0, 5, 5}, nil)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 1 || got[0] != a.ID {
		t.Fatalf("QueryAABB = %v, want [%d]", got, a.ID)
	}
}
