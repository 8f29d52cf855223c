package spatial

// InvalidProxyID marks a Proxy that is not currently registered with any
// Broadphase.
const InvalidProxyID ProxyID = -1

// ProxyID identifies a live proxy. IDs are dense in [1, maxEntities]; id 0
// is reserved for the sentinel. Remove's swap-with-last reassigns the id of
// whichever proxy it moves, so a ProxyID cached outside of its owning Proxy
// can go stale the moment a *different* proxy is removed — always read the
// id back off the *Proxy rather than caching it separately.
type ProxyID int32

// AABB is an axis-aligned bounding box in integer logical units. Zero area
// (W==0 or H==0) is legal.
type AABB struct {
	X, Y int32
	W, H int32
}

// Filter is the pairwise collision-rule bitmask pair consulted by
// Broadphase.NeedsCollision. A proxy added with either field zero is
// filter-rejected and never registers.
type Filter struct {
	Group uint16
	Mask  uint16
}

// maxOverlapsPerEntity bounds how many simultaneous overlapping pairs a
// single proxy can participate in. This is a hard limit, not a soft cap:
// exceeding it surfaces as ErrOverCapacity rather than silently dropping an
// overlap (see Broadphase.consumeErr).
const maxOverlapsPerEntity = 10

const invalidPairID int32 = -1

// Proxy is the broadphase's handle for one client entity. Clients allocate a
// Proxy with NewProxy (or recycle one from a pool), populate AABB and
// Filter, and pass it to Broadphase.Add. Between Add and the next Update the
// client may read AABB but should not write it directly — pass the new
// value to Update so endpoint words and sort order stay consistent.
//
// All other fields are unexported and are owned and maintained by the
// Broadphase that registered this proxy; they are not for client use.
type Proxy struct {
	ID     ProxyID
	AABB   AABB
	Filter Filter

	minEp [2]int32 // index of this proxy's min endpoint per axis (0=X, 1=Y)
	maxEp [2]int32 // index of this proxy's max endpoint per axis

	overlaps [maxOverlapsPerEntity]int32 // pair-manager indices, invalidPairID where empty
}

// NewProxy returns an unregistered proxy ready to have AABB/Filter set and
// be passed to Broadphase.Add.
func NewProxy() *Proxy {
	p := &Proxy{ID: InvalidProxyID}
	for i := range p.overlaps {
		p.overlaps[i] = invalidPairID
	}
	return p
}

// Reset clears a proxy back to its unregistered, zero-overlap state so it
// can be returned to a pool and reused for a new entity. The caller must
// have already removed it from its Broadphase.
func (p *Proxy) Reset() {
	p.ID = InvalidProxyID
	p.AABB = AABB{}
	p.Filter = Filter{}
	p.minEp = [2]int32{}
	p.maxEp = [2]int32{}
	for i := range p.overlaps {
		p.overlaps[i] = invalidPairID
	}
}

func (p *Proxy) addOverlapSlot(pairIdx int32) bool {
	for i, v := range p.overlaps {
		if v == invalidPairID {
			p.overlaps[i] = pairIdx
			return true
		}
	}
	return false
}

func (p *Proxy) removeOverlapSlot(pairIdx int32) {
	for i, v := range p.overlaps {
		if v == pairIdx {
			p.overlaps[i] = invalidPairID
			return
		}
	}
}

func (p *Proxy) reindexOverlapSlot(oldIdx, newIdx int32) {
	for i, v := range p.overlaps {
		if v == oldIdx {
			p.overlaps[i] = newIdx
			return
		}
	}
}

func firstOverlap(p *Proxy) int32 {
	for _, idx := range p.overlaps {
		if idx != invalidPairID {
			return idx
		}
	}
	return invalidPairID
}

// overlapCount returns how many of p's overlap slots are currently occupied.
func overlapCount(p *Proxy) int {
	n := 0
	for _, idx := range p.overlaps {
		if idx != invalidPairID {
			n++
		}
	}
	return n
}

func minCoord(p *Proxy, axis int) int32 {
	if axis == 0 {
		return p.AABB.X
	}
	return p.AABB.Y
}

func maxCoord(p *Proxy, axis int) int32 {
	if axis == 0 {
		return p.AABB.X + p.AABB.W
	}
	return p.AABB.Y + p.AABB.H
}

func minCoordOf(a AABB, axis int) int32 {
	if axis == 0 {
		return a.X
	}
	return a.Y
}

func maxCoordOf(a AABB, axis int) int32 {
	if axis == 0 {
		return a.X + a.W
	}
	return a.Y + a.H
}

// testOverlap reports whether a and b overlap on every axis except
// ignoreAxis (pass -1 to check both). Touching AABBs (shared edge) count as
// overlapping.
func testOverlap(ignoreAxis int, a, b *Proxy) bool {
	for axis := 0; axis < numAxes; axis++ {
		if axis == ignoreAxis {
			continue
		}
		if minCoord(a, axis) > maxCoord(b, axis) || minCoord(b, axis) > maxCoord(a, axis) {
			return false
		}
	}
	return true
}

func filtersNeedCollision(a, b Filter) bool {
	return a.Group&b.Mask != 0 && b.Group&a.Mask != 0
}
