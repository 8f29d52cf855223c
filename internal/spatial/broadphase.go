// Package spatial implements a persistent, allocation-free 2D sweep-and-prune
// broadphase: it maintains, for a dynamic population of axis-aligned
// bounding boxes moving continuously in a plane, the exact set of
// overlapping pairs, incrementally, in time proportional to the change in
// spatial order rather than to the population size.
//
// Origin: Baraff & Witkin (SIGGRAPH 1992); Bullet Physics btAxisSweep3
// (2003). This implementation keeps the original's dense
// swap-removed arrays and back-reference indices rather than porting it to
// pointers — the whole point of the design is that nothing it does after
// construction allocates.
package spatial

import (
	"errors"
	"math"
)

// ErrOverCapacity is returned when a mutation would exceed a compile-time
// (or construction-time) capacity: maxEntities proxies, maxOverlaps live
// pairs, or a single proxy's maxOverlapsPerEntity. This is a configuration
// error — the caller is expected to size capacities for its worst case, not
// to retry.
var ErrOverCapacity = errors.New("spatial: over capacity")

// ErrNotRegistered is returned by Update/Remove when called on a proxy that
// was never added, was filter-rejected by Add, or has already been removed.
var ErrNotRegistered = errors.New("spatial: proxy not registered")

const numAxes = 2

// Broadphase is a single-threaded-cooperative, allocation-free-after-
// construction sweep-and-prune broadphase. Every public method runs to
// completion synchronously; there is no internal locking because exactly
// one goroutine is expected to own a Broadphase. A multi-producer service
// layer that wants concurrent submission should route through a
// CommandQueue into a single consumer goroutine that owns the Broadphase —
// see Command.Apply.
type Broadphase struct {
	maxEntities int
	numEntities int32

	slots     []*Proxy             // dense id -> proxy; slots[0] is the sentinel
	endpoints [numAxes][]uint64    // sorted endpoint words per axis, sentinels at both ends
	pairs     pairManager

	pendingErr error
}

// New constructs a Broadphase sized for maxEntities live proxies and
// maxOverlaps simultaneously-live pairs. All buffers are allocated here;
// no further allocation occurs in Add, Update, Remove, or Clear.
func New(maxEntities, maxOverlaps int) *Broadphase {
	bp := &Broadphase{
		maxEntities: maxEntities,
		slots:       make([]*Proxy, maxEntities+1),
		pairs:       pairManager{words: make([]uint32, maxOverlaps)},
	}

	sentinel := NewProxy()
	sentinel.ID = 0
	bp.slots[0] = sentinel

	for axis := 0; axis < numAxes; axis++ {
		eps := make([]uint64, 2, 2*(maxEntities+1))
		eps[0] = encodeEndpoint(false, 0, math.MinInt32)
		eps[1] = encodeEndpoint(true, 0, math.MaxInt32)
		bp.endpoints[axis] = eps
		sentinel.minEp[axis] = 0
		sentinel.maxEp[axis] = 1
	}

	return bp
}

func (bp *Broadphase) consumeErr() error {
	err := bp.pendingErr
	bp.pendingErr = nil
	return err
}

func (bp *Broadphase) addOverlappingPair(a, b *Proxy) {
	if a == b || a.ID <= 0 || b.ID <= 0 {
		return // sentinel (id 0) and unregistered proxies never pair
	}
	if err := bp.pairs.addOverlappingPair(a, b); err != nil {
		bp.pendingErr = err
	}
}

func (bp *Broadphase) removeOverlappingPair(a, b *Proxy) {
	bp.pairs.removePair(a, b, func(id ProxyID) *Proxy { return bp.slots[id] })
}

// Add registers p with the broadphase. It is a silent no-op if p is already
// registered (p.ID != InvalidProxyID) or filter-rejected (Group or Mask is
// zero) — callers detect either case by checking p.ID afterward. wakeOverlaps
// controls whether the initial overlap set is computed immediately (false
// lets a caller batch many adds before any pair events fire, matching the
// X-axis's own silence during this call — only the Y axis ever emits events,
// once both axes are already in order).
func (bp *Broadphase) Add(p *Proxy, wakeOverlaps bool) error {
	if p.ID != InvalidProxyID {
		return nil
	}
	if p.Filter.Group == 0 || p.Filter.Mask == 0 {
		return nil
	}
	if int(bp.numEntities) >= bp.maxEntities {
		return ErrOverCapacity
	}

	for i := range p.overlaps {
		p.overlaps[i] = invalidPairID
	}

	bp.numEntities++
	id := ProxyID(bp.numEntities)
	p.ID = id
	bp.slots[id] = p

	sentinel := bp.slots[0]
	for axis := 0; axis < numAxes; axis++ {
		eps := bp.endpoints[axis]
		oldLen := len(eps)
		sentinelMax := eps[oldLen-1]

		eps = append(eps, 0, 0)
		eps[oldLen+1] = sentinelMax
		eps[oldLen-1] = encodeEndpoint(false, uint32(id), minCoord(p, axis))
		eps[oldLen] = encodeEndpoint(true, uint32(id), maxCoord(p, axis))
		bp.endpoints[axis] = eps

		sentinel.maxEp[axis] = int32(oldLen + 1)
		p.minEp[axis] = int32(oldLen - 1)
		p.maxEp[axis] = int32(oldLen)

		updateOverlaps := axis == 1 && wakeOverlaps
		bp.sortMinDown(axis, int32(oldLen-1), updateOverlaps)
		bp.sortMaxDown(axis, int32(oldLen), updateOverlaps)
	}

	return bp.consumeErr()
}

// Update rewrites p's four endpoint words from aabb and repairs sort order
// on whichever axes moved, emitting add/remove overlap events as endpoints
// cross each other. Calling Update with aabb equal to p.AABB is a no-op:
// nothing is out of order, so no sort kernel swaps and no events fire.
func (bp *Broadphase) Update(p *Proxy, aabb AABB) error {
	if p.ID == InvalidProxyID {
		return ErrNotRegistered
	}

	old := p.AABB
	p.AABB = aabb

	for axis := 0; axis < numAxes; axis++ {
		eps := bp.endpoints[axis]

		oldMin, oldMax := minCoordOf(old, axis), maxCoordOf(old, axis)
		newMin, newMax := minCoord(p, axis), maxCoord(p, axis)

		minPos := p.minEp[axis]
		eps[minPos] = encodeEndpoint(false, uint32(p.ID), newMin)
		switch {
		case newMin < oldMin:
			bp.sortMinDown(axis, minPos, true)
		case newMin > oldMin:
			bp.sortMinUp(axis, minPos, true)
		}

		maxPos := p.maxEp[axis] // re-read: the min sort above may have moved it
		eps[maxPos] = encodeEndpoint(true, uint32(p.ID), newMax)
		switch {
		case newMax > oldMax:
			bp.sortMaxUp(axis, maxPos, true)
		case newMax < oldMax:
			bp.sortMaxDown(axis, maxPos, true)
		}
	}

	return bp.consumeErr()
}

// Remove deregisters p: every pair containing it is dropped, its endpoints
// are floated past every real proxy and spliced out of both axis arrays,
// and (unless p was already the highest-id proxy) the highest-id proxy is
// swapped into p's old slot and re-registered under p's old id — re-encoding
// its endpoint words and rebuilding its pairs so canonical pair encodings
// stay correct.
func (bp *Broadphase) Remove(p *Proxy) error {
	if p.ID == InvalidProxyID {
		return ErrNotRegistered
	}

	for {
		idx := firstOverlap(p)
		if idx == invalidPairID {
			break
		}
		word := bp.pairs.words[idx]
		a := bp.slots[FirstEntityFromPair(word)]
		b := bp.slots[SecondEntityFromPair(word)]
		bp.removeOverlappingPair(a, b)
	}

	sentinel := bp.slots[0]
	for axis := 0; axis < numAxes; axis++ {
		eps := bp.endpoints[axis]

		minPos := p.minEp[axis]
		eps[minPos] = encodeEndpoint(false, uint32(p.ID), math.MaxInt32)
		bp.sortMinUp(axis, minPos, false)

		maxPos := p.maxEp[axis]
		eps[maxPos] = encodeEndpoint(true, uint32(p.ID), math.MaxInt32)
		bp.sortMaxUp(axis, maxPos, false)

		// p's two endpoints now sit immediately below the sentinel's max
		// (ties never displace the sentinel — see endpointLessOrEqual),
		// so splicing them out is a 2-slot truncation with the
		// sentinel's max word carried down to the new last slot.
		l := len(eps)
		eps[l-3] = eps[l-1]
		eps = eps[:l-2]
		bp.endpoints[axis] = eps
		sentinel.maxEp[axis] = int32(l - 3)
	}

	last := bp.slots[bp.numEntities]
	if last != p {
		bp.moveProxy(p.ID, last)
	}
	bp.slots[bp.numEntities] = nil
	bp.numEntities--
	p.ID = InvalidProxyID

	return bp.consumeErr()
}

// moveProxy re-registers last (currently the highest-id live proxy) under
// to, which is the id being freed by a Remove in progress. Every pair
// referencing last is torn down and rebuilt from scratch afterward because
// the pair encoding is keyed by id — a naive field rename would leave stale,
// wrongly-encoded pair words behind.
func (bp *Broadphase) moveProxy(to ProxyID, last *Proxy) {
	var others [maxOverlapsPerEntity]*Proxy
	n := 0
	for _, idx := range last.overlaps {
		if idx == invalidPairID {
			continue
		}
		word := bp.pairs.words[idx]
		a := bp.slots[FirstEntityFromPair(word)]
		b := bp.slots[SecondEntityFromPair(word)]
		if a == last {
			others[n] = b
		} else {
			others[n] = a
		}
		n++
	}
	for i := 0; i < n; i++ {
		bp.removeOverlappingPair(last, others[i])
	}

	bp.slots[to] = last
	last.ID = to
	for axis := 0; axis < numAxes; axis++ {
		eps := bp.endpoints[axis]
		eps[last.minEp[axis]] = encodeEndpoint(false, uint32(to), decodeCoord(eps[last.minEp[axis]]))
		eps[last.maxEp[axis]] = encodeEndpoint(true, uint32(to), decodeCoord(eps[last.maxEp[axis]]))
	}

	for i := 0; i < n; i++ {
		bp.addOverlappingPair(last, others[i])
	}
}

// Clear deregisters every proxy except the sentinel. Removing in descending
// id order means every Remove call's swap-with-last targets the proxy being
// removed itself, so the swap path never triggers.
func (bp *Broadphase) Clear() {
	for bp.numEntities > 0 {
		bp.Remove(bp.slots[bp.numEntities])
	}
}

// Pairs returns a view into the live pair words. The slice is reused on the
// next mutating call; copy it if it must outlive that call. Decode
// participants with FirstEntityFromPair / SecondEntityFromPair.
func (bp *Broadphase) Pairs() []uint32 {
	return bp.pairs.words[:bp.pairs.count]
}

// TestEntitiesOverlap reports whether a and b's AABBs overlap on both axes,
// independent of NeedsCollision's filter rule.
func (bp *Broadphase) TestEntitiesOverlap(a, b *Proxy) bool {
	return testOverlap(-1, a, b)
}

// NeedsCollision applies the filter rule: a and b should ever appear
// together in Pairs only if each one's group bit is present in the other's
// mask.
func (bp *Broadphase) NeedsCollision(a, b *Proxy) bool {
	return filtersNeedCollision(a.Filter, b.Filter)
}

// NumEntities returns the number of currently-registered proxies (excluding
// the sentinel).
func (bp *Broadphase) NumEntities() int {
	return int(bp.numEntities)
}
