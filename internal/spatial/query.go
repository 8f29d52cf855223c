package spatial

// Stats is a zero-allocation snapshot of a Broadphase's population, read by
// the demo service's metrics and admin endpoints without reaching into
// internals.
type Stats struct {
	NumEntities int
	NumPairs    int

	// MaxOverlapsPerEntityUsed is the highest number of simultaneous overlaps
	// any single live proxy currently holds, out of the fixed
	// maxOverlapsPerEntity slots every proxy is allocated. Watching this
	// approach maxOverlapsPerEntity is how an operator notices a population
	// getting close to ErrOverCapacity before it actually trips.
	MaxOverlapsPerEntityUsed int
}

// Stats returns the current population snapshot.
func (bp *Broadphase) Stats() Stats {
	most := 0
	for id := int32(1); id <= bp.numEntities; id++ {
		if n := overlapCount(bp.slots[id]); n > most {
			most = n
		}
	}
	return Stats{
		NumEntities:              int(bp.numEntities),
		NumPairs:                 int(bp.pairs.count),
		MaxOverlapsPerEntityUsed: most,
	}
}

// QueryAABB appends the id of every live proxy whose AABB overlaps box to
// out and returns the extended slice. This is a read-only convenience query
// against the existing proxy table — it is not a second broadphase
// mechanism, and does not participate in Pairs' overlap bookkeeping.
func (bp *Broadphase) QueryAABB(box AABB, out []ProxyID) []ProxyID {
	for id := int32(1); id <= bp.numEntities; id++ {
		p := bp.slots[id]
		if aabbOverlaps(box, p.AABB) {
			out = append(out, p.ID)
		}
	}
	return out
}

// Proxies appends every live proxy's pointer to out and returns the
// extended slice, in ascending id order. Read-only, for debug/rendering
// consumers that need the whole population rather than a windowed query.
func (bp *Broadphase) Proxies(out []*Proxy) []*Proxy {
	for id := int32(1); id <= bp.numEntities; id++ {
		out = append(out, bp.slots[id])
	}
	return out
}

func aabbOverlaps(a, b AABB) bool {
	if a.X > b.X+b.W || b.X > a.X+a.W {
		return false
	}
	if a.Y > b.Y+b.H || b.Y > a.Y+a.H {
		return false
	}
	return true
}
