package spatial

// endpointLessOrEqual orders two endpoint words by coordinate, with a tiebreak
// at equal coordinates: a MIN always sorts before a MAX. Without the tiebreak,
// two boxes that merely touch on this axis (one's max equal to the other's
// min) would never cross during a sort and so would never produce the
// addPair/removePair event that detects them — touching AABBs are defined to
// overlap (see testOverlap), so the MIN has to end up on the low side of the
// tied MAX for that overlap to be reachable by the sweep.
func endpointLessOrEqual(a, b uint64) bool {
	ca, cb := decodeCoord(a), decodeCoord(b)
	if ca != cb {
		return ca < cb
	}
	return !decodeIsMax(a) || decodeIsMax(b)
}

// shuffle walks the endpoint at position pos one step at a time in the
// direction dir (-1 = toward index 0, +1 = toward the end), swapping with
// whichever neighbor is currently out of order, until the axis is sorted
// again. onPass, if non-nil, runs once per swap, before the swap happens,
// and decides whether that swap should emit an overlap event. The sentinel
// endpoints at both ends of the axis stop the walk before it reaches either
// end of the array; the loop also checks the array bounds.
//
// After every swap both the moved proxy and its former neighbor have their
// back-references (minEp/maxEp) rewritten to their new index, so the
// invariant "a proxy's endpoint index always resolves to that proxy's own
// endpoint word" holds continuously, not just at the end of the call.
func (bp *Broadphase) shuffle(axis int, pos int32, dir int32, onPass func(moving, neighbor *Proxy, neighborIsMax bool)) int32 {
	eps := bp.endpoints[axis]
	i := pos
	for {
		var j int32
		if dir < 0 {
			j = i - 1
			if j < 0 || endpointLessOrEqual(eps[j], eps[i]) {
				break
			}
		} else {
			j = i + 1
			if int(j) >= len(eps) || endpointLessOrEqual(eps[i], eps[j]) {
				break
			}
		}

		moving := eps[i]
		neighbor := eps[j]
		movingOwner := bp.slots[decodeOwner(moving)]
		neighborOwner := bp.slots[decodeOwner(neighbor)]
		neighborIsMax := decodeIsMax(neighbor)

		if onPass != nil {
			onPass(movingOwner, neighborOwner, neighborIsMax)
		}

		eps[i], eps[j] = eps[j], eps[i]
		bp.setBackRef(neighborOwner, axis, neighborIsMax, i)
		bp.setBackRef(movingOwner, axis, decodeIsMax(moving), j)
		i = j
	}

	movingWord := eps[i]
	bp.setBackRef(bp.slots[decodeOwner(movingWord)], axis, decodeIsMax(movingWord), i)
	return i
}

func (bp *Broadphase) setBackRef(p *Proxy, axis int, isMax bool, idx int32) {
	if isMax {
		p.maxEp[axis] = idx
	} else {
		p.minEp[axis] = idx
	}
}

// sortMinDown walks a MIN endpoint toward index 0. Passing a MAX neighbor
// means the moving proxy just gained coverage of the neighbor's proxy on
// this axis — a new overlap is possible, confirmed against the other axis.
func (bp *Broadphase) sortMinDown(axis int, pos int32, updateOverlaps bool) int32 {
	return bp.shuffle(axis, pos, -1, func(moving, neighbor *Proxy, neighborIsMax bool) {
		if updateOverlaps && neighborIsMax && testOverlap(axis, moving, neighbor) {
			bp.addOverlappingPair(moving, neighbor)
		}
	})
}

// sortMinUp walks a MIN endpoint toward the end. Passing a MAX neighbor
// means the moving proxy just lost coverage of the neighbor's proxy — any
// existing overlap between them ends unconditionally.
func (bp *Broadphase) sortMinUp(axis int, pos int32, updateOverlaps bool) int32 {
	return bp.shuffle(axis, pos, 1, func(moving, neighbor *Proxy, neighborIsMax bool) {
		if updateOverlaps && neighborIsMax {
			bp.removeOverlappingPair(moving, neighbor)
		}
	})
}

// sortMaxDown walks a MAX endpoint toward index 0. Passing a MIN neighbor
// means the moving proxy just lost coverage of the neighbor's proxy —
// mirror of sortMinUp.
func (bp *Broadphase) sortMaxDown(axis int, pos int32, updateOverlaps bool) int32 {
	return bp.shuffle(axis, pos, -1, func(moving, neighbor *Proxy, neighborIsMax bool) {
		if updateOverlaps && !neighborIsMax {
			bp.removeOverlappingPair(moving, neighbor)
		}
	})
}

// sortMaxUp walks a MAX endpoint toward the end. Passing a MIN neighbor
// means the moving proxy just gained coverage of the neighbor's proxy —
// mirror of sortMinDown.
func (bp *Broadphase) sortMaxUp(axis int, pos int32, updateOverlaps bool) int32 {
	return bp.shuffle(axis, pos, 1, func(moving, neighbor *Proxy, neighborIsMax bool) {
		if updateOverlaps && !neighborIsMax && testOverlap(axis, moving, neighbor) {
			bp.addOverlappingPair(moving, neighbor)
		}
	})
}
