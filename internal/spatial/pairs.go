package spatial

// encodePair canonically encodes an unordered pair of proxy ids into one
// 32-bit word: the higher id in bits 31..16, the lower id in bits 15..0.
// The ordering means pair identity never depends on argument order.
func encodePair(a, b ProxyID) uint32 {
	lo, hi := uint32(a), uint32(b)
	if lo > hi {
		lo, hi = hi, lo
	}
	return hi<<16 | (lo & 0xFFFF)
}

// FirstEntityFromPair and SecondEntityFromPair decode the two participants
// out of a pair word returned by Broadphase.Pairs. First is always the
// lower id, Second the higher.
func FirstEntityFromPair(word uint32) ProxyID  { return ProxyID(word & 0xFFFF) }
func SecondEntityFromPair(word uint32) ProxyID { return ProxyID(word >> 16) }

// pairManager owns the dense, swap-removed array of live overlapping pairs.
// Its index into that array is the "pair id" stored in each participating
// proxy's overlaps slots.
type pairManager struct {
	words []uint32 // capacity == maxOverlaps, words[:count] are live
	count int32
}

// find scans only a's overlaps (not b's), per spec: O(maxOverlapsPerEntity).
func (pm *pairManager) find(a *Proxy, pair uint32) int32 {
	for _, idx := range a.overlaps {
		if idx != invalidPairID && pm.words[idx] == pair {
			return idx
		}
	}
	return invalidPairID
}

// addOverlappingPair registers the pair (a,b) unless it already exists or
// the filter rule rejects it. Returns ErrOverCapacity if the pair table or
// either proxy's overlap slots are full; this is a no-op on the shape of
// both proxies (neither acquires a half-registered pair).
func (pm *pairManager) addOverlappingPair(a, b *Proxy) error {
	pair := encodePair(a.ID, b.ID)
	if pm.find(a, pair) != invalidPairID {
		return nil
	}
	if !filtersNeedCollision(a.Filter, b.Filter) {
		return nil
	}
	if int(pm.count) >= len(pm.words) {
		return ErrOverCapacity
	}

	idx := pm.count
	if !a.addOverlapSlot(idx) {
		return ErrOverCapacity
	}
	if !b.addOverlapSlot(idx) {
		a.removeOverlapSlot(idx)
		return ErrOverCapacity
	}

	pm.words[idx] = pair
	pm.count++
	return nil
}

// removePair drops the pair (a,b) if present, swap-removing the last live
// pair into its slot and rewriting the overlap slots of whichever two
// proxies that moved pair belongs to.
func (pm *pairManager) removePair(a, b *Proxy, lookup func(ProxyID) *Proxy) {
	pair := encodePair(a.ID, b.ID)
	idx := pm.find(a, pair)
	if idx == invalidPairID {
		return
	}

	a.removeOverlapSlot(idx)
	b.removeOverlapSlot(idx)

	last := pm.count - 1
	if idx != last {
		moved := pm.words[last]
		pm.words[idx] = moved
		ma := lookup(FirstEntityFromPair(moved))
		mb := lookup(SecondEntityFromPair(moved))
		ma.reindexOverlapSlot(last, idx)
		mb.reindexOverlapSlot(last, idx)
	}
	pm.count--
}
