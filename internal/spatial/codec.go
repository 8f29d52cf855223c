package spatial

// Endpoint words pack one min or max projection of a proxy's AABB onto one
// axis into a single 64-bit value: the max flag in the top bit, the owning
// proxy id in the low 15 bits of the upper word, and the signed coordinate
// in the low 32.
//
// Bit layout: bit 63 = isMax, bits 62..32 = ownerID (only the low 15 bits,
// 46..32, are used; 62..47 stay zero), bits 31..0 = coord.
// The isMax bit sits in the high position so the raw word orders close to
// coordinate order, but sort comparisons always go through decodeCoord —
// the raw word is never compared directly.
const (
	ownerIDBits  = 15
	ownerIDMask  = uint64(1<<ownerIDBits - 1)
	ownerIDShift = 32
	isMaxShift   = 63
	coordMask    = uint64(0xFFFFFFFF)
)

func encodeEndpoint(isMax bool, ownerID uint32, coord int32) uint64 {
	word := (uint64(ownerID) & ownerIDMask) << ownerIDShift
	word |= uint64(uint32(coord))
	if isMax {
		word |= 1 << isMaxShift
	}
	return word
}

func decodeIsMax(word uint64) bool {
	return word>>isMaxShift != 0
}

func decodeOwner(word uint64) uint32 {
	return uint32((word >> ownerIDShift) & ownerIDMask)
}

func decodeCoord(word uint64) int32 {
	return int32(uint32(word & coordMask))
}
