package spatial

// CommandKind identifies which Broadphase operation a Command applies.
type CommandKind uint8

const (
	CommandAdd CommandKind = iota
	CommandUpdate
	CommandRemove
)

// Command is one queued mutation for the broadphase tick loop to apply.
// Proxy must be the same pointer across a proxy's lifetime: allocated by the
// submitter for CommandAdd, then reused for its CommandUpdate/CommandRemove.
type Command struct {
	Kind  CommandKind
	Proxy *Proxy
	AABB  AABB
	Wake  bool // wakeOverlaps, consulted only for CommandAdd
}

// Apply runs the command against bp. Call only from the single goroutine
// that owns bp, after draining a CommandQueue — Broadphase itself has no
// internal concurrency control (see Broadphase's doc comment).
func (c Command) Apply(bp *Broadphase) error {
	switch c.Kind {
	case CommandAdd:
		c.Proxy.AABB = c.AABB
		return bp.Add(c.Proxy, c.Wake)
	case CommandUpdate:
		return bp.Update(c.Proxy, c.AABB)
	case CommandRemove:
		return bp.Remove(c.Proxy)
	default:
		return nil
	}
}
