package spatial

import "testing"

func TestCommandApplyAddUpdateRemove(t *testing.T) {
	bp := New(8, 16)
	p := NewProxy()
	p.Filter = Filter{Group: 1, Mask: 1}

	if err := (Command{Kind: CommandAdd, Proxy: p, AABB: AABB{0, 0, 10, 10}, Wake: true}).Apply(bp); err != nil {
		t.Fatalf("apply add: %v", err)
	}
	if p.ID == InvalidProxyID {
		t.Fatalf("proxy not registered after CommandAdd")
	}

	if err := (Command{Kind: CommandUpdate, Proxy: p, AABB: AABB{5, 5, 10, 10}}).Apply(bp); err != nil {
		t.Fatalf("apply update: %v", err)
	}
	if p.AABB.X != 5 {
		t.Fatalf("AABB not updated by CommandUpdate")
	}

	if err := (Command{Kind: CommandRemove, Proxy: p}).Apply(bp); err != nil {
		t.Fatalf("apply remove: %v", err)
	}
	if p.ID != InvalidProxyID {
		t.Fatalf("proxy still registered after CommandRemove")
	}
}

func TestCommandApplyUnknownKindIsNoOp(t *testing.T) {
	bp := New(4, 4)
	if err := (Command{Kind: CommandKind(99)}).Apply(bp); err != nil {
		t.Fatalf("unknown command kind: err = %v, want nil", err)
	}
}
