package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestBitMask(t *testing.T) {
	a := NewUniqueDirtyState("position")
	b := NewUniqueDirtyState("size")

	if a == b || a.Count() != 1 {
		t.Error(fmt.Sprintf("dirty states %b and %b should be distinct single bits", a, b))
	}

	m := a.Or(b)
	if !m.Has(a) || !m.Has(b) || m.Count() != 2 {
		t.Error(fmt.Sprintf("%b should hold both states", m))
	}
	if m.And(a) != a || m.Xor(a) != b || m.Not().Has(a) {
		t.Error("and/xor/not disagree")
	}
	if m.FirstIndex() != DirtyStates.MustLookup("size") {
		t.Errorf("first index = %d", m.FirstIndex())
	}

	m.Clear()
	if !m.IsEmpty() || m.FirstIndex() != -1 {
		t.Error("cleared mask not empty")
	}
	m.Fill()
	if m.Count() != MaxDirtyStates {
		t.Errorf("filled mask has %d bits", m.Count())
	}
}

func TestRegistryIdsFollowManifest(t *testing.T) {
	r, err := NewRegistry("thing", 1, 10, "a", "b", "c")
	if err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{"a", "b", "c"} {
		if id, _ := r.Lookup(name); id != i+1 {
			t.Errorf("%s = %d, want %d", name, id, i+1)
		}
		if got, _ := r.Name(i + 1); got != name {
			t.Errorf("name(%d) = %s", i+1, got)
		}
	}
	if _, ok := r.Lookup("d"); ok {
		t.Error("lookup of unknown name succeeded")
	}
	if _, ok := r.Name(0); ok {
		t.Error("id below first resolved")
	}
}

func TestRegistryCapacity(t *testing.T) {
	names := make([]string, MaxDirtyStates+1)
	for i := range names {
		names[i] = fmt.Sprintf("state_%d", i)
	}

	if _, err := NewRegistry("dirty state", 0, MaxDirtyStates, names[:MaxDirtyStates]...); err != nil {
		t.Fatalf("64 states should fit: %v", err)
	}

	_, err := NewRegistry("dirty state", 0, MaxDirtyStates, names...)
	var capErr *CapacityExceededError
	if !errors.As(err, &capErr) || capErr.Limit != MaxDirtyStates {
		t.Errorf("65th state: got %v", err)
	}

	if _, err := NewRegistry("blob type", 1, 256, "x", "x"); err == nil {
		t.Error("duplicate name accepted")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegistry did not panic")
		}
	}()
	MustRegistry("dirty state", 0, MaxDirtyStates, names...)
}

func TestBlobTypesSkipTerminator(t *testing.T) {
	if HeaderBlob == Terminator || CommandBlob == Terminator || DeleteBlob == Terminator {
		t.Error("a block type collides with the terminator")
	}
	if name, _ := BlobTypes.Name(int(DeleteBlob)); name != "delete" {
		t.Errorf("delete blob resolves to %q", name)
	}
}
