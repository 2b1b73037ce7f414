package transparency

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/ktlog/auditor/tree/transparency/structs"
)

func mustBytes32(t *testing.T, s string) [32]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var out [32]byte
	if len(b) != len(out) {
		t.Fatalf("wrong length: got %d want %d", len(b), len(out))
	}
	copy(out[:], b)
	return out
}

func mustBytes16(t *testing.T, s string) [16]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var out [16]byte
	if len(b) != len(out) {
		t.Fatalf("wrong length: got %d want %d", len(b), len(out))
	}
	copy(out[:], b)
	return out
}

func TestLog_ApplyUpdate_SingleNewTree(t *testing.T) {
	var l Log

	update := &structs.AuditorUpdate{
		Real:       true,
		Index:      mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4"),
		Seed:       mustBytes16(t, "c3009d216ad487428a6f904ede447bc9"),
		Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
		Proof:      structs.AuditorProof{Kind: structs.NewTreeProof},
	}

	if err := l.ApplyUpdate(update); err != nil {
		t.Fatalf("apply update: %v", err)
	}

	if l.Size() != 1 {
		t.Fatalf("size = %d, want 1", l.Size())
	}

	root, err := l.LogRoot()
	if err != nil {
		t.Fatalf("log root: %v", err)
	}
	want := mustBytes32(t, "1e6fdd7508a05b5ba2661f7eec7e8df0a0ee9a277ca5b345f17fbe8e6aa8e9d1")
	if root != want {
		t.Fatalf("log root = %x, want %x", root, want)
	}
}

// TestLog_ApplyUpdate_SameKeyAdvancesSize checks that size advances by
// exactly one per successful apply across a SameKey update, and that the
// log root moves with it: the re-registration, not just NewTree and
// DifferentKey, produces a new log leaf.
func TestLog_ApplyUpdate_SameKeyAdvancesSize(t *testing.T) {
	var l Log

	index := mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4")
	seed := mustBytes16(t, "c3009d216ad487428a6f904ede447bc9")

	if err := l.ApplyUpdate(&structs.AuditorUpdate{
		Real:       true,
		Index:      index,
		Seed:       seed,
		Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
		Proof:      structs.AuditorProof{Kind: structs.NewTreeProof},
	}); err != nil {
		t.Fatalf("new tree: %v", err)
	}
	if l.Size() != 1 {
		t.Fatalf("size after new tree = %d, want 1", l.Size())
	}
	rootAfterNewTree, err := l.LogRoot()
	if err != nil {
		t.Fatalf("log root after new tree: %v", err)
	}

	if err := l.ApplyUpdate(&structs.AuditorUpdate{
		Real:       true,
		Index:      index,
		Seed:       seed,
		Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
		Proof:      structs.AuditorProof{Kind: structs.SameKeyProof, Counter: 0, Position: 0},
	}); err != nil {
		t.Fatalf("same key: %v", err)
	}

	if l.Size() != 2 {
		t.Fatalf("size after same key = %d, want 2 (a re-registration still advances size by one)", l.Size())
	}
	rootAfterSameKey, err := l.LogRoot()
	if err != nil {
		t.Fatalf("log root after same key: %v", err)
	}
	if rootAfterSameKey == rootAfterNewTree {
		t.Fatalf("log root did not change after applying the same-key update")
	}
}

// TestLog_NotInitialized covers the empty-log boundary: LogRoot before
// any update is an error, not a zero value.
func TestLog_NotInitialized(t *testing.T) {
	var l Log
	if _, err := l.LogRoot(); err != ErrNotInitialized {
		t.Fatalf("got %v, want ErrNotInitialized", err)
	}
	if l.Size() != 0 {
		t.Fatalf("size = %d, want 0", l.Size())
	}
}

// TestLog_FailedApply_LeavesStateUnchanged checks that a second NewTree
// update against an already-initialized log fails, and neither size nor
// log root move.
func TestLog_FailedApply_LeavesStateUnchanged(t *testing.T) {
	var l Log
	first := &structs.AuditorUpdate{
		Real:       true,
		Index:      mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4"),
		Seed:       mustBytes16(t, "c3009d216ad487428a6f904ede447bc9"),
		Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
		Proof:      structs.AuditorProof{Kind: structs.NewTreeProof},
	}
	if err := l.ApplyUpdate(first); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	sizeBefore := l.Size()
	rootBefore, err := l.LogRoot()
	if err != nil {
		t.Fatalf("log root: %v", err)
	}

	if err := l.ApplyUpdate(first); err == nil {
		t.Fatalf("second NewTree apply unexpectedly succeeded")
	}

	if l.Size() != sizeBefore {
		t.Fatalf("size changed after failed apply: %d != %d", l.Size(), sizeBefore)
	}
	rootAfter, err := l.LogRoot()
	if err != nil {
		t.Fatalf("log root after failed apply: %v", err)
	}
	if rootAfter != rootBefore {
		t.Fatalf("root changed after failed apply: %x != %x", rootAfter, rootBefore)
	}
}

// TestLog_SnapshotRestore checks the in-memory half of snapshotting:
// restoring a Snapshot reproduces the same size and log root.
func TestLog_SnapshotRestore(t *testing.T) {
	var l Log
	if err := l.ApplyUpdate(&structs.AuditorUpdate{
		Real:       true,
		Index:      mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4"),
		Seed:       mustBytes16(t, "c3009d216ad487428a6f904ede447bc9"),
		Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
		Proof:      structs.AuditorProof{Kind: structs.NewTreeProof},
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	snap := l.Snapshot()
	restored := Restore(snap)

	if restored.Size() != l.Size() {
		t.Fatalf("restored size = %d, want %d", restored.Size(), l.Size())
	}
	wantRoot, err := l.LogRoot()
	if err != nil {
		t.Fatalf("log root: %v", err)
	}
	gotRoot, err := restored.LogRoot()
	if err != nil {
		t.Fatalf("restored log root: %v", err)
	}
	if gotRoot != wantRoot {
		t.Fatalf("restored root = %x, want %x", gotRoot, wantRoot)
	}
}

// TestAuditorUpdate_MarshalRoundTrip exercises the wire codec end to end
// for each proof kind, since the core only ever sees updates after they
// cross this boundary.
func TestAuditorUpdate_MarshalRoundTrip(t *testing.T) {
	cases := []*structs.AuditorUpdate{
		{
			Real:       true,
			Index:      mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4"),
			Seed:       mustBytes16(t, "c3009d216ad487428a6f904ede447bc9"),
			Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
			Proof:      structs.AuditorProof{Kind: structs.NewTreeProof},
		},
		{
			Real:       true,
			Index:      mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4"),
			Seed:       mustBytes16(t, "c3009d216ad487428a6f904ede447bc9"),
			Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
			Proof: structs.AuditorProof{
				Kind:     structs.SameKeyProof,
				Copath:   [][32]byte{mustBytes32(t, "33819dcecb822883dd9e134325f28ba79d114fe69bb33a09d9755c6507fe22e7")},
				Counter:  3,
				Position: 7,
			},
		},
		{
			Real:       false,
			Index:      mustBytes32(t, "72304a54df58d7d2673f7f99fe1689ca939eebc55741f3d1335904cb9c8564e4"),
			Seed:       mustBytes16(t, "c3009d216ad487428a6f904ede447bc9"),
			Commitment: mustBytes32(t, "5f799a1d6d34dffacbec4d47c4f200a6be09de9b6d444ad27e87ba0beaad3607"),
			Proof: structs.AuditorProof{
				Kind:    structs.DifferentKeyProof,
				OldSeed: mustBytes16(t, "a7d0256b66a95ad4a8f9efed2ee9f06c"),
				Copath: [][32]byte{
					mustBytes32(t, "33819dcecb822883dd9e134325f28ba79d114fe69bb33a09d9755c6507fe22e7"),
					mustBytes32(t, "a7d0256b66a95ad4a8f9efed2ee9f060cc50c32336223063c30483dda33f0408"),
				},
			},
		},
	}

	for i, want := range cases {
		buf := &bytes.Buffer{}
		if err := want.Marshal(buf); err != nil {
			t.Fatalf("case %d: marshal: %v", i, err)
		}
		got, err := structs.NewAuditorUpdate(buf)
		if err != nil {
			t.Fatalf("case %d: unmarshal: %v", i, err)
		}
		if buf.Len() != 0 {
			t.Fatalf("case %d: %d trailing bytes after decode", i, buf.Len())
		}
		if got.Real != want.Real || got.Index != want.Index || got.Seed != want.Seed || got.Commitment != want.Commitment {
			t.Fatalf("case %d: header fields mismatch: got %+v, want %+v", i, got, want)
		}
		if got.Proof.Kind != want.Proof.Kind || got.Proof.Counter != want.Proof.Counter ||
			got.Proof.Position != want.Proof.Position || got.Proof.OldSeed != want.Proof.OldSeed {
			t.Fatalf("case %d: proof scalar fields mismatch: got %+v, want %+v", i, got.Proof, want.Proof)
		}
		if len(got.Proof.Copath) != len(want.Proof.Copath) {
			t.Fatalf("case %d: copath length mismatch: got %d, want %d", i, len(got.Proof.Copath), len(want.Proof.Copath))
		}
		for j := range want.Proof.Copath {
			if got.Proof.Copath[j] != want.Proof.Copath[j] {
				t.Fatalf("case %d: copath[%d] mismatch", i, j)
			}
		}
	}
}
