package vm

import "testing"

// TestCollectGarbageFreesOnlyUnreachableObjects exercises the full
// mark/trace/remove-white-strings/sweep cycle directly: one string is
// kept live on the stack, the other is let go, and only the unreachable
// one should be swept.
func TestCollectGarbageFreesOnlyUnreachableObjects(t *testing.T) {
	machine := New()

	live := machine.internString("kept-alive")
	machine.push(ObjValue(live))

	dangling := &ObjString{Chars: "garbage", Hash: hashString("garbage")}
	machine.trackAlloc(dangling)

	machine.collectGarbage()

	if dangling.marked {
		t.Fatal("sweep should have cleared the mark bit, not left it set")
	}

	found := false
	for o := machine.objects; o != nil; o = o.header().next {
		if o == Obj(dangling) {
			found = true
		}
	}
	if found {
		t.Fatal("unreachable string survived collection")
	}

	foundLive := false
	for o := machine.objects; o != nil; o = o.header().next {
		if s, ok := o.(*ObjString); ok && s == live {
			foundLive = true
		}
	}
	if !foundLive {
		t.Fatal("reachable string was incorrectly collected")
	}

	machine.pop()
}

// TestRemoveWhiteStringsDropsUnmarkedInternEntries checks that a string
// no longer reachable is removed from the intern table rather than left
// as a dangling entry (§4.6 phase 3).
func TestRemoveWhiteStringsDropsUnmarkedInternEntries(t *testing.T) {
	machine := New()
	s := machine.internString("ephemeral")
	if _, ok := machine.strings.Get(s); !ok {
		t.Fatal("internString should have inserted into the strings table")
	}

	machine.collectGarbage()

	if _, ok := machine.strings.Get(s); ok {
		t.Fatal("an unreachable interned string should be removed from the strings table")
	}
}

func TestMarkObjectIsIdempotentAndNilSafe(t *testing.T) {
	machine := New()
	machine.markObject(nil)

	s := &ObjString{Chars: "x", Hash: hashString("x")}
	machine.markObject(s)
	if !s.marked {
		t.Fatal("markObject should set the mark bit")
	}
	depth := len(machine.grayStack)
	machine.markObject(s)
	if len(machine.grayStack) != depth {
		t.Fatal("marking an already-marked object should not push it again")
	}
}
