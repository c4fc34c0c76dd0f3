package vm

import (
	"fmt"
	"testing"
)

func key(s string) *ObjString {
	return &ObjString{Chars: s, Hash: hashString(s)}
}

func TestTableSetGetRoundTrip(t *testing.T) {
	tbl := NewTable()
	a, b, c := key("a"), key("b"), key("c")

	tbl.Set(a, NumberValue(1))
	tbl.Set(b, NumberValue(2))
	tbl.Set(c, NumberValue(3))

	for k, want := range map[*ObjString]float64{a: 1, b: 2, c: 3} {
		got, ok := tbl.Get(k)
		if !ok || got.Number != want {
			t.Fatalf("Get(%s) = %v, %v; want %v, true", k.Chars, got, ok, want)
		}
	}
}

func TestTableSetOverwritesLastValue(t *testing.T) {
	tbl := NewTable()
	k := key("x")
	tbl.Set(k, NumberValue(1))
	tbl.Set(k, NumberValue(2))
	got, ok := tbl.Get(k)
	if !ok || got.Number != 2 {
		t.Fatalf("got %v, %v; want 2, true", got, ok)
	}
}

func TestTableSetReportsNewKey(t *testing.T) {
	tbl := NewTable()
	k := key("x")
	if isNew := tbl.Set(k, NumberValue(1)); !isNew {
		t.Error("first Set of a key should report isNewKey=true")
	}
	if isNew := tbl.Set(k, NumberValue(2)); isNew {
		t.Error("second Set of an existing key should report isNewKey=false")
	}
}

func TestTableDeleteThenGetIsMiss(t *testing.T) {
	tbl := NewTable()
	k := key("gone")
	tbl.Set(k, NumberValue(1))
	if !tbl.Delete(k) {
		t.Fatal("Delete of a present key should return true")
	}
	if _, ok := tbl.Get(k); ok {
		t.Fatal("Get after Delete should miss")
	}
	if tbl.Delete(k) {
		t.Fatal("Delete of an already-deleted key should return false")
	}
}

// TestTableTombstoneDoesNotBreakProbeChain verifies that deleting a key
// that sits earlier in a collision chain than another live key does not
// make the live key unreachable (the tombstone must not terminate the
// probe sequence).
func TestTableTombstoneDoesNotBreakProbeChain(t *testing.T) {
	tbl := NewTable()
	keys := make([]*ObjString, 0, 16)
	for i := 0; i < 16; i++ {
		k := key(string(rune('a' + i)))
		keys = append(keys, k)
		tbl.Set(k, NumberValue(float64(i)))
	}
	for i := 0; i < 16; i += 2 {
		tbl.Delete(keys[i])
	}
	for i := 1; i < 16; i += 2 {
		got, ok := tbl.Get(keys[i])
		if !ok || got.Number != float64(i) {
			t.Fatalf("key %d: got %v, %v; want %d, true", i, got, ok, i)
		}
	}
}

func TestTableGrowthPreservesLoadFactor(t *testing.T) {
	tbl := NewTable()
	for i := 0; i < 200; i++ {
		tbl.Set(key(fmt.Sprintf("key-%d", i)), NumberValue(float64(i)))
	}
	if float64(tbl.count) > float64(tbl.capacity)*tableMaxLoad {
		t.Fatalf("count %d exceeds 0.75 load factor of capacity %d", tbl.count, tbl.capacity)
	}
}

func TestAddAllCopiesSuperclassMethodsIntoSubclass(t *testing.T) {
	super := NewTable()
	sub := NewTable()
	speak := key("speak")
	super.Set(speak, NumberValue(1))

	super.AddAll(sub)

	got, ok := sub.Get(speak)
	if !ok || got.Number != 1 {
		t.Fatalf("subclass table missing copied method: got %v, %v", got, ok)
	}
}

func TestFindStringMatchesByContent(t *testing.T) {
	tbl := NewTable()
	s := key("hello")
	tbl.Set(s, NilValue())

	found := tbl.FindString("hello", hashString("hello"))
	if found != s {
		t.Fatalf("FindString should return the same pointer for equal content")
	}
	if tbl.FindString("nope", hashString("nope")) != nil {
		t.Fatal("FindString should miss on absent content")
	}
}
