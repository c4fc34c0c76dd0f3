package vm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestCacheSaveLoadRunRoundTrip(t *testing.T) {
	machine := New()
	function, ok := Compile(machine, `
		fun greet(name) {
			print "hi " + name;
		}
		greet("world");
		print 1 + 2;
	`)
	if !ok {
		t.Fatal("unexpected compile error")
	}

	path := filepath.Join(t.TempDir(), "out.glimc")
	if err := machine.SaveCache(function, path); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	loader := New()
	var out bytes.Buffer
	loader.SetOutput(&out)

	loaded, err := loader.LoadCache(path)
	if err != nil {
		t.Fatalf("LoadCache: %v", err)
	}
	if err := loader.Run(loaded); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantLines(t, out.String(), "hi world", "3")
}

func TestLoadCacheRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.glimc")
	if err := os.WriteFile(path, []byte("not a cache"), 0o644); err != nil {
		t.Fatal(err)
	}

	machine := New()
	if _, err := machine.LoadCache(path); err == nil {
		t.Fatal("expected an error loading a non-cbor file")
	}
}
