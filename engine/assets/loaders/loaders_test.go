package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

func TestBytesToBytecode(t *testing.T) {
	have, err := BytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0x07230203, 1}
	if len(have) != len(want) || have[0] != want[0] || have[1] != want[1] {
		t.Fatalf("have %#x\nwant %#x", have, want)
	}
	if _, err := BytesToBytecode([]byte{1, 2, 3}); err == nil {
		t.Fatal("a length that is not a multiple of 4 must fail")
	}
}

func TestShaderLoader(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "gui.vert.spv")
	if err := os.WriteFile(good, []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "bad.spv")
	if err := os.WriteFile(bad, []byte{0, 0, 0, 0}, 0o644); err != nil {
		t.Fatal(err)
	}

	sl := &ShaderLoader{}
	res, err := sl.Load("gui.vert.spv", good)
	if err != nil {
		t.Fatal(err)
	}
	if res.Type != metadata.ResourceTypeShader || res.DataSize != 8 {
		t.Fatalf("have %s %d bytes\nwant shader 8 bytes", res.Type, res.DataSize)
	}
	if code := res.Data.([]uint32); len(code) != 2 {
		t.Fatalf("have %d words\nwant 2", len(code))
	}
	if err := sl.Unload(res); err != nil || res.Data != nil {
		t.Fatalf("have %v %v\nwant unloaded", err, res.Data)
	}

	if _, err := sl.Load("bad.spv", bad); err == nil {
		t.Fatal("a file without the SPIR-V magic must fail")
	}
	if _, err := sl.Load("missing.spv", filepath.Join(dir, "missing.spv")); err == nil {
		t.Fatal("a missing file must fail")
	}
}
