package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

func TestVkError(t *testing.T) {
	if err := vkError("op", vk.Success); err != nil {
		t.Fatalf("have %v\nwant nil", err)
	}
	if err := vkError("op", vk.Suboptimal); err != nil {
		t.Fatalf("have %v\nwant nil", err)
	}
	err := vkError("vkQueueSubmit", vk.ErrorDeviceLost)
	if !errors.Is(err, core.ErrDeviceLost) || !errors.Is(err, core.ErrNotSpecified) {
		t.Fatalf("have %v\nwant a device lost gfx error", err)
	}
	err = vkError("vkCreateBuffer", vk.ErrorOutOfDeviceMemory)
	if !errors.Is(err, core.ErrUnknown) {
		t.Fatalf("have %v\nwant reason %v", err, core.ErrUnknown)
	}
}

func TestUnknownResultIsFailure(t *testing.T) {
	result := vk.Result(-12345)
	if VulkanResultIsSuccess(result) {
		t.Fatal("an unknown result must not count as success")
	}
	if have, want := VulkanResultString(result, true), "VkResult(-12345)"; have != want {
		t.Fatalf("have %q\nwant %q", have, want)
	}
}

func TestCString(t *testing.T) {
	name := make([]byte, 256)
	copy(name, "VK_LAYER_KHRONOS_validation")
	if have, want := cString(name), "VK_LAYER_KHRONOS_validation"; have != want {
		t.Fatalf("have %q\nwant %q", have, want)
	}
	if have, want := cString([]byte("abc")), "abc"; have != want {
		t.Fatalf("have %q\nwant %q", have, want)
	}
	if have, want := safeString("main"), "main\x00"; have != want {
		t.Fatalf("have %q\nwant %q", have, want)
	}
	if have, want := safeString("main\x00"), "main\x00"; have != want {
		t.Fatalf("have %q\nwant %q", have, want)
	}
}

func TestClampUint32(t *testing.T) {
	cases := []struct{ v, lo, hi, want uint32 }{
		{v: 5, lo: 1, hi: 10, want: 5},
		{v: 0, lo: 1, hi: 10, want: 1},
		{v: 4096, lo: 1, hi: 2048, want: 2048},
	}
	for _, c := range cases {
		if have := clampUint32(c.v, c.lo, c.hi); have != c.want {
			t.Errorf("clamp(%d, %d, %d): have %d\nwant %d", c.v, c.lo, c.hi, have, c.want)
		}
	}
}

func TestFlipViewport(t *testing.T) {
	have := flipViewport(metadata.Viewport{X: 10, Y: 20, Width: 1280, Height: 800, MaxDepth: 1})
	want := vk.Viewport{X: 10, Y: 820, Width: 1280, Height: -800, MaxDepth: 1}
	if have != want {
		t.Fatalf("have %+v\nwant %+v", have, want)
	}
}

func TestScissorRect(t *testing.T) {
	have := scissorRect(metadata.Rect{Left: -5, Top: 10, Right: 100, Bottom: 60})
	if have.Offset.X != 0 || have.Offset.Y != 10 || have.Extent.Width != 100 || have.Extent.Height != 50 {
		t.Fatalf("have %+v\nwant offset (0, 10) extent 100x50", have)
	}
	empty := scissorRect(metadata.Rect{Left: 50, Top: 50, Right: 40, Bottom: 40})
	if empty.Extent.Width != 0 || empty.Extent.Height != 0 {
		t.Fatalf("have %+v\nwant an empty extent", empty)
	}
}

func TestSurfaceTransform(t *testing.T) {
	if have := fromVkTransform(vk.SurfaceTransformRotate90Bit); have != metadata.SurfaceTransformRotate90 {
		t.Fatalf("have %v\nwant %v", have, metadata.SurfaceTransformRotate90)
	}
	if have := fromVkTransform(vk.SurfaceTransformIdentityBit); have != metadata.SurfaceTransformIdentity {
		t.Fatalf("have %v\nwant %v", have, metadata.SurfaceTransformIdentity)
	}
}
