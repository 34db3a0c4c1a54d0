// Package imgui adapts github.com/inkyblackness/imgui-go to the gui
// collaborator interfaces. The binding keeps one current context per
// process; every handle method expects MakeCurrent to have been called.
package imgui

import (
	"fmt"
	stdmath "math"
	"unsafe"

	"github.com/inkyblackness/imgui-go/v4"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/gui"
	"github.com/spaghettifunk/anima-gfx/engine/math"
)

func init() {
	gui.Register("imgui", func() gui.Library { return &Library{} })
}

type Library struct{}

func (l *Library) Name() string {
	return "imgui"
}

func (l *Library) CreateContext() (gui.ContextHandle, error) {
	entrySize, posOffset, uvOffset, colOffset := imgui.VertexBufferLayout()
	if entrySize != gui.DrawVertSize || posOffset != 0 || uvOffset != 8 || colOffset != 16 {
		return nil, fmt.Errorf("imgui vertex layout %d/%d/%d/%d does not match gui.DrawVert", entrySize, posOffset, uvOffset, colOffset)
	}
	if size := imgui.IndexBufferLayout(); size != gui.DrawIndexSize {
		return nil, fmt.Errorf("imgui index size %d does not match gui.DrawIdx", size)
	}
	return &Context{ctx: imgui.CreateContext(nil)}, nil
}

type Context struct {
	ctx  *imgui.Context
	data gui.DrawData
}

func (c *Context) MakeCurrent() {
	if err := c.ctx.SetCurrent(); err != nil {
		core.LogError("imgui context can not be made current: %s", err)
	}
}

func (c *Context) NewFrame(in gui.FrameInput) error {
	io := imgui.CurrentIO()
	io.SetDisplaySize(imgui.Vec2{X: in.DisplaySize.X, Y: in.DisplaySize.Y})
	io.SetDeltaTime(in.DeltaTime)
	if in.Focused {
		io.SetMousePosition(imgui.Vec2{X: in.MousePos.X, Y: in.MousePos.Y})
	} else {
		io.SetMousePosition(imgui.Vec2{X: -stdmath.MaxFloat32, Y: -stdmath.MaxFloat32})
	}
	for i, down := range in.MouseDown {
		io.SetMouseButtonDown(i, down)
	}
	if in.MouseWheel.X != 0 || in.MouseWheel.Y != 0 {
		io.AddMouseWheelDelta(in.MouseWheel.X, in.MouseWheel.Y)
	}
	for _, k := range in.KeysPressed {
		io.KeyPress(k)
	}
	for _, k := range in.KeysReleased {
		io.KeyRelease(k)
	}
	if len(in.Chars) > 0 {
		io.AddInputCharacters(string(in.Chars))
	}
	imgui.NewFrame()
	return nil
}

// Render ends the frame and copies the library draw lists. The returned
// data is reused by the next call.
func (c *Context) Render() (*gui.DrawData, error) {
	imgui.Render()
	drawData := imgui.RenderedDrawData()
	size := imgui.CurrentIO().DisplaySize()

	data := &c.data
	data.DisplayPos = math.NewVec2(0, 0)
	data.DisplaySize = math.NewVec2(size.X, size.Y)
	data.FramebufferScale = math.NewVec2(1, 1)
	data.CmdLists = data.CmdLists[:0]
	if !drawData.Valid() {
		data.Totals()
		return data, nil
	}

	for _, list := range drawData.CommandLists() {
		vtxPtr, vtxBytes := list.VertexBuffer()
		idxPtr, idxBytes := list.IndexBuffer()

		out := gui.DrawList{}
		if vtxBytes > 0 {
			out.VtxBuffer = append(out.VtxBuffer, unsafe.Slice((*gui.DrawVert)(vtxPtr), vtxBytes/gui.DrawVertSize)...)
		}
		if idxBytes > 0 {
			out.IdxBuffer = append(out.IdxBuffer, unsafe.Slice((*gui.DrawIdx)(idxPtr), idxBytes/gui.DrawIndexSize)...)
		}

		var idxOffset uint32
		for _, cmd := range list.Commands() {
			count := uint32(cmd.ElementCount())
			if cmd.HasUserCallback() {
				out.Cmds = append(out.Cmds, gui.DrawCmd{
					UserCallback: func(*gui.DrawList, *gui.DrawCmd) { cmd.CallUserCallback(list) },
				})
			} else {
				clip := cmd.ClipRect()
				out.Cmds = append(out.Cmds, gui.DrawCmd{
					ClipRect:  math.NewVec4(clip.X, clip.Y, clip.Z, clip.W),
					TextureID: gui.TextureID(cmd.TextureID()),
					IdxOffset: idxOffset,
					ElemCount: count,
				})
			}
			idxOffset += count
		}
		data.CmdLists = append(data.CmdLists, out)
	}
	data.Totals()
	return data, nil
}

// BuildFontAtlas rebuilds the atlas with the default font at sizePixels.
func (c *Context) BuildFontAtlas(sizePixels float32) (gui.FontAtlas, error) {
	fonts := imgui.CurrentIO().Fonts()
	fonts.Clear()

	config := imgui.NewFontConfig()
	defer config.Delete()
	config.SetSize(sizePixels)
	fonts.AddFontDefaultV(config)

	image := fonts.TextureDataRGBA32()
	if image == nil || image.Width <= 0 || image.Height <= 0 {
		return gui.FontAtlas{}, fmt.Errorf("imgui produced an empty font atlas at %.1fpx", sizePixels)
	}
	n := image.Width * image.Height * 4
	pixels := make([]byte, n)
	copy(pixels, unsafe.Slice((*byte)(image.Pixels), n))
	return gui.FontAtlas{Width: image.Width, Height: image.Height, Pixels: pixels}, nil
}

func (c *Context) SetFontTexture(id gui.TextureID) {
	imgui.CurrentIO().Fonts().SetTextureID(imgui.TextureID(id))
}

func (c *Context) Destroy() {
	if c.ctx != nil {
		c.ctx.Destroy()
		c.ctx = nil
	}
}
