package gui

import "github.com/spaghettifunk/anima-gfx/engine/math"

// TextureID identifies a texture inside draw commands. Zero means none.
type TextureID uint64

// DrawVert is the vertex layout every GUI library adapter produces:
// position, uv and a packed RGBA8 color, 20 bytes in total.
type DrawVert struct {
	Pos [2]float32
	UV  [2]float32
	Col uint32
}

const (
	DrawVertSize  = 20
	DrawIndexSize = 2
)

type DrawIdx = uint16

type DrawCallback func(list *DrawList, cmd *DrawCmd)

type DrawCmd struct {
	// ClipRect is (x1, y1, x2, y2) in display coordinates.
	ClipRect  math.Vec4
	TextureID TextureID
	VtxOffset uint32
	IdxOffset uint32
	ElemCount uint32
	// UserCallback replaces the draw when set.
	UserCallback DrawCallback
	// ResetRenderState asks the renderer to re-apply its state instead of
	// calling UserCallback.
	ResetRenderState bool
}

type DrawList struct {
	VtxBuffer []DrawVert
	IdxBuffer []DrawIdx
	Cmds      []DrawCmd
}

// DrawData is everything a GUI frame asks the GPU to draw.
type DrawData struct {
	DisplayPos       math.Vec2
	DisplaySize      math.Vec2
	FramebufferScale math.Vec2
	CmdLists         []DrawList
	TotalVtxCount    int
	TotalIdxCount    int
}

// Valid reports whether the data covers a non-empty display.
func (d *DrawData) Valid() bool {
	return d != nil && d.DisplaySize.X > 0 && d.DisplaySize.Y > 0
}

// Totals recomputes TotalVtxCount and TotalIdxCount from the lists.
func (d *DrawData) Totals() {
	d.TotalVtxCount, d.TotalIdxCount = 0, 0
	for i := range d.CmdLists {
		d.TotalVtxCount += len(d.CmdLists[i].VtxBuffer)
		d.TotalIdxCount += len(d.CmdLists[i].IdxBuffer)
	}
}
