package gui

import (
	"errors"
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/math"
)

func init() {
	Register("headless", func() Library { return NewHeadlessLibrary() })
}

var errNotCurrent = errors.New("gui context is not current")

// HeadlessLibrary is a GUI library without widgets. Like most immediate
// mode libraries it keeps one current context per process, so misuse of
// MakeCurrent shows up in tests.
type HeadlessLibrary struct {
	mu      sync.Mutex
	current *HeadlessContext
	created int
	// Build, when set, produces the draw data of every frame.
	Build func(in FrameInput, font TextureID) *DrawData
}

func NewHeadlessLibrary() *HeadlessLibrary {
	return &HeadlessLibrary{}
}

func (l *HeadlessLibrary) Name() string {
	return "headless"
}

func (l *HeadlessLibrary) CreateContext() (ContextHandle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.created++
	c := &HeadlessContext{lib: l}
	if l.current == nil {
		l.current = c
	}
	return c, nil
}

// Created counts the contexts created so far.
func (l *HeadlessLibrary) Created() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.created
}

type HeadlessContext struct {
	lib         *HeadlessLibrary
	inFrame     bool
	destroyed   bool
	fontTexture TextureID
	fontSizes   []float32
	last        FrameInput
	frames      int
}

func (c *HeadlessContext) MakeCurrent() {
	c.lib.mu.Lock()
	defer c.lib.mu.Unlock()
	c.lib.current = c
}

func (c *HeadlessContext) isCurrent() bool {
	c.lib.mu.Lock()
	defer c.lib.mu.Unlock()
	return c.lib.current == c && !c.destroyed
}

func (c *HeadlessContext) NewFrame(in FrameInput) error {
	if !c.isCurrent() {
		return errNotCurrent
	}
	if c.inFrame {
		return errors.New("gui frame already started")
	}
	c.inFrame = true
	c.last = in
	c.frames++
	return nil
}

func (c *HeadlessContext) Render() (*DrawData, error) {
	if !c.isCurrent() {
		return nil, errNotCurrent
	}
	if !c.inFrame {
		return nil, errors.New("gui frame was not started")
	}
	c.inFrame = false

	var data *DrawData
	if c.lib.Build != nil {
		data = c.lib.Build(c.last, c.fontTexture)
	} else {
		data = QuadDrawData(c.last.DisplaySize, c.fontTexture)
	}
	if data != nil {
		data.Totals()
	}
	return data, nil
}

// BuildFontAtlas returns an opaque atlas whose height follows the size.
func (c *HeadlessContext) BuildFontAtlas(sizePixels float32) (FontAtlas, error) {
	c.fontSizes = append(c.fontSizes, sizePixels)
	w, h := 64, int(sizePixels+0.5)*4
	if h <= 0 {
		h = 1
	}
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = 0xff
	}
	return FontAtlas{Width: w, Height: h, Pixels: pixels}, nil
}

func (c *HeadlessContext) SetFontTexture(id TextureID) {
	c.fontTexture = id
}

func (c *HeadlessContext) FontTexture() TextureID {
	return c.fontTexture
}

// FontSizes lists the pixel sizes fonts were baked at.
func (c *HeadlessContext) FontSizes() []float32 {
	return c.fontSizes
}

func (c *HeadlessContext) LastInput() FrameInput {
	return c.last
}

func (c *HeadlessContext) Frames() int {
	return c.frames
}

func (c *HeadlessContext) Destroy() {
	c.lib.mu.Lock()
	defer c.lib.mu.Unlock()
	c.destroyed = true
	if c.lib.current == c {
		c.lib.current = nil
	}
}

// QuadDrawData is one textured quad covering the display.
func QuadDrawData(size math.Vec2, texture TextureID) *DrawData {
	white := uint32(0xffffffff)
	list := DrawList{
		VtxBuffer: []DrawVert{
			{Pos: [2]float32{0, 0}, UV: [2]float32{0, 0}, Col: white},
			{Pos: [2]float32{size.X, 0}, UV: [2]float32{1, 0}, Col: white},
			{Pos: [2]float32{size.X, size.Y}, UV: [2]float32{1, 1}, Col: white},
			{Pos: [2]float32{0, size.Y}, UV: [2]float32{0, 1}, Col: white},
		},
		IdxBuffer: []DrawIdx{0, 1, 2, 0, 2, 3},
		Cmds: []DrawCmd{{
			ClipRect:  math.NewVec4(0, 0, size.X, size.Y),
			TextureID: texture,
			ElemCount: 6,
		}},
	}
	data := &DrawData{
		DisplaySize:      size,
		FramebufferScale: math.NewVec2(1, 1),
		CmdLists:         []DrawList{list},
	}
	data.Totals()
	return data
}
