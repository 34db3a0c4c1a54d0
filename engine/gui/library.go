package gui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/math"
)

// FrameInput is the device state handed to the GUI library at the start of
// every frame.
type FrameInput struct {
	DisplaySize      math.Vec2
	FramebufferScale math.Vec2
	DeltaTime        float32
	MousePos         math.Vec2
	MouseDown        [5]bool
	MouseWheel       math.Vec2
	KeysPressed      []int
	KeysReleased     []int
	Chars            []rune
	Focused          bool
}

// FontAtlas holds RGBA8 pixels, Width*Height*4 bytes.
type FontAtlas struct {
	Width  int
	Height int
	Pixels []byte
}

// FontBuilder is the part of a GUI context the renderer needs to bake fonts.
type FontBuilder interface {
	BuildFontAtlas(sizePixels float32) (FontAtlas, error)
	SetFontTexture(id TextureID)
}

// ContextHandle is one GUI library context. Libraries that keep a global
// current context switch it in MakeCurrent; every other method assumes the
// handle is current.
type ContextHandle interface {
	FontBuilder
	MakeCurrent()
	NewFrame(in FrameInput) error
	Render() (*DrawData, error)
	Destroy()
}

type Library interface {
	Name() string
	CreateContext() (ContextHandle, error)
}

var (
	librariesMu sync.RWMutex
	libraries   = map[string]func() Library{}
)

func Register(name string, ctor func() Library) {
	librariesMu.Lock()
	defer librariesMu.Unlock()
	if _, dup := libraries[name]; dup {
		panic("gui: Register called twice for library " + name)
	}
	libraries[name] = ctor
}

func Select(name string) (Library, error) {
	librariesMu.RLock()
	ctor, ok := libraries[strings.ToLower(name)]
	librariesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown gui library `%s` (available: %s)", name, strings.Join(Libraries(), ", "))
	}
	return ctor(), nil
}

func Libraries() []string {
	librariesMu.RLock()
	defer librariesMu.RUnlock()
	names := make([]string, 0, len(libraries))
	for n := range libraries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
