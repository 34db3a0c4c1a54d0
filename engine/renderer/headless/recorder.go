package headless

import (
	"sync"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/math"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

// Recorder collects every call made to the objects of one headless backend.
// Calls are keyed by method name, e.g. "Present" or "DrawIndexed".
type Recorder struct {
	mu       sync.Mutex
	calls    map[string]int
	failures map[string]error
	draws    []metadata.DrawIndexedAttribs
	binds    []uint64
	scissors []metadata.Rect
	uploads  map[uint64][]byte
	consts   []math.Mat4
	clears   []metadata.Color
	nextID   uint64

	// Swapchains created from now on report these.
	ColorFormat  metadata.TextureFormat
	DepthFormat  metadata.TextureFormat
	PreTransform metadata.SurfaceTransform
}

func NewRecorder() *Recorder {
	return &Recorder{
		calls:        make(map[string]int),
		failures:     make(map[string]error),
		uploads:      make(map[uint64][]byte),
		ColorFormat:  metadata.TextureFormatRGBA8UnormSRGB,
		DepthFormat:  metadata.TextureFormatD32Float,
		PreTransform: metadata.SurfaceTransformIdentity,
	}
}

// FailOn makes every following call named name return err until cleared
// with a nil err.
func (r *Recorder) FailOn(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, name)
		return
	}
	r.failures[name] = err
}

func (r *Recorder) Calls(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[name]
}

func (r *Recorder) Draws() []metadata.DrawIndexedAttribs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]metadata.DrawIndexedAttribs(nil), r.draws...)
}

// Binds lists the ids of the textures bound, in order.
func (r *Recorder) Binds() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.binds...)
}

func (r *Recorder) Scissors() []metadata.Rect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]metadata.Rect(nil), r.scissors...)
}

func (r *Recorder) Constants() []math.Mat4 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]math.Mat4(nil), r.consts...)
}

func (r *Recorder) Clears() []metadata.Color {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]metadata.Color(nil), r.clears...)
}

// Upload returns the last bytes written to the buffer or texture with id.
func (r *Recorder) Upload(id uint64) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploads[id]
}

// Reset forgets the recorded calls but keeps the injected failures.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = make(map[string]int)
	r.draws = nil
	r.binds = nil
	r.scissors = nil
	r.consts = nil
	r.clears = nil
}

func (r *Recorder) record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[name]++
	if err, ok := r.failures[name]; ok {
		return core.NewError(name, err)
	}
	return nil
}

func (r *Recorder) id() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

func (r *Recorder) with(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}
