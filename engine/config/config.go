// Package config loads the TOML file describing windows, backends and the
// GUI, and keeps it current while the application runs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

type Window struct {
	X      int    `toml:"x"`
	Y      int    `toml:"y"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

type Log struct {
	Level string `toml:"level"`
}

type Platform struct {
	Name string `toml:"name"`
}

type Renderer struct {
	Backend string `toml:"backend"`
	// RGBA, linear.
	ClearColor            [4]float32 `toml:"clear_color"`
	InitialVertexCapacity uint32     `toml:"initial_vertex_capacity"`
	InitialIndexCapacity  uint32     `toml:"initial_index_capacity"`
	FrameStackCapacity    int        `toml:"frame_stack_capacity"`
	// Parallel runs the per-window begin and end frame steps as jobs.
	Parallel   bool `toml:"parallel"`
	Validation bool `toml:"validation"`
}

type GUI struct {
	Library  string  `toml:"library"`
	FontSize float32 `toml:"font_size"`
	// DPIScale overrides the content scale reported by the window when > 0.
	DPIScale float32 `toml:"dpi_scale"`
}

type Assets struct {
	Dir             string `toml:"dir"`
	GUIVertexShader string `toml:"gui_vertex_shader"`
	GUIPixelShader  string `toml:"gui_pixel_shader"`
}

type Config struct {
	Window   Window   `toml:"window"`
	Log      Log      `toml:"log"`
	Platform Platform `toml:"platform"`
	Renderer Renderer `toml:"renderer"`
	GUI      GUI      `toml:"gui"`
	Assets   Assets   `toml:"assets"`
}

var (
	platforms = []string{"glfw", "headless"}
	backends  = []string{"vulkan", "headless"}
	libraries = []string{"imgui", "headless"}
)

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Window: Window{
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 800,
			Title:  "Anima Gfx",
		},
		Log:      Log{Level: "info"},
		Platform: Platform{Name: "glfw"},
		Renderer: Renderer{
			Backend:               "vulkan",
			ClearColor:            [4]float32{0.35, 0.35, 0.35, 1},
			InitialVertexCapacity: 1024 * 1024,
			InitialIndexCapacity:  1024 * 1024,
			FrameStackCapacity:    4096,
		},
		GUI: GUI{
			Library:  "imgui",
			FontSize: 13,
		},
		Assets: Assets{
			Dir:             "assets",
			GUIVertexShader: "shaders/gui.vert.spv",
			GUIPixelShader:  "shaders/gui.frag.spv",
		},
	}
}

// Load overlays the file at path on the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogDebug("no configuration at `%s`, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, core.Errorf("config_load", core.ErrUnknown, "%v", err)
	}
	if err := Decode(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads TOML into cfg, leaving the fields absent from data untouched.
func Decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return core.Errorf("config_decode", core.ErrUnknown, "line %d column %d: %s", row, col, derr.Error())
		}
		return core.Errorf("config_decode", core.ErrUnknown, "%v", err)
	}
	return cfg.Validate()
}

// Encode writes cfg back as TOML.
func (c *Config) Encode() ([]byte, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return nil, core.Errorf("config_encode", core.ErrUnknown, "%v", err)
	}
	return b, nil
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return nil
		}
	}
	return fmt.Errorf("%s `%s` is not one of %s", field, value, strings.Join(allowed, ", "))
}

// Validate rejects sizes and capacities that are not positive and names no
// backend knows.
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if _, err := core.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("platform", c.Platform.Name, platforms); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("renderer backend", c.Renderer.Backend, backends); err != nil {
		errs = append(errs, err)
	}
	if err := oneOf("gui library", c.GUI.Library, libraries); err != nil {
		errs = append(errs, err)
	}
	if c.Renderer.InitialVertexCapacity == 0 || c.Renderer.InitialIndexCapacity == 0 {
		errs = append(errs, errors.New("initial buffer capacities must be positive"))
	}
	if c.Renderer.FrameStackCapacity <= 0 {
		errs = append(errs, errors.New("frame stack capacity must be positive"))
	}
	if c.GUI.FontSize <= 0 {
		errs = append(errs, errors.New("font size must be positive"))
	}
	if c.GUI.DPIScale < 0 {
		errs = append(errs, errors.New("dpi scale override must not be negative"))
	}
	if len(errs) > 0 {
		return core.Errorf("config_validate", core.ErrUnknown, "%v", errors.Join(errs...))
	}
	return nil
}

func (c *Config) ClearColor() metadata.Color {
	cc := c.Renderer.ClearColor
	return metadata.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}
}

// LogLevel returns the parsed level, info when it cannot be parsed.
func (c *Config) LogLevel() core.LogLevel {
	l, _ := core.ParseLogLevel(c.Log.Level)
	return l
}
