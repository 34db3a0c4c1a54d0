package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/engine/renderer/metadata"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	w := cfg.Window
	if w.X != 100 || w.Y != 100 || w.Width != 1280 || w.Height != 800 {
		t.Fatalf("have %+v\nwant 100,100 1280x800", w)
	}
	if have := cfg.ClearColor(); have != metadata.DefaultClearColor {
		t.Fatalf("have %v\nwant %v", have, metadata.DefaultClearColor)
	}
	if have := cfg.LogLevel(); have != core.InfoLevel {
		t.Fatalf("have %v\nwant %v", have, core.InfoLevel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 1280 {
		t.Fatalf("have %d\nwant %d", cfg.Window.Width, 1280)
	}
}

func TestDecodeOverlay(t *testing.T) {
	data := []byte(`
[window]
width = 640
title = "overlay"

[renderer]
backend = "headless"
parallel = true
clear_color = [0.0, 0.5, 1.0, 1.0]

[log]
level = "debug"
`)
	cfg := Default()
	if err := Decode(data, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != 800 {
		t.Fatalf("have %dx%d\nwant 640x800", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Window.Title != "overlay" {
		t.Fatalf("have %q\nwant %q", cfg.Window.Title, "overlay")
	}
	if !cfg.Renderer.Parallel || cfg.Renderer.Backend != "headless" {
		t.Fatalf("have %+v\nwant a parallel headless renderer", cfg.Renderer)
	}
	if cfg.Renderer.FrameStackCapacity != 4096 {
		t.Fatalf("have %d\nwant %d", cfg.Renderer.FrameStackCapacity, 4096)
	}
	want := metadata.Color{R: 0, G: 0.5, B: 1, A: 1}
	if have := cfg.ClearColor(); have != want {
		t.Fatalf("have %v\nwant %v", have, want)
	}
	if have := cfg.LogLevel(); have != core.DebugLevel {
		t.Fatalf("have %v\nwant %v", have, core.DebugLevel)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"syntax":        "[window\nwidth = 1",
		"unknown field": "[window]\ndepth = 3",
		"zero width":    "[window]\nwidth = 0",
		"backend":       "[renderer]\nbackend = \"metal\"",
		"platform":      "[platform]\nname = \"sdl\"",
		"log level":     "[log]\nlevel = \"loud\"",
		"stack":         "[renderer]\nframe_stack_capacity = -1",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			err := Decode([]byte(data), Default())
			if !errors.Is(err, core.ErrNotSpecified) {
				t.Fatalf("have %v\nwant a gfx error", err)
			}
		})
	}
}

func TestEncodeDecodes(t *testing.T) {
	cfg := Default()
	cfg.GUI.Library = "headless"
	b, err := cfg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	back := Default()
	if err := Decode(b, back); err != nil {
		t.Fatal(err)
	}
	if *back != *cfg {
		t.Fatalf("have %+v\nwant %+v", back, cfg)
	}
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gfx.toml")
	if err := os.WriteFile(path, []byte("[window]\nwidth = 320\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 16)
	w, err := Watch(path, func(c *Config) { changes <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if have := w.Current().Window.Width; have != 320 {
		t.Fatalf("have %d\nwant %d", have, 320)
	}

	if err := os.WriteFile(path, []byte("[window]\nwidth = 640\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Window.Width == 640 {
				if have := w.Current().Window.Width; have != 640 {
					t.Fatalf("have %d\nwant %d", have, 640)
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestWatcherCloseTwice(t *testing.T) {
	w, err := Watch(filepath.Join(t.TempDir(), "gfx.toml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}
