/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-gfx/engine"
	"github.com/spaghettifunk/anima-gfx/engine/config"
	"github.com/spaghettifunk/anima-gfx/engine/core"
	"github.com/spaghettifunk/anima-gfx/testbed"

	_ "github.com/spaghettifunk/anima-gfx/engine/gui/imgui"
	_ "github.com/spaghettifunk/anima-gfx/engine/renderer/headless"
	_ "github.com/spaghettifunk/anima-gfx/engine/renderer/vulkan"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "anima.toml", "configuration file, the defaults apply when it is missing")
	platformName := flag.String("platform", "", "window system (glfw, headless)")
	backend := flag.String("backend", "", "renderer backend (vulkan, headless)")
	frames := flag.Uint64("frames", 0, "stop after that many frames, 0 runs until the window closes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogError("failed to load the configuration: %v", err)
		return 1
	}
	if *platformName != "" {
		cfg.Platform.Name = *platformName
	}
	if *backend != "" {
		cfg.Renderer.Backend = *backend
	}

	gfx := engine.Default()
	if ok, err := gfx.SelectPlatform(cfg.Platform.Name); !ok {
		core.LogError("failed to select the platform: %v", err)
		return 1
	}
	if err := gfx.Init(cfg); err != nil {
		core.LogError("failed to initialize: %v", err)
		return 1
	}
	defer gfx.Destroy()

	watcher, err := config.Watch(*configPath, gfx.ApplyConfig)
	if err != nil {
		core.LogWarn("configuration will not be reloaded: %v", err)
	} else {
		defer watcher.Close()
	}

	window, err := gfx.OpenWindow(cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		core.LogError("failed to open the window: %v", err)
		return 1
	}
	if err := window.Show(); err != nil {
		core.LogError("failed to show the window: %v", err)
		return 1
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigCh
		gfx.RequestQuit()
	}()

	tb := testbed.NewTestGame(*frames)
	if err := gfx.Run(tb.Game); err != nil {
		core.LogError("testbed stopped: %v", err)
		return 1
	}
	return 0
}
