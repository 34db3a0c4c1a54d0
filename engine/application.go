package engine

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string
	// MaxFrames stops the loop after that many frames, 0 runs until the
	// primary window closes.
	MaxFrames uint64
}
