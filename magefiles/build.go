//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaders = []string{"gui.vert", "gui.frag"}

// Compiles the GUI shaders to SPIR-V next to their sources.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the testbed binary.
func (Build) Testbed() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/testbed", "."), withStream())
	return err
}

func buildShaders() error {
	for _, s := range shaders {
		if _, err := executeCmd("glslc", withArgs(s, "-o", s+".spv"), withDir("assets/shaders"), withStream()); err != nil {
			return err
		}
	}
	return nil
}
