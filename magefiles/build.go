//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

var shaderNames = []string{"gpucull.vert", "gpucull.frag", "gpucull.comp"}

// Compiles the GLSL sources under assets/shaders into SPIR-V.
func (Build) Shaders() error {
	for _, name := range shaderNames {
		src := filepath.Join("assets", "shaders", name)
		out := src + ".spv"
		if _, err := executeCmd("glslc", withArgs(src, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the engine binary.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "prisma", "."), withStream()); err != nil {
		return err
	}
	fmt.Println("Built ./prisma")
	return nil
}
