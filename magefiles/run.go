//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Renders the material named by $MATERIAL (default brick.amt) into preview/.
func (Run) Preview() error {
	mg.Deps(Build.Preview)

	material := os.Getenv("MATERIAL")
	if material == "" {
		material = "brick.amt"
	}
	args := []string{"-material", material, "-out", "preview"}
	if cfg := os.Getenv("CONFIG"); cfg != "" {
		args = append(args, "-config", cfg)
	}
	fmt.Println("Run preview...")
	if _, err := executeCmd("bin/texpreview", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}
