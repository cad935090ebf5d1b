//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Tidies the module and builds the preview binary into bin/.
func (Build) Preview() error {
	if err := goTidy(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/texpreview", "."), withStream()); err != nil {
		return err
	}
	return nil
}
