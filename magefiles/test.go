//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the engine tests with the race detector.
func (Test) Race() error {
	if _, err := executeCmd("go", withArgs("test", "-race", "-count=1", "./engine/..."), withStream()); err != nil {
		return err
	}
	return nil
}
