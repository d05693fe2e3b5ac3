//go:build mage

// Package main contains Mage build targets for docpivot.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "docpivot"
	cmdPkg  = "./cmd/docpivot"
)

// fuzzTargets maps each package to its fuzz functions.
var fuzzTargets = map[string][]string{
	"./decoder":     {"FuzzDecodeArchive"},
	"./format":      {"FuzzDetect"},
	"./mdconverter": {"FuzzRender"},
}

// Default target.
var Default = Build

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Golden regenerates the renderer golden files.
func Golden() error {
	return sh.RunV("go", "test", "./mdconverter", "-run", "TestGoldenFiles", "-update")
}

// Fuzz runs every fuzz target for a short time.
func Fuzz() error {
	mg.Deps(Test)
	for pkg, targets := range fuzzTargets {
		for _, target := range targets {
			if err := sh.RunV("go", "test", pkg, "-run", "^$", "-fuzz", "^"+target+"$", "-fuzztime", "20s"); err != nil {
				return fmt.Errorf("fuzz %s %s: %w", pkg, target, err)
			}
		}
	}
	return nil
}

// Bench runs the renderer benchmarks.
func Bench() error {
	return sh.RunV("go", "test", "./mdconverter", "-run", "^$", "-bench", ".", "-benchmem")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}
