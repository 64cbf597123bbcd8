package main

import (
	"io"
	"os"
	"time"

	"github.com/alnah/go-mdrender"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Vars   *envConfig

	// ServiceOptions are appended to every service the CLI creates.
	// Tests use them to inject fake backends.
	ServiceOptions []mdrender.Option
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:    time.Now,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Vars:   loadEnvConfig(),
	}
}
