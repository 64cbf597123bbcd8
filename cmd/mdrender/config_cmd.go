package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-mdrender/internal/config"
)

// runConfig prints the effective configuration as YAML.
func runConfig(args []string, env *Environment) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var name string
	fs.StringVarP(&name, "config", "c", "", "config file name or path")
	if err := parse(fs, args, env.Stderr, printConfigUsage); err != nil {
		return err
	}

	cfg, err := loadConfig(name, env)
	if err != nil {
		return err
	}
	applyEnvConfig(env.Vars, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	_, err = env.Stdout.Write(data)
	return err
}
