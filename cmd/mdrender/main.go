package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/alnah/go-mdrender/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrUnknownCommand is returned for an unrecognized subcommand.
var ErrUnknownCommand = errors.New("unknown command")

func main() {
	env := DefaultEnv()
	warnUnknownEnvVars(env.Stderr, os.Environ())

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS env,
	// in which case the runtime default applies.
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	ctx, stop := notifyContext(context.Background())
	code := runMain(ctx, os.Args, env)
	stop()
	os.Exit(code)
}

// runMain dispatches to a subcommand and maps its error to an exit code.
func runMain(ctx context.Context, args []string, env *Environment) int {
	if len(args) < 2 {
		printUsage(env.Stderr)
		return ExitUsage
	}

	cmd, rest := args[1], args[2:]
	var err error
	switch cmd {
	case "render":
		err = runRender(ctx, rest, env)
	case "export":
		err = runExport(ctx, rest, env)
	case "config":
		err = runConfig(rest, env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "mdrender %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		return runHelp(rest, env)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, errHelpShown) {
		return ExitSuccess
	}
	hint := hintFor(err)
	var batch *batchError
	if errors.As(err, &batch) {
		hint = "" // already printed per file
	}
	fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hint)
	if errors.Is(err, ErrUnknownCommand) {
		printUsage(env.Stderr)
	}
	return exitCodeFor(err)
}

// loadConfig loads the named config, falling back to the environment
// variable and then the defaults.
func loadConfig(name string, env *Environment) (*config.Config, error) {
	if name == "" && env.Vars != nil {
		name = env.Vars.ConfigPath
	}
	if name == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(name)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
