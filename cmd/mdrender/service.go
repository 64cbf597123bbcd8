package main

import (
	"go.uber.org/zap"

	"github.com/alnah/go-mdrender"
	"github.com/alnah/go-mdrender/internal/config"
)

// serviceOptions translates the effective config into service options.
// Environment options come last so tests can replace backends.
func serviceOptions(cfg *config.Config, log *zap.Logger, env *Environment) []mdrender.Option {
	opts := []mdrender.Option{
		mdrender.WithLogger(log),
		mdrender.WithCacheSize(cfg.Render.CacheSize, cfg.Render.ChunkCacheSize),
		mdrender.WithBrowser(mdrender.BrowserOptions{
			Bin:       cfg.Browser.Bin,
			NoSandbox: cfg.Browser.NoSandbox,
			ScriptURL: cfg.Diagrams.ScriptURL,
		}),
	}
	if env.Now != nil {
		opts = append(opts, mdrender.WithClock(env.Now))
	}
	if cfg.Render.MaxPending > 0 {
		opts = append(opts, mdrender.WithMaxPending(cfg.Render.MaxPending))
	}
	if d := cfg.DiagramTimeout(); d > 0 {
		opts = append(opts, mdrender.WithDiagramTimeout(d))
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, mdrender.WithAssetPath(cfg.Assets.BasePath))
	}
	return append(opts, env.ServiceOptions...)
}
