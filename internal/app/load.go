package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/specialistvlad/adcanvas/internal/autoscroll"
	"github.com/specialistvlad/adcanvas/internal/config"
	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/feed"
	"github.com/specialistvlad/adcanvas/internal/generative"
	"github.com/specialistvlad/adcanvas/internal/localsession"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
)

// loadSettings reads and validates the configuration, with the process
// overrides applied.
func (a *App) loadSettings(ctx context.Context) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration...", "paths", a.config.ConfigPaths)

	cfg, err := a.loader.Load(ctx, a.config.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Info("Configuration loaded.", "branches", cfg.Pipeline.BranchCount, "feed", cfg.Feed.Source)
	return cfg, nil
}

func (a *App) applyOverrides(cfg *config.Config) {
	if a.config.Port > 0 {
		cfg.Server.Port = a.config.Port
	}
	if a.config.Branches > 0 {
		cfg.Pipeline.BranchCount = a.config.Branches
	}
	if cfg.Generative.APIKey == "" {
		cfg.Generative.APIKey = a.config.APIKey
	}
}

// sessionSettings translates the configuration into session settings.
func sessionSettings(cfg *config.Config) (localsession.Settings, error) {
	kind, err := node.ParseKind(cfg.Pipeline.BranchKind)
	if err != nil {
		return localsession.Settings{}, fmt.Errorf("pipeline.branch_kind: %w", err)
	}
	s := localsession.Settings{
		Pipeline: pipeline.Settings{
			BranchCount:   cfg.Pipeline.BranchCount,
			BranchSpacing: cfg.Pipeline.BranchSpacing,
			ColumnSpacing: cfg.Pipeline.ColumnSpacing,
			BranchKind:    kind,
		},
		TotalSlots: cfg.Feed.TotalSlots,
		AdInterval: cfg.Feed.AdInterval,
		Scroll: autoscroll.Config{
			Speed:         cfg.Autoscroll.Speed,
			StartDelay:    cfg.Autoscroll.StartDelay,
			FrameInterval: cfg.Autoscroll.FrameInterval,
		},
	}
	if err := s.Pipeline.Validate(); err != nil {
		return localsession.Settings{}, err
	}
	return s, nil
}

func generativeConfig(cfg config.Generative) generative.Config {
	return generative.Config{
		ChatURL:          cfg.ChatURL,
		ImageURL:         cfg.ImageURL,
		ChatModel:        cfg.ChatModel,
		ImageModel:       cfg.ImageModel,
		APIKey:           cfg.APIKey,
		Timeout:          cfg.Timeout,
		BreakerThreshold: uint32(max(cfg.BreakerThreshold, 0)),
		BreakerCooldown:  cfg.BreakerCooldown,
	}
}

// feedSource picks the content source for a configured location.
func feedSource(location string, client *http.Client) feed.Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &feed.HTTPSource{Client: client, URL: location}
	}
	return &feed.FileSource{Path: location}
}
