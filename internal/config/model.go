package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server     Server
	Pipeline   Pipeline
	Feed       Feed
	Autoscroll Autoscroll
	Generative Generative
}

type Server struct {
	Port        int
	StaticDir   string
	CORSOrigins []string
	// ImageHosts are the remote hosts the image proxy may fetch from, in
	// addition to the creatives of live sessions.
	ImageHosts []string
}

type Pipeline struct {
	BranchCount   int
	BranchSpacing float64
	ColumnSpacing float64
	// BranchKind is "image_result" or "generate".
	BranchKind string
}

type Feed struct {
	// Source is an http(s) URL or a file path of an NDJSON document.
	Source     string
	TotalSlots int
	AdInterval int
}

type Autoscroll struct {
	// Speed is in pixels per 16ms frame.
	Speed         float64
	StartDelay    time.Duration
	FrameInterval time.Duration
}

type Generative struct {
	ChatURL          string
	ImageURL         string
	ChatModel        string
	ImageModel       string
	APIKey           string
	Timeout          time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Default returns the configuration used for every value a file leaves out.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:        8000,
			StaticDir:   "static",
			CORSOrigins: []string{"*"},
		},
		Pipeline: Pipeline{
			BranchCount:   3,
			BranchSpacing: 220,
			ColumnSpacing: 360,
			BranchKind:    "image_result",
		},
		Feed: Feed{
			Source:     "static/feed.ndjson",
			TotalSlots: 30,
			AdInterval: 4,
		},
		Autoscroll: Autoscroll{
			Speed:         1,
			StartDelay:    500 * time.Millisecond,
			FrameInterval: 16 * time.Millisecond,
		},
		Generative: Generative{
			Timeout:          60 * time.Second,
			BreakerThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port))
	}
	if c.Pipeline.BranchCount < 1 {
		errs = append(errs, fmt.Errorf("pipeline.branch_count must be at least 1, got %d", c.Pipeline.BranchCount))
	}
	if c.Pipeline.BranchSpacing < 0 || c.Pipeline.ColumnSpacing < 0 {
		errs = append(errs, errors.New("pipeline spacing must not be negative"))
	}
	if c.Pipeline.BranchKind != "image_result" && c.Pipeline.BranchKind != "generate" {
		errs = append(errs, fmt.Errorf("pipeline.branch_kind must be image_result or generate, got %q", c.Pipeline.BranchKind))
	}
	if c.Feed.AdInterval <= 0 {
		errs = append(errs, fmt.Errorf("feed.ad_interval must be positive, got %d", c.Feed.AdInterval))
	}
	if c.Feed.TotalSlots < 0 {
		errs = append(errs, fmt.Errorf("feed.total_slots must not be negative, got %d", c.Feed.TotalSlots))
	}
	if c.Autoscroll.Speed < 0 {
		errs = append(errs, fmt.Errorf("autoscroll.speed must not be negative, got %v", c.Autoscroll.Speed))
	}
	if c.Autoscroll.StartDelay < 0 || c.Autoscroll.FrameInterval <= 0 {
		errs = append(errs, errors.New("autoscroll durations must be positive"))
	}
	if c.Generative.Timeout <= 0 {
		errs = append(errs, errors.New("generative.timeout must be positive"))
	}
	if c.Generative.BreakerThreshold < 1 {
		errs = append(errs, fmt.Errorf("generative.breaker_threshold must be at least 1, got %d", c.Generative.BreakerThreshold))
	}
	return errors.Join(errs...)
}
