package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/specialistvlad/adcanvas/internal/config"
	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// LookupEnv resolves env() calls. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{LookupEnv: os.LookupEnv}
}

var _ config.Loader = (*Loader)(nil)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Server     *serverBlock     `hcl:"server,block"`
	Pipeline   *pipelineBlock   `hcl:"pipeline,block"`
	Feed       *feedBlock       `hcl:"feed,block"`
	Autoscroll *autoscrollBlock `hcl:"autoscroll,block"`
	Generative *generativeBlock `hcl:"generative,block"`
	Remain     hcl.Body         `hcl:",remain"`
}

type serverBlock struct {
	Port        *int      `hcl:"port,optional"`
	StaticDir   *string   `hcl:"static_dir,optional"`
	CORSOrigins *[]string `hcl:"cors_origins,optional"`
	ImageHosts  *[]string `hcl:"image_hosts,optional"`
}

type pipelineBlock struct {
	BranchCount   *int     `hcl:"branch_count,optional"`
	BranchSpacing *float64 `hcl:"branch_spacing,optional"`
	ColumnSpacing *float64 `hcl:"column_spacing,optional"`
	BranchKind    *string  `hcl:"branch_kind,optional"`
}

type feedBlock struct {
	Source     *string `hcl:"source,optional"`
	TotalSlots *int    `hcl:"total_slots,optional"`
	AdInterval *int    `hcl:"ad_interval,optional"`
}

type autoscrollBlock struct {
	Speed         *float64 `hcl:"speed,optional"`
	StartDelay    *string  `hcl:"start_delay,optional"`
	FrameInterval *string  `hcl:"frame_interval,optional"`
}

type generativeBlock struct {
	ChatURL          *string `hcl:"chat_url,optional"`
	ImageURL         *string `hcl:"image_url,optional"`
	ChatModel        *string `hcl:"chat_model,optional"`
	ImageModel       *string `hcl:"image_model,optional"`
	APIKey           *string `hcl:"api_key,optional"`
	Timeout          *string `hcl:"timeout,optional"`
	BreakerThreshold *int    `hcl:"breaker_threshold,optional"`
	BreakerCooldown  *string `hcl:"breaker_cooldown,optional"`
}

// Load decodes every HCL file under paths onto the defaults. Missing paths
// are skipped, so a server without a configuration file runs on defaults.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	cfg := config.Default()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	evalCtx := l.evalContext()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		if err := apply(cfg, &root); err != nil {
			return nil, fmt.Errorf("invalid value in %s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "files", len(hclFiles))
	return cfg, nil
}

func (l *Loader) evalContext() *hcl.EvalContext {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := function.New(&function.Spec{
		Params: []function.Parameter{{Name: "name", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			v, _ := lookup(args[0].AsString())
			return cty.StringVal(v), nil
		},
	})
	return &hcl.EvalContext{
		Functions: map[string]function.Function{"env": env},
	}
}

// apply overlays the attributes present in root onto cfg.
func apply(cfg *config.Config, root *fileRoot) error {
	if b := root.Server; b != nil {
		set(&cfg.Server.Port, b.Port)
		set(&cfg.Server.StaticDir, b.StaticDir)
		if b.CORSOrigins != nil {
			cfg.Server.CORSOrigins = slices.Clone(*b.CORSOrigins)
		}
		if b.ImageHosts != nil {
			cfg.Server.ImageHosts = slices.Clone(*b.ImageHosts)
		}
	}
	if b := root.Pipeline; b != nil {
		set(&cfg.Pipeline.BranchCount, b.BranchCount)
		set(&cfg.Pipeline.BranchSpacing, b.BranchSpacing)
		set(&cfg.Pipeline.ColumnSpacing, b.ColumnSpacing)
		set(&cfg.Pipeline.BranchKind, b.BranchKind)
	}
	if b := root.Feed; b != nil {
		set(&cfg.Feed.Source, b.Source)
		set(&cfg.Feed.TotalSlots, b.TotalSlots)
		set(&cfg.Feed.AdInterval, b.AdInterval)
	}
	if b := root.Autoscroll; b != nil {
		set(&cfg.Autoscroll.Speed, b.Speed)
		if err := setDuration(&cfg.Autoscroll.StartDelay, "autoscroll.start_delay", b.StartDelay); err != nil {
			return err
		}
		if err := setDuration(&cfg.Autoscroll.FrameInterval, "autoscroll.frame_interval", b.FrameInterval); err != nil {
			return err
		}
	}
	if b := root.Generative; b != nil {
		set(&cfg.Generative.ChatURL, b.ChatURL)
		set(&cfg.Generative.ImageURL, b.ImageURL)
		set(&cfg.Generative.ChatModel, b.ChatModel)
		set(&cfg.Generative.ImageModel, b.ImageModel)
		set(&cfg.Generative.APIKey, b.APIKey)
		set(&cfg.Generative.BreakerThreshold, b.BreakerThreshold)
		if err := setDuration(&cfg.Generative.Timeout, "generative.timeout", b.Timeout); err != nil {
			return err
		}
		if err := setDuration(&cfg.Generative.BreakerCooldown, "generative.breaker_cooldown", b.BreakerCooldown); err != nil {
			return err
		}
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, name string, v *string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			files, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				if _, wasSeen := seen[f]; !wasSeen {
					allFiles = append(allFiles, f)
					seen[f] = struct{}{}
				}
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
