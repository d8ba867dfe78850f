package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/adcanvas/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLoader(env map[string]string) *Loader {
	return &Loader{LookupEnv: func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}}
}

func TestLoad_NoFilesGivesDefaults(t *testing.T) {
	cfg, err := testLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_OverlaysAttributes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "adcanvas.hcl", `
server {
  port         = 9090
  cors_origins = ["https://canvas.example.com"]
  image_hosts  = ["images.example.com"]
}

pipeline {
  branch_count = 5
  branch_kind  = "generate"
}

feed {
  source      = "https://cdn.example.com/feed.ndjson"
  ad_interval = 3
}

autoscroll {
  speed       = 1.5
  start_delay = "250ms"
}

generative {
  api_key = env("GROK_API_KEY")
  timeout = "45s"
}
`)

	cfg, err := testLoader(map[string]string{"GROK_API_KEY": "secret"}).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "static", cfg.Server.StaticDir, "unset attributes keep their default")
	assert.Equal(t, []string{"https://canvas.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, []string{"images.example.com"}, cfg.Server.ImageHosts)
	assert.Equal(t, 5, cfg.Pipeline.BranchCount)
	assert.Equal(t, "generate", cfg.Pipeline.BranchKind)
	assert.InDelta(t, 220.0, cfg.Pipeline.BranchSpacing, 0)
	assert.Equal(t, "https://cdn.example.com/feed.ndjson", cfg.Feed.Source)
	assert.Equal(t, 3, cfg.Feed.AdInterval)
	assert.Equal(t, 30, cfg.Feed.TotalSlots)
	assert.InDelta(t, 1.5, cfg.Autoscroll.Speed, 0)
	assert.Equal(t, 250*time.Millisecond, cfg.Autoscroll.StartDelay)
	assert.Equal(t, 16*time.Millisecond, cfg.Autoscroll.FrameInterval)
	assert.Equal(t, "secret", cfg.Generative.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Generative.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_DirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a_server.hcl", "server {\n  port = 7000\n}\n")
	writeFile(t, dir, "nested/b_feed.hcl", "feed {\n  total_slots = 12\n}\n")
	writeFile(t, dir, "README.md", "not hcl")

	cfg, err := testLoader(nil).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Feed.TotalSlots)
}

func TestLoad_MissingEnvIsEmpty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "g.hcl", "generative {\n  api_key = env(\"NOPE\")\n}\n")
	cfg, err := testLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Generative.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "syntax", content: "server {\n  port = \n", want: "failed to parse"},
		{name: "wrong type", content: "server {\n  port = \"eighty\"\n}\n", want: "failed to decode"},
		{name: "bad duration", content: "autoscroll {\n  start_delay = \"soon\"\n}\n", want: "autoscroll.start_delay"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.hcl", tc.content)
			_, err := testLoader(nil).Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_InvalidValuesAreLoadedButFailValidation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "feed.hcl", "feed {\n  ad_interval = 0\n}\n")
	cfg, err := testLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Error(t, cfg.Validate())
}
