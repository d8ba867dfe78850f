package app

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/adcanvas/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// StaticLoader hands out a fixed configuration, for tests that do not need
// files on disk.
type StaticLoader struct {
	Config *config.Config
	Err    error
}

func (l StaticLoader) Load(context.Context, ...string) (*config.Config, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	cfg := *l.Config
	return &cfg, nil
}

// SetupAppTest creates a new app instance for system testing.
func SetupAppTest(t *testing.T, appConfig *Config, loader config.Loader) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	appConfig.LogLevel = "debug"
	testApp := NewApp(logBuffer, appConfig, loader)

	t.Cleanup(func() {
		_ = testApp.registry.CloseAll(context.Background())
		if os.Getenv("ADCANVAS_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
