// Command canvastail follows a canvas session from the terminal. It joins
// the session's realtime room and prints every snapshot and, with -scroll,
// every autoscroll offset.
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

type options struct {
	url                string
	sessionID          string
	scroll             bool
	timeout            time.Duration
	insecureSkipVerify bool
}

// snapshotEvent is the subset of a snapshot the tail prints.
type snapshotEvent struct {
	SessionID string `json:"sessionId"`
	Revision  uint64 `json:"revision"`
	Nodes     []struct {
		ID     string `json:"id"`
		Kind   string `json:"kind"`
		Status string `json:"status"`
	} `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(ctxlog.WithLogger(context.Background(), logger), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := parse(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := tail(ctx, os.Stdout, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parse(args []string, output io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("canvastail", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&o.url, "url", "http://localhost:8000/socket.io/", "Realtime endpoint of the canvas server.")
	fs.StringVar(&o.sessionID, "session", "", "Session id to follow.")
	fs.BoolVar(&o.scroll, "scroll", false, "Also print autoscroll offsets.")
	fs.DurationVar(&o.timeout, "timeout", 0, "Stop after this long. 0 follows until interrupted.")
	fs.BoolVar(&o.insecureSkipVerify, "insecure", false, "Skip TLS certificate verification.")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.sessionID == "" {
		return o, errors.New("-session is required")
	}
	return o, nil
}

func tail(ctx context.Context, out io.Writer, o options) error {
	logger := ctxlog.FromContext(ctx).With("url", o.url, "session", o.sessionID)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	parsedURL, err := url.Parse(o.url)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	sockOpts := socket.DefaultOptions()
	sockOpts.SetPath(parsedURL.Path)
	if o.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		sockOpts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sockOpts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, sockOpts)
	io := manager.Socket("/", sockOpts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	failed := make(chan error, 1)

	io.On(types.EventName("connect"), func(...any) {
		logger.Info("Connected, joining session", "sid", io.Id())
		io.Emit("join", o.sessionID)
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		select {
		case failed <- err:
		default:
		}
	})
	io.On(types.EventName("canvas_error"), func(data ...any) {
		logger.Warn("Server rejected the session", "detail", first(data))
	})
	io.On(types.EventName("snapshot"), func(data ...any) {
		var snap snapshotEvent
		if err := remarshal(first(data), &snap); err != nil {
			logger.Warn("Unreadable snapshot", "error", err)
			return
		}
		printSnapshot(out, snap)
	})
	if o.scroll {
		io.On(types.EventName("scroll"), func(data ...any) {
			var msg struct {
				PreviewID string  `json:"previewId"`
				Offset    float64 `json:"offset"`
			}
			if err := remarshal(first(data), &msg); err == nil {
				fmt.Fprintf(out, "scroll %s %.1f\n", msg.PreviewID, msg.Offset)
			}
		})
	}

	io.Connect()

	select {
	case <-ctx.Done():
		return nil
	case err := <-failed:
		return fmt.Errorf("failed to connect: %w", err)
	}
}

func printSnapshot(out io.Writer, snap snapshotEvent) {
	fmt.Fprintf(out, "revision %d: %d nodes, %d edges\n", snap.Revision, len(snap.Nodes), len(snap.Edges))
	for _, n := range snap.Nodes {
		fmt.Fprintf(out, "  %-14s %-10s %s\n", n.Kind, n.Status, n.ID)
	}
}

func first(data []any) any {
	if len(data) == 0 {
		return nil
	}
	return data[0]
}

// remarshal converts a decoded event argument into a typed value.
func remarshal(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
