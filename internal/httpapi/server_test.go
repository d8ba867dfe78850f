package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/adcanvas/internal/autoscroll"
	"github.com/specialistvlad/adcanvas/internal/feed"
	"github.com/specialistvlad/adcanvas/internal/generative"
	"github.com/specialistvlad/adcanvas/internal/localsession"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
	"github.com/specialistvlad/adcanvas/internal/session"
)

type creativeStub struct {
	err  error
	base string
}

func (c creativeStub) GenerateCreatives(_ context.Context, req pipeline.CreativeRequest) ([]node.Creative, error) {
	if c.err != nil {
		return nil, c.err
	}
	base := c.base
	if base == "" {
		base = "https://img.example"
	}
	out := make([]node.Creative, req.BranchCount)
	for i := range out {
		out[i] = node.Creative{ImageRef: fmt.Sprintf("%s/%d.png", base, i)}
	}
	return out, nil
}

type staticSource []feed.ContentItem

func (s staticSource) Fetch(context.Context) ([]feed.ContentItem, error) { return s, nil }

type assistantStub struct {
	demoErr error
	seenURL string
}

func (a *assistantStub) Demographics(_ context.Context, productURL, _ string) (node.Demographics, error) {
	a.seenURL = productURL
	if a.demoErr != nil {
		return node.Demographics{}, a.demoErr
	}
	return node.Demographics{Gender: "female", AgeRange: node.Bounded(node.Age(25), node.Age(34))}, nil
}

func (a *assistantStub) BrandStyle(context.Context, string) (node.BrandStyle, error) {
	return node.BrandStyle{Colors: []string{"#112233"}, Mood: "calm", FontStyle: "Serif"}, nil
}

func (a *assistantStub) GenerateImage(_ context.Context, p generative.ImagePrompt) (generative.Image, error) {
	return generative.Image{ImageRef: "https://img.example/one.png", Prompt: "prompt for " + p.ProductURL}, nil
}

type testEnv struct {
	srv       *httptest.Server
	registry  *session.Registry
	assistant *assistantStub
}

func newTestEnv(t *testing.T, gen pipeline.CreativeGenerator, staticDir string, opts ...func(*Config)) *testEnv {
	t.Helper()
	settings := localsession.Settings{
		Pipeline:   pipeline.Settings{BranchCount: 2, BranchSpacing: 100, ColumnSpacing: 300, BranchKind: node.KindImageResult},
		TotalSlots: 8,
		AdInterval: 4,
		Scroll:     autoscroll.Config{Speed: 1, StartDelay: time.Hour},
	}
	content := staticSource{{Text: "hello", Author: "a"}, {Text: "world", Author: "b"}}
	reg := session.NewRegistry(localsession.NewFactory(settings, gen, content, nil, nil), nil)
	t.Cleanup(func() { _ = reg.CloseAll(context.Background()) })

	assistant := &assistantStub{}
	cfg := Config{
		Registry:  reg,
		Assistant: assistant,
		StaticDir: staticDir,
		Feed:      func() FeedDefaults { return FeedDefaults{TotalSlots: 6, AdInterval: 3} },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := New(context.Background(), cfg)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, registry: reg, assistant: assistant}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type viewJSON struct {
	ID       string `json:"id"`
	Stage    string `json:"stage"`
	Revision uint64 `json:"revision"`
	Nodes    []struct {
		ID     string `json:"id"`
		Kind   string `json:"kind"`
		Status string `json:"status"`
	} `json:"nodes"`
	Branches []struct {
		ID        string `json:"id"`
		PreviewID string `json:"previewId"`
		Linked    bool   `json:"linked"`
	} `json:"branches"`
}

func (v viewJSON) node(id string) (string, bool) {
	for _, n := range v.Nodes {
		if n.ID == id {
			return n.Status, true
		}
	}
	return "", false
}

func (v viewJSON) idsOfKind(kind string) []string {
	var out []string
	for _, n := range v.Nodes {
		if n.Kind == kind {
			out = append(out, n.ID)
		}
	}
	return out
}

func TestServer_FullWorkflow(t *testing.T) {
	env := newTestEnv(t, creativeStub{}, "")

	resp := env.do(t, http.MethodPost, "/api/sessions", map[string]string{"productUrl": "https://shop.example/p/1", "intentPrompt": "moms"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decodeBody[viewJSON](t, resp)
	require.NotEmpty(t, view.ID)
	assert.Equal(t, string(pipeline.StageDemographicsPending), view.Stage)
	base := "/api/sessions/" + view.ID

	resp = env.do(t, http.MethodPost, base+"/demographics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://shop.example/p/1", env.assistant.seenURL)

	resp = env.do(t, http.MethodPost, base+"/demographics/confirm", map[string]any{"gender": "female", "age_range": map[string]int{"min": 25}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/brand-style", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	suggestion := decodeBody[node.BrandStyle](t, resp)
	assert.Equal(t, "calm", suggestion.Mood)

	resp = env.do(t, http.MethodPost, base+"/brand-style/confirm", suggestion)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeBody[viewJSON](t, resp)
	branches := view.idsOfKind("image_result")
	require.Len(t, branches, 2)

	resp = env.do(t, http.MethodPost, base+"/branches/"+branches[1]+"/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeBody[viewJSON](t, resp)
	previews := view.idsOfKind("preview")
	require.Len(t, previews, 1)
	status, _ := view.node(branches[1])
	assert.Equal(t, "completed", status)
	require.Len(t, view.Branches, 2)
	assert.Empty(t, view.Branches[0].PreviewID)
	assert.Equal(t, previews[0], view.Branches[1].PreviewID)
	assert.True(t, view.Branches[1].Linked)

	resp = env.do(t, http.MethodGet, base+"/previews/"+previews[0]+"/feed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pf := decodeBody[session.PreviewFeed](t, resp)
	kinds := make([]feed.SlotKind, 0, len(pf.Items))
	for _, it := range pf.Items {
		kinds = append(kinds, it.Kind)
	}
	want := []feed.SlotKind{feed.SlotContent, feed.SlotContent, feed.SlotAd, feed.SlotAd}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("feed kinds mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, pf.Display, 2*len(pf.Items))

	resp = env.do(t, http.MethodPost, base+"/previews/"+previews[0]+"/surface", map[string]float64{"singleCopyHeight": 480})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decodeBody[viewJSON](t, resp)
	assert.Equal(t, string(pipeline.StagePreviewCompleted), view.Stage)

	resp = env.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ErrorMapping(t *testing.T) {
	env := newTestEnv(t, creativeStub{err: fmt.Errorf("upstream down")}, "")

	resp := env.do(t, http.MethodPost, "/api/sessions", map[string]string{"productUrl": "not a url"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, env.registry.Len())

	resp = env.do(t, http.MethodPost, "/api/sessions", map[string]string{"productUrl": "https://shop.example/p/1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	base := "/api/sessions/" + decodeBody[viewJSON](t, resp).ID

	resp = env.do(t, http.MethodPost, base+"/demographics/confirm", map[string]any{"gender": "female"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, decodeBody[errorBody](t, resp).Error)

	resp = env.do(t, http.MethodPost, base+"/demographics", map[string]any{"demographics": map[string]any{"gender": "male"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodPost, base+"/demographics/confirm", map[string]any{"gender": "male"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, base+"/brand-style/confirm", map[string]any{"colors": []string{"#abcdef"}, "mood": "bold"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	resp = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, string(pipeline.StageBrandStyleActive), decodeBody[viewJSON](t, resp).Stage)

	resp = env.do(t, http.MethodPost, base+"/branches/image_result.nope[0]/preview", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, base+"/previews/preview.nope/feed", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_MergeFeed(t *testing.T) {
	env := newTestEnv(t, creativeStub{}, "")

	content := []feed.ContentItem{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}, {Text: "e"}}
	resp := env.do(t, http.MethodPost, "/api/feed/merge", map[string]any{
		"content":  content,
		"creative": node.Creative{ImageRef: "ad.png"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[mergeResponse](t, resp)
	require.Len(t, got.Items, 6)
	assert.Equal(t, feed.SlotAd, got.Items[2].Kind)
	assert.Equal(t, feed.SlotAd, got.Items[5].Kind)
	assert.Len(t, got.Display, 12)

	resp = env.do(t, http.MethodPost, "/api/feed/merge", map[string]any{"content": content, "adInterval": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func imageOrigin(t *testing.T) *httptest.Server {
	t.Helper()
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pic.png", "/0.png", "/1.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("png-bytes"))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<script>alert(1)</script>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(origin.Close)
	return origin
}

func TestServer_ImageProxy(t *testing.T) {
	origin := imageOrigin(t)
	originHost := strings.TrimPrefix(origin.URL, "http://")
	env := newTestEnv(t, creativeStub{}, "", func(c *Config) { c.ImageHosts = []string{originHost} })

	resp := env.do(t, http.MethodGet, "/api/images?ref="+origin.URL+"/pic.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	data := base64.StdEncoding.EncodeToString([]byte("inline"))
	resp = env.do(t, http.MethodGet, "/api/images?ref=data:image/png;base64,"+data, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp = env.do(t, http.MethodGet, "/api/images?ref="+origin.URL+"/missing.png", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/images?ref="+origin.URL+"/page", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotEqual(t, "text/html", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, "/api/images?ref=ftp://x/y", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ImageProxyRejectsNonImageData(t *testing.T) {
	env := newTestEnv(t, creativeStub{}, "")

	for _, mediaType := range []string{"text/html", "image/svg+xml", "application/javascript"} {
		t.Run(mediaType, func(t *testing.T) {
			script := base64.StdEncoding.EncodeToString([]byte("<script>alert(document.domain)</script>"))
			resp := env.do(t, http.MethodGet, "/api/images?ref="+url.QueryEscape("data:"+mediaType+";base64,"+script), nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestServer_ImageProxyRemoteHosts(t *testing.T) {
	origin := imageOrigin(t)
	env := newTestEnv(t, creativeStub{base: origin.URL}, "")

	resp := env.do(t, http.MethodGet, "/api/images?ref="+origin.URL+"/pic.png", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/images?ref=http://169.254.169.254/latest/meta-data", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ctx := context.Background()
	sess, err := env.registry.Create(ctx)
	require.NoError(t, err)
	ctrl := sess.Controller()
	_, err = ctrl.Start(ctx, node.ProductInput{ProductURL: "https://shop.example/p/1"})
	require.NoError(t, err)
	_, err = ctrl.OnDemographicsReceived(ctx, node.Demographics{Gender: "female"})
	require.NoError(t, err)
	_, err = ctrl.OnDemographicsConfirmed(ctx, node.ConfirmedDemographics{Gender: "female"})
	require.NoError(t, err)
	_, err = ctrl.OnBrandStyleConfirmed(ctx, node.BrandStyle{Colors: []string{"#ff0000"}, Mood: "calm"})
	require.NoError(t, err)

	resp = env.do(t, http.MethodGet, "/api/images?ref="+origin.URL+"/0.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, "/api/images?ref="+origin.URL+"/pic.png", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_Legacy(t *testing.T) {
	env := newTestEnv(t, creativeStub{}, "")

	resp := env.do(t, http.MethodPost, "/generate-demographics", map[string]string{"product_url": "https://shop.example", "prompt": "x"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "female", decodeBody[node.Demographics](t, resp).Gender)

	resp = env.do(t, http.MethodPost, "/generate-ad-image", map[string]any{"product_url": "https://shop.example", "gender": "female"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img := decodeBody[legacyImageResponse](t, resp)
	assert.Equal(t, "https://img.example/one.png", img.ImageURL)
	assert.Equal(t, "female", img.Metadata["gender"])

	resp = env.do(t, http.MethodPost, "/analyze-brand-style", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.assistant.demoErr = &generative.StatusError{Code: http.StatusTooManyRequests, Body: "slow down"}
	resp = env.do(t, http.MethodPost, "/generate-demographics", map[string]string{"product_url": "https://shop.example"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestServer_StaticAndHealth(t *testing.T) {
	env := newTestEnv(t, creativeStub{}, t.TempDir())
	resp := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>canvas</html>"), 0o644))
	env = newTestEnv(t, creativeStub{}, dir)
	resp = env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody[map[string]any](t, resp)["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", pipeline.ErrInvalidPayload), http.StatusBadRequest},
		{fmt.Errorf("x: %w", pipeline.ErrStaleGeneration), http.StatusConflict},
		{fmt.Errorf("x: %w: %w", pipeline.ErrGenerationFailed, generative.ErrMissingAPIKey), http.StatusInternalServerError},
		{fmt.Errorf("x: %w", pipeline.ErrGenerationFailed), http.StatusBadGateway},
		{&generative.StatusError{Code: 500}, http.StatusBadGateway},
		{fmt.Errorf("x: %w", session.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", errForbiddenImage), http.StatusForbidden},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
