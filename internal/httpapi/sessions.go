package httpapi

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/graph"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/nodeid"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
	"github.com/specialistvlad/adcanvas/internal/session"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// sessionView is what every session endpoint answers with.
type sessionView struct {
	ID       string          `json:"id"`
	Stage    pipeline.Stage  `json:"stage"`
	Revision uint64          `json:"revision"`
	Nodes    []*node.Node    `json:"nodes"`
	Edges    []node.Edge     `json:"edges"`
	Inputs   pipeline.Inputs `json:"inputs"`
	Branches []branchView    `json:"branches"`
}

// branchView summarizes one fan-out branch for hosts that do not want to
// walk the edges themselves.
type branchView struct {
	ID        string         `json:"id"`
	Kind      node.Kind      `json:"kind"`
	Status    node.Status    `json:"status"`
	Creative  *node.Creative `json:"creative,omitempty"`
	PreviewID string         `json:"previewId,omitempty"`
	// Linked reports whether the edge from the brand style is active.
	Linked bool `json:"linked"`
}

func branchesOf(snap topologystore.Snapshot) []branchView {
	view := graph.New(snap)
	out := []branchView{}
	for _, kind := range []node.Kind{node.KindImageResult, node.KindGenerate} {
		for _, siblings := range view.Generation(kind) {
			for _, b := range siblings {
				bv := branchView{ID: b.ID, Kind: b.Kind, Status: b.Status}
				if c, ok := node.CreativeOf(b.Payload); ok {
					bv.Creative = &c
				}
				if p, ok := view.ChildOfKind(b.ID, node.KindPreview); ok {
					bv.PreviewID = p.ID
				}
				if e, ok := view.IncomingEdge(nodeid.BrandStyle, b.ID); ok {
					bv.Linked = e.Active
				}
				out = append(out, bv)
			}
		}
	}
	slices.SortFunc(out, func(a, b branchView) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func viewOf(ctx context.Context, s session.Session) sessionView {
	ctrl := s.Controller()
	snap := ctrl.Snapshot(ctx)
	v := sessionView{
		ID:       s.ID(),
		Stage:    ctrl.Stage(ctx),
		Revision: snap.Revision,
		Nodes:    snap.Nodes,
		Edges:    snap.Edges,
		Inputs:   ctrl.Inputs(ctx),
		Branches: branchesOf(snap),
	}
	if v.Nodes == nil {
		v.Nodes = []*node.Node{}
	}
	if v.Edges == nil {
		v.Edges = []node.Edge{}
	}
	return v
}

// lookup resolves the session named in the path and tags the request
// logger with it.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (session.Session, context.Context, bool) {
	id := chi.URLParam(r, "sessionID")
	ctx := ctxlog.With(r.Context(), "session", id)
	sess, err := s.cfg.Registry.Get(id)
	if err != nil {
		writeError(ctx, w, err)
		return nil, ctx, false
	}
	return sess, ctx, true
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in node.ProductInput
	if err := decode(w, r, &in, false); err != nil {
		writeError(ctx, w, err)
		return
	}

	sess, err := s.cfg.Registry.Create(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	ctx = ctxlog.With(ctx, "session", sess.ID())
	if _, err := sess.Controller().Start(ctx, in); err != nil {
		_ = s.cfg.Registry.Delete(ctx, sess.ID())
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(ctx, sess))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ctx, sess))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	ctx := ctxlog.With(r.Context(), "session", id)
	if err := s.cfg.Registry.Delete(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type demographicsRequest struct {
	// Prompt overrides the intent prompt given at session start.
	Prompt string `json:"prompt"`
	// Demographics skips the inference call when the host already has a
	// result.
	Demographics *node.Demographics `json:"demographics"`
}

func (s *Server) requestDemographics(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req demographicsRequest
	if err := decode(w, r, &req, true); err != nil {
		writeError(ctx, w, err)
		return
	}

	demo := req.Demographics
	if demo == nil {
		product := sess.Controller().Inputs(ctx).Product
		if product == nil {
			writeError(ctx, w, fmt.Errorf("%w: session has no product input", pipeline.ErrStageNotReady))
			return
		}
		if s.cfg.Assistant == nil {
			writeError(ctx, w, fmt.Errorf("%w: no demographics service configured", pipeline.ErrGenerationFailed))
			return
		}
		prompt := req.Prompt
		if prompt == "" {
			prompt = product.IntentPrompt
		}
		d, err := s.cfg.Assistant.Demographics(ctx, product.ProductURL, prompt)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		demo = &d
	}

	if _, err := sess.Controller().OnDemographicsReceived(ctx, *demo); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ctx, sess))
}

func (s *Server) confirmDemographics(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var in node.ConfirmedDemographics
	if err := decode(w, r, &in, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if _, err := sess.Controller().OnDemographicsConfirmed(ctx, in); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ctx, sess))
}

// suggestBrandStyle asks the brand style service for a suggestion. The
// canvas is not touched until the user confirms it.
func (s *Server) suggestBrandStyle(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	product := sess.Controller().Inputs(ctx).Product
	if product == nil {
		writeError(ctx, w, fmt.Errorf("%w: session has no product input", pipeline.ErrStageNotReady))
		return
	}
	if s.cfg.Assistant == nil {
		writeError(ctx, w, fmt.Errorf("%w: no brand style service configured", pipeline.ErrGenerationFailed))
		return
	}
	style, err := s.cfg.Assistant.BrandStyle(ctx, product.ProductURL)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, style)
}

func (s *Server) confirmBrandStyle(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var in node.BrandStyle
	if err := decode(w, r, &in, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if _, err := sess.Controller().OnBrandStyleConfirmed(ctx, in); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ctx, sess))
}

func (s *Server) requestPreview(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, err := sess.Controller().OnBranchPreviewRequested(ctx, chi.URLParam(r, "nodeID")); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ctx, sess))
}

func (s *Server) completeWorkflow(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, err := sess.Controller().OnWorkflowCompleted(ctx); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ctx, sess))
}

func (s *Server) previewFeed(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	f, err := sess.PreviewFeed(ctx, chi.URLParam(r, "nodeID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type surfaceRequest struct {
	SingleCopyHeight float64 `json:"singleCopyHeight"`
}

func (s *Server) reportSurface(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req surfaceRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.SingleCopyHeight < 0 || math.IsNaN(req.SingleCopyHeight) {
		writeError(ctx, w, fmt.Errorf("%w: singleCopyHeight must not be negative", errBadRequest))
		return
	}
	if err := sess.ReportSurface(chi.URLParam(r, "nodeID"), req.SingleCopyHeight); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
