package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/specialistvlad/adcanvas/internal/generative"
)

// The handlers below answer the request shapes of the standalone service.
// Upstream HTTP failures keep the upstream status.

type legacyDemographicsRequest struct {
	ProductURL string `json:"product_url"`
	Prompt     string `json:"prompt"`
}

type legacyBrandStyleRequest struct {
	ProductURL string `json:"product_url"`
}

type legacyImageRequest struct {
	ProductURL         string   `json:"product_url"`
	Gender             string   `json:"gender"`
	AgeRange           string   `json:"age_range"`
	Language           string   `json:"language"`
	Location           string   `json:"location"`
	Colors             []string `json:"colors"`
	Mood               string   `json:"mood"`
	ProductDescription string   `json:"product_description"`
}

type legacyImageResponse struct {
	ImageURL   string         `json:"image_url"`
	PromptUsed string         `json:"prompt_used,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func (s *Server) legacyDemographics(w http.ResponseWriter, r *http.Request) {
	var req legacyDemographicsRequest
	if !s.legacyDecode(w, r, &req, func() string { return req.ProductURL }) {
		return
	}
	d, err := s.cfg.Assistant.Demographics(r.Context(), req.ProductURL, req.Prompt)
	if err != nil {
		s.legacyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) legacyBrandStyle(w http.ResponseWriter, r *http.Request) {
	var req legacyBrandStyleRequest
	if !s.legacyDecode(w, r, &req, func() string { return req.ProductURL }) {
		return
	}
	style, err := s.cfg.Assistant.BrandStyle(r.Context(), req.ProductURL)
	if err != nil {
		s.legacyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, style)
}

func (s *Server) legacyImage(w http.ResponseWriter, r *http.Request) {
	var req legacyImageRequest
	if !s.legacyDecode(w, r, &req, func() string { return req.ProductURL }) {
		return
	}
	img, err := s.cfg.Assistant.GenerateImage(r.Context(), generative.ImagePrompt{
		ProductURL:         req.ProductURL,
		ProductDescription: req.ProductDescription,
		Colors:             req.Colors,
		Mood:               req.Mood,
	})
	if err != nil {
		s.legacyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, legacyImageResponse{
		ImageURL:   img.ImageRef,
		PromptUsed: img.Prompt,
		Metadata: map[string]any{
			"gender":    req.Gender,
			"age_range": req.AgeRange,
			"language":  req.Language,
			"location":  req.Location,
		},
	})
}

// legacyDecode reads the body and checks that a product url was given.
func (s *Server) legacyDecode(w http.ResponseWriter, r *http.Request, v any, productURL func() string) bool {
	if err := decode(w, r, v, false); err != nil {
		writeError(r.Context(), w, err)
		return false
	}
	if productURL() == "" {
		writeError(r.Context(), w, fmt.Errorf("%w: product_url is required", errBadRequest))
		return false
	}
	if s.cfg.Assistant == nil {
		writeError(r.Context(), w, generative.ErrMissingAPIKey)
		return false
	}
	return true
}

func (s *Server) legacyError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *generative.StatusError
	if errors.As(err, &statusErr) {
		writeJSON(w, statusErr.Code, errorBody{Error: err.Error()})
		return
	}
	writeError(r.Context(), w, err)
}
