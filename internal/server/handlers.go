package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rueda-la-rola/leadgen/internal/board"
	"github.com/rueda-la-rola/leadgen/internal/generator"
	"github.com/rueda-la-rola/leadgen/internal/model"
	"github.com/rueda-la-rola/leadgen/pkg/places"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig exposes the read-only settings the dashboard UI needs.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"mapsApiKey": s.mapsKey})
}

type searchResponse struct {
	Results       []board.PlaceView `json:"results"`
	NextPageToken *string           `json:"nextPageToken"`
	Counts        board.Counts      `json:"counts"`
}

// handleSearch runs a text search and folds the results into the board.
// A fresh search replaces the current result set; a pageToken follow-up
// appends to it.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := q.Get("category")
	if category == "" {
		respondError(w, http.StatusBadRequest, "category is required")
		return
	}

	city := q.Get("city")
	latStr, lngStr := q.Get("lat"), q.Get("lng")

	var bias *model.LatLng
	if latStr != "" || lngStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid lat")
			return
		}
		lng, err := strconv.ParseFloat(lngStr, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid lng")
			return
		}
		bias = &model.LatLng{Latitude: lat, Longitude: lng}
	}
	if city == "" && bias == nil {
		respondError(w, http.StatusBadRequest, "city or lat/lng is required")
		return
	}

	// Coordinates take precedence: once a bias point is given the city
	// would only fight the circle, so it is dropped from the query text.
	query := category
	if city != "" && bias == nil {
		query = category + " in " + city
	}

	pageToken := q.Get("pageToken")
	resp, err := s.places.SearchText(r.Context(), places.SearchRequest{
		Query:        query,
		PageToken:    pageToken,
		LocationBias: bias,
	})
	if err != nil {
		zap.L().Error("places search failed",
			zap.String("query", query),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if pageToken == "" {
		s.board.SetPlaces(resp.Places)
	} else {
		s.board.AppendPlaces(resp.Places)
	}

	var next *string
	if resp.NextPageToken != "" {
		next = &resp.NextPageToken
	}
	respondJSON(w, http.StatusOK, searchResponse{
		Results:       s.board.Visible(board.FilterAll),
		NextPageToken: next,
		Counts:        s.board.Counts(),
	})
}

type generateRequest struct {
	PlaceID      string  `json:"placeId"`
	PlaceName    string  `json:"placeName"`
	PlaceAddress string  `json:"placeAddress"`
	Type         string  `json:"type"`
	Website      *string `json:"website"`
}

// handleGenerate produces one marketing asset. The per-place in-flight
// guard turns a duplicate click into a 409 instead of a second model
// call.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PlaceName == "" {
		respondError(w, http.StatusBadRequest, "placeName is required")
		return
	}
	assetType, err := model.ParseAssetType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, "type must be demo or proposal")
		return
	}

	placeID := req.PlaceID
	if placeID == "" {
		placeID = generator.SurrogatePlaceID(req.PlaceName)
	}

	if !s.board.BeginGenerating(placeID) {
		respondError(w, http.StatusConflict, "generation already in progress for this place")
		return
	}
	defer s.board.EndGenerating(placeID)

	asset, err := s.gen.Generate(r.Context(), generator.Request{
		PlaceID:      placeID,
		PlaceName:    req.PlaceName,
		PlaceAddress: req.PlaceAddress,
		Type:         assetType,
		Website:      req.Website,
	})
	if err != nil {
		if eris.Is(err, generator.ErrInvalidRequest) {
			respondError(w, http.StatusBadRequest, "invalid generation request")
			return
		}
		zap.L().Error("asset generation failed",
			zap.String("place_id", placeID),
			zap.String("type", string(assetType)),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	s.board.RecordAsset(model.AssetRef{
		ID:        asset.ID,
		PlaceID:   asset.PlaceID,
		PlaceName: asset.PlaceName,
		Type:      asset.Type,
	})

	if err := s.board.AutoContact(r.Context(), model.Place{
		PlaceID: placeID,
		Name:    req.PlaceName,
		Address: req.PlaceAddress,
		Website: req.Website,
	}); err != nil {
		zap.L().Warn("auto-contact after generation failed",
			zap.String("place_id", placeID),
			zap.Error(err),
		)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"id":     asset.ID,
		"status": "success",
	})
}

const assetNotFoundPage = `<!DOCTYPE html>
<html>
<head><title>Not Found</title></head>
<body>
<h1>Asset not found</h1>
<p>The requested asset does not exist or has been removed.</p>
</body>
</html>`

// handleAsset serves the stored HTML verbatim so the dashboard can open
// it in a new tab.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := s.store.GetAsset(r.Context(), id)
	if err != nil {
		zap.L().Error("asset lookup failed", zap.String("id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "asset lookup failed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if asset == nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(assetNotFoundPage))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(asset.Content))
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.board.Leads())
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleLeadStatus(w http.ResponseWriter, r *http.Request) {
	placeID := chi.URLParam(r, "placeID")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := model.ParseLeadStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown status")
		return
	}

	lead, err := s.board.SetStatus(r.Context(), placeID, status)
	if err != nil {
		if eris.Is(err, model.ErrIllegalTransition) {
			respondError(w, http.StatusConflict, "illegal status transition")
			return
		}
		zap.L().Error("lead status update failed",
			zap.String("place_id", placeID),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "status update failed")
		return
	}

	respondJSON(w, http.StatusOK, lead)
}

type boardResponse struct {
	Results  []board.PlaceView                 `json:"results"`
	Counts   board.Counts                      `json:"counts"`
	Pipeline map[model.LeadStatus][]model.Lead `json:"pipeline"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	mode, err := board.ParseFilterMode(r.URL.Query().Get("filter"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "filter must be all, no-web or with-web")
		return
	}

	respondJSON(w, http.StatusOK, boardResponse{
		Results:  s.board.Visible(mode),
		Counts:   s.board.Counts(),
		Pipeline: s.board.Pipeline(),
	})
}
