package handlers

import (
	"net/http"
	"strconv"

	"github.com/jacoblam121/tournament-arc/services"
)

type PlayerHandler struct {
	playerService *services.PlayerService
	ratingService *services.RatingService
}

func NewPlayerHandler(playerService *services.PlayerService, ratingService *services.RatingService) *PlayerHandler {
	return &PlayerHandler{
		playerService: playerService,
		ratingService: ratingService,
	}
}

func (h *PlayerHandler) RegisterPlayerHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ExternalID  string `json:"external_id"`
		DisplayName string `json:"display_name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	player, created, err := h.playerService.RegisterPlayer(r.Context(), input.ExternalID, input.DisplayName)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"player": player}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.playerService.GetProfile(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlayerHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	history, err := h.playerService.GetHistory(r.Context(), playerID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"history": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetClusterRatingHandler serves one player's rating within a cluster,
// cache-backed.
func (h *PlayerHandler) GetClusterRatingHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	clusterID, err := getIDFromURL(r, "clusterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rating, err := h.ratingService.ClusterRating(r.Context(), playerID, clusterID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"cluster_id": clusterID, "rating": rating}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
