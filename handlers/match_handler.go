package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/services"
)

type MatchHandler struct {
	matchService        *services.MatchService
	confirmationService *services.ConfirmationService
}

func NewMatchHandler(matchService *services.MatchService, confirmationService *services.ConfirmationService) *MatchHandler {
	return &MatchHandler{
		matchService:        matchService,
		confirmationService: confirmationService,
	}
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		idStr = chi.URLParam(r, "id")
		if idStr == "" {
			return 0, fmt.Errorf("missing %s or id in URL path", paramName)
		}
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	return id, nil
}

func (h *MatchHandler) CreateMatchHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		EventID   int                `json:"event_id"`
		Format    models.MatchFormat `json:"format"`
		PlayerIDs []int              `json:"player_ids"`
		Teams     map[string][]int   `json:"teams,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var match *models.Match
	var err error
	if input.Format == models.FormatTeam {
		match, err = h.matchService.CreateTeamMatch(r.Context(), input.EventID, input.Teams)
	} else {
		match, err = h.matchService.CreateMatch(r.Context(), input.EventID, input.Format, input.PlayerIDs)
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) BridgeChallengeHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ChallengeID  int64 `json:"challenge_id"`
		EventID      int   `json:"event_id"`
		ChallengerID int   `json:"challenger_id"`
		OpponentID   int   `json:"opponent_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, created, err := h.matchService.CreateMatchFromChallenge(r.Context(), services.ChallengeRef{
		ChallengeID:  input.ChallengeID,
		EventID:      input.EventID,
		ChallengerID: input.ChallengerID,
		OpponentID:   input.OpponentID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"match": match, "created": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, participants, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match, "participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ActivateMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.ActivateMatch(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.MatchStatusActive}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) CancelMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	if err := h.matchService.CancelMatch(r.Context(), matchID, input.Note); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.MatchStatusCancelled}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ProposeResultsHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		ProposerID int         `json:"proposer_id"`
		Placements map[int]int `json:"placements"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	proposal, err := h.confirmationService.ProposeResults(r.Context(), matchID, input.ProposerID, input.Placements)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"proposal": proposal}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) RecordConfirmationHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		PlayerID int                       `json:"player_id"`
		Status   models.ConfirmationStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.confirmationService.RecordConfirmation(r.Context(), matchID, input.PlayerID, input.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"recorded": input.Status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
