package handlers

import (
	"net/http"

	"github.com/jacoblam121/tournament-arc/models"
	"github.com/jacoblam121/tournament-arc/services"
)

// AdminHandler exposes the destructive and corrective operations kept
// behind the admin token: direct completion, proposal termination,
// undo, deletion and the rating resets.
type AdminHandler struct {
	matchService        *services.MatchService
	confirmationService *services.ConfirmationService
	undoService         *services.UndoService
	ratingService       *services.RatingService
	leaderboardService  *services.LeaderboardService
}

func NewAdminHandler(
	matchService *services.MatchService,
	confirmationService *services.ConfirmationService,
	undoService *services.UndoService,
	ratingService *services.RatingService,
	leaderboardService *services.LeaderboardService,
) *AdminHandler {
	return &AdminHandler{
		matchService:        matchService,
		confirmationService: confirmationService,
		undoService:         undoService,
		ratingService:       ratingService,
		leaderboardService:  leaderboardService,
	}
}

func (h *AdminHandler) CompleteMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Placements map[int]int `json:"placements"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.CompleteMatchWithResults(r.Context(), matchID, input.Placements); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.MatchStatusCompleted}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) TerminateProposalHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.confirmationService.TerminateProposal(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.MatchStatusPending}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) PreviewUndoHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	preview, err := h.undoService.PreviewUndo(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"preview": preview}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) UndoMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		AdminID int    `json:"admin_id"`
		Reason  string `json:"reason"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Reason == "" {
		badRequestResponse(w, r, errEmptyReason)
		return
	}

	if err := h.undoService.UndoMatch(r.Context(), matchID, input.AdminID, input.Reason); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"undone": matchID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) DeleteMatchHandler(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ClearMatchesHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Statuses []models.MatchStatus `json:"statuses"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if len(input.Statuses) == 0 {
		input.Statuses = []models.MatchStatus{models.MatchStatusPending, models.MatchStatusActive}
	}

	deleted, err := h.matchService.ClearMatches(r.Context(), input.Statuses)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"deleted": deleted}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResetPlayerEloHandler(w http.ResponseWriter, r *http.Request) {
	playerID, err := getIDFromURL(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var input struct {
		EventID *int `json:"event_id,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	if err := h.ratingService.ResetPlayerElo(r.Context(), playerID, input.EventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"reset": playerID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResetAllEloHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.ratingService.ResetAllElo(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"reset": "all"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResetLeaderboardEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.leaderboardService.ResetEvent(r.Context(), eventID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"reset": eventID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) ResetAllLeaderboardsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.leaderboardService.ResetAllEvents(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"reset": "all"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
