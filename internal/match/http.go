package match

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/auth"
	"github.com/flagquiz/flag-arena/internal/game"
	httperrors "github.com/flagquiz/flag-arena/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for match operations.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for match endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "match_http").Logger(),
	}
}

// StartRequest is the payload for POST /v1/matches/start.
type StartRequest struct {
	NumQuestions int      `json:"num_questions"`
	Category     string   `json:"category"`
	GameMode     string   `json:"gamemode"`
	Tags         []string `json:"tags"`
}

// AnswerRequest is the payload for POST /v1/matches/{id}/answer.
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// Start handles POST /v1/matches/start
func (h *HTTPHandlers) Start(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if err := validateStartRequest(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeValidationFailed, err.Error())
		return
	}

	result, err := h.service.Start(r.Context(), StartConfig{
		OwnerID:      claims.OwnerID,
		OwnerName:    claims.Name,
		Type:         game.TypeCasual,
		NumQuestions: req.NumQuestions,
		Category:     req.Category,
		GameMode:     req.GameMode,
		Tags:         req.Tags,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Active handles GET /v1/matches/active
func (h *HTTPHandlers) Active(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	result, err := h.service.Active(r.Context(), claims.OwnerID)
	if err != nil {
		if errors.Is(err, game.ErrMatchNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNoActiveMatch, "No active match")
			return
		}
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Answer handles POST /v1/matches/{id}/answer
func (h *HTTPHandlers) Answer(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid match id")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	result, err := h.service.Submit(r.Context(), matchID, claims.OwnerID, req.Answer)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Submit handles POST /v1/matches/{id}/submit
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid match id")
		return
	}

	result, err := h.service.ForceSubmit(r.Context(), matchID, claims.OwnerID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Summary handles GET /v1/matches/{id}/summary
func (h *HTTPHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid match id")
		return
	}

	result, err := h.service.Summary(r.Context(), matchID, claims.OwnerID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func validateStartRequest(req *StartRequest) error {
	switch req.NumQuestions {
	case 10, 15, 20:
	default:
		return errors.New("num_questions must be 10, 15, or 20")
	}
	if req.GameMode != game.ModeChoose && req.GameMode != game.ModeEnter {
		return errors.New("gamemode must be choose or enter")
	}
	if req.Category == "" {
		req.Category = game.CategoryFrenzy
	}
	return nil
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrMatchNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeMatchNotFound, "Match not found")
	case errors.Is(err, game.ErrActiveMatchExists):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeActiveMatch, "An active match already exists")
	case errors.Is(err, game.ErrAlreadyCompleted):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeAlreadyCompleted, "Match is already completed")
	case errors.Is(err, game.ErrNotCompleted):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeNotCompleted, "Match is not completed yet")
	case errors.Is(err, game.ErrNoTriesLeft):
		httperrors.RespondError(w, http.StatusForbidden, httperrors.ErrCodeNoTriesLeft, "No tries left today")
	case errors.Is(err, game.ErrEmptyAnswer):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeEmptyAnswer, "Answer must not be empty")
	case errors.Is(err, game.ErrInsufficientPool):
		httperrors.RespondErrorWithDetails(w, http.StatusUnprocessableEntity, httperrors.ErrCodeInsufficientPool,
			"Not enough flags match the requested filters",
			map[string]interface{}{"min_pool": game.OptionsPerQuestion})
	case errors.Is(err, game.ErrInsufficientOptions):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeInsufficientOptions, "Not enough flags to build answer options")
	case errors.Is(err, ErrLockHeld):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeMatchLocked, "Another request is modifying this match")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("match request failed")
		httperrors.RespondInternalError(w, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
