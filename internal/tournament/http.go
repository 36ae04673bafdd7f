package tournament

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/auth"
	"github.com/flagquiz/flag-arena/internal/game"
	httperrors "github.com/flagquiz/flag-arena/pkg/http/errors"
	"github.com/flagquiz/flag-arena/pkg/http/ws"
)

// HTTPHandlers provides REST and WebSocket endpoints for tournaments.
type HTTPHandlers struct {
	service  *Service
	hub      *ws.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for tournament endpoints.
func NewHTTPHandlers(service *Service, hub *ws.Hub, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("component", "tournament_http").Logger(),
	}
}

// Today handles GET /v1/tournaments/today
func (h *HTTPHandlers) Today(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Today(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Participate handles POST /v1/tournaments/{id}/participate
func (h *HTTPHandlers) Participate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	tournamentID, err := pathID(r)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid tournament id")
		return
	}

	p, err := h.service.Participate(r.Context(), tournamentID, claims.OwnerID, claims.Name)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, participantView(p))
}

// StartMatch handles POST /v1/tournaments/{id}/start
func (h *HTTPHandlers) StartMatch(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	tournamentID, err := pathID(r)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid tournament id")
		return
	}

	result, err := h.service.StartMatch(r.Context(), tournamentID, claims.OwnerID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Standings handles GET /v1/tournaments/{id}/standings
func (h *HTTPHandlers) Standings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathID(r)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid tournament id")
		return
	}

	entries, err := h.service.Standings(r.Context(), tournamentID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ws.StandingsUpdatePayload{
		TournamentID: tournamentID,
		Standings:    entries,
	})
}

// StandingsFeed handles GET /ws/tournaments/{id}/standings. It upgrades the
// connection, sends a snapshot, and streams updates until the client leaves.
func (h *HTTPHandlers) StandingsFeed(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := pathID(r)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid tournament id")
		return
	}
	entries, err := h.service.Standings(r.Context(), tournamentID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.New()
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.Register(connID, wsConn)
	h.hub.Subscribe(tournamentID, connID)

	snapshot, err := json.Marshal(ws.StandingsUpdatePayload{
		TournamentID: tournamentID,
		Standings:    entries,
	})
	if err == nil {
		_ = h.hub.Send(connID, ws.Message{Type: ws.TypeStandingsSnapshot, Payload: snapshot})
	}

	go wsConn.WritePump()
	go func() {
		defer h.hub.Unregister(connID)
		wsConn.ReadPump(func(msg ws.Message) error {
			if msg.Type == ws.TypePing {
				return wsConn.Send(ws.Message{Type: ws.TypePong})
			}
			payload, _ := json.Marshal(ws.ErrorPayload{
				Code:    "unsupported_message",
				Message: "Only ping is accepted on this feed",
			})
			return wsConn.Send(ws.Message{Type: ws.TypeError, Payload: payload})
		})
	}()
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *HTTPHandlers) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, game.ErrTournamentNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeTournamentNotFound, "Tournament not found")
	case errors.Is(err, game.ErrTournamentFinished):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeTournamentFinished, "Tournament has already finished")
	case errors.Is(err, game.ErrTournamentNotStarted):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeTournamentNotStarted, "Tournament has not started yet")
	case errors.Is(err, game.ErrNotParticipant):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNotParticipant, "Not registered in this tournament")
	case errors.Is(err, game.ErrAlreadyParticipating):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeAlreadyParticipating, "Already participating")
	case errors.Is(err, game.ErrNoTriesLeft):
		httperrors.RespondForbidden(w, httperrors.ErrCodeNoTriesLeft, "No tournament tries left")
	case errors.Is(err, game.ErrActiveMatchExists):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeActiveMatch, "An active match already exists")
	case errors.Is(err, game.ErrInsufficientPool):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeInsufficientPool, "Not enough flags match the tournament filters")
	case errors.Is(err, game.ErrInsufficientOptions):
		httperrors.RespondError(w, http.StatusUnprocessableEntity, httperrors.ErrCodeInsufficientOptions, "Not enough flags to build answer options")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("tournament request failed")
		httperrors.RespondInternalError(w, "Internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
