package player

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/flagquiz/flag-arena/internal/auth"
	"github.com/flagquiz/flag-arena/internal/game"
	httperrors "github.com/flagquiz/flag-arena/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for player profiles.
type HTTPHandlers struct {
	repo   *Repository
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for player endpoints.
func NewHTTPHandlers(repo *Repository, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		repo:   repo,
		logger: logger.With().Str("component", "player_http").Logger(),
	}
}

// ProfileResponse is the player's own profile.
type ProfileResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	TriesLeft         int       `json:"tries_left"`
	CasualScore       int       `json:"casual_score"`
	TodayCasualScore  int       `json:"today_casual_score"`
	CasualGamesPlayed int       `json:"casual_games_played"`
	CreatedAt         time.Time `json:"created_at"`
}

// Me handles GET /v1/players/me
func (h *HTTPHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	p, err := h.repo.Get(r.Context(), claims.OwnerID)
	if err != nil {
		if errors.Is(err, game.ErrPlayerNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodePlayerNotFound, "Player not found")
			return
		}
		h.logger.Error().Err(err).Int64("owner_id", claims.OwnerID).Msg("load player profile")
		httperrors.RespondInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ProfileResponse{
		ID:                p.ID,
		Name:              p.Name,
		TriesLeft:         p.TriesLeft,
		CasualScore:       p.CasualScore,
		TodayCasualScore:  p.TodayCasualScore,
		CasualGamesPlayed: p.CasualGamesPlayed,
		CreatedAt:         p.CreatedAt,
	})
}
