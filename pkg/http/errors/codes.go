package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeEmptyAnswer      = "empty_answer"

	// Match errors
	ErrCodeMatchNotFound    = "match_not_found"
	ErrCodeNoActiveMatch    = "no_active_match"
	ErrCodeActiveMatch      = "active_match_exists"
	ErrCodeAlreadyCompleted = "match_already_completed"
	ErrCodeNotCompleted     = "match_not_completed"
	ErrCodeNoTriesLeft      = "no_tries_left"
	ErrCodeMatchLocked      = "match_locked"

	// Generation errors
	ErrCodeInsufficientPool    = "insufficient_pool"
	ErrCodeInsufficientOptions = "insufficient_options"

	// Player errors
	ErrCodePlayerNotFound = "player_not_found"

	// Tournament errors
	ErrCodeTournamentNotFound    = "tournament_not_found"
	ErrCodeTournamentFinished    = "tournament_finished"
	ErrCodeTournamentNotStarted  = "tournament_not_started"
	ErrCodeNotParticipant        = "not_participant"
	ErrCodeAlreadyParticipating  = "already_participating"

	// Server errors
	ErrCodeInternalError = "internal_error"
)
