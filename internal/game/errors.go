package game

import "errors"

var (
	// ErrInsufficientPool is returned when the filtered catalog holds fewer
	// flags than the requested question count.
	ErrInsufficientPool = errors.New("not enough flags to create questions")
	// ErrInsufficientOptions is returned when fewer than six distinct
	// incorrect names remain for an option set.
	ErrInsufficientOptions = errors.New("not enough flags for options")
	// ErrNoTriesLeft gates casual match creation.
	ErrNoTriesLeft = errors.New("no tries left")
	// ErrMatchNotFound covers unknown match IDs and matches owned by someone else.
	ErrMatchNotFound = errors.New("match not found")
	// ErrAlreadyCompleted rejects operations on a terminal match.
	ErrAlreadyCompleted = errors.New("match already completed")
	// ErrNotCompleted rejects summary requests before finalization.
	ErrNotCompleted = errors.New("match not completed yet")
	// ErrEmptyAnswer rejects blank submissions.
	ErrEmptyAnswer = errors.New("empty answer")
	// ErrActiveMatchExists is observed by the loser of concurrent starts;
	// the caller should resume the existing match instead.
	ErrActiveMatchExists = errors.New("owner already has an active match")

	// ErrTournamentNotFound indicates an unknown tournament ID.
	ErrTournamentNotFound = errors.New("tournament not found")
	// ErrTournamentFinished rejects actions on a finished or overdue tournament.
	ErrTournamentFinished = errors.New("tournament has already finished")
	// ErrTournamentNotStarted rejects match starts before min participants joined.
	ErrTournamentNotStarted = errors.New("tournament has not started yet")
	// ErrNotParticipant rejects tournament actions from non-participants.
	ErrNotParticipant = errors.New("not registered in this tournament")
	// ErrAlreadyParticipating makes participation idempotent.
	ErrAlreadyParticipating = errors.New("already participating")

	// ErrPlayerNotFound indicates an unknown owner.
	ErrPlayerNotFound = errors.New("player not found")
)
