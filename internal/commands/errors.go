package commands

import (
	"errors"

	"github.com/balkashynov/pomo/internal/config"
	"github.com/balkashynov/pomo/internal/db"
	"github.com/balkashynov/pomo/internal/engine"
)

// userMessage turns an error into the one line the user sees, with a hint
// about what to do next where there is one.
func userMessage(err error) string {
	var parseErr *config.ParseError
	switch {
	case errors.Is(err, engine.ErrAlreadyActive):
		return "A session is already active. Finish it in the window that started it"
	case errors.Is(err, engine.ErrNoActiveSession):
		return "No active session"
	case errors.Is(err, engine.ErrInvalidMinutes):
		return "Minutes must be a positive number"
	case errors.Is(err, db.ErrStoreLocked):
		return "The database is locked, usually by a sync client (OneDrive, Dropbox). Try again in a moment"
	case errors.As(err, &parseErr):
		return parseErr.Error() + ". Fix or remove the file and try again"
	default:
		return "Error: " + err.Error()
	}
}
