package database

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"gatherly/pkg/interfaces"
)

var (
	ErrManagerClosed = errors.New("database manager is closed")
	ErrWriteTimeout  = errors.New("write operation timeout")
)

// mapConstraintError turns unique-constraint violations into the store's
// domain errors. Other errors pass through untouched.
func mapConstraintError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return err
	}

	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "users.email"):
		return interfaces.ErrEmailTaken
	case strings.Contains(msg, "users.username"):
		return interfaces.ErrUsernameTaken
	case strings.Contains(msg, "events.title"):
		return interfaces.ErrEventTitleTaken
	}
	return err
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
