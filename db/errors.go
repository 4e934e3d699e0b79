package db

import (
	"strings"

	"github.com/teranos/tpu/errors"
)

// ErrDatabaseClosed is returned when the ledger is written after Close,
// typically a late result arriving during shutdown.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err is ErrDatabaseClosed or a raw
// database/sql error for a closed handle. The driver's own errors cannot be
// wrapped at the source, so the message is matched as a fallback.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
