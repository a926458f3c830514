package api

import (
	"errors"
	"net/http"

	"github.com/wdallo/libraryApp-sub000/internal/domain"
)

// statusForError maps engine error kinds to stable HTTP status codes. Known
// guard failures keep their specific message so callers can tell "already
// reserved" from "no copies available"; anything else becomes an opaque 500.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrNoCopiesAvailable),
		errors.Is(err, domain.ErrAlreadyReserved):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrNotOwner):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInventoryOverflow):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrExtensionLimit):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrConcurrentModification):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
