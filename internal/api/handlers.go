package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/export"
	"github.com/wdallo/libraryApp-sub000/internal/models"
)

func (s *HTTPServer) handleReserve(w http.ResponseWriter, r *http.Request) {
	userID, userName, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		BookID int64 `json:"book_id"`
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil || body.BookID <= 0 {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	if s.cache != nil && s.policy.RateLimitRequests > 0 {
		window := time.Duration(s.policy.RateLimitWindow) * time.Second
		allowed, rlErr := s.cache.CheckRateLimit(r.Context(), userID, s.policy.RateLimitRequests, window)
		if rlErr != nil {
			s.logger.Warn().Err(rlErr).Int64("user_id", userID).Msg("rate limit check failed")
		} else if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many reservation attempts, try again later")
			return
		}
	}

	if _, err := s.users.EnsureUser(r.Context(), userID, userName); err != nil {
		s.respondError(w, err)
		return
	}

	reservation, err := s.reservations.Reserve(r.Context(), body.BookID, userID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) handleListMine(w http.ResponseWriter, r *http.Request) {
	userID, _, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, pageSize := pagination(r)
	result, err := s.reservations.ListForUser(r.Context(), userID, page, pageSize)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleExtend(w http.ResponseWriter, r *http.Request) {
	s.ownerTransition(w, r, s.reservations.Extend)
}

func (s *HTTPServer) handleReturn(w http.ResponseWriter, r *http.Request) {
	// ?direct=1 keeps the old one-step return contract alive.
	if r.URL.Query().Get("direct") == "1" {
		s.ownerTransition(w, r, s.reservations.ReturnDirect)
		return
	}
	s.ownerTransition(w, r, s.reservations.RequestReturn)
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.ownerTransition(w, r, s.reservations.Cancel)
}

type transitionFunc func(ctx context.Context, id, actorID int64) (*models.Reservation, error)

func (s *HTTPServer) ownerTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	userID, _, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reservation, err := fn(r.Context(), id, userID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.books.ListBooks(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	av, err := s.books.GetAvailability(r.Context(), id)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, av)
}

func (s *HTTPServer) handleListAll(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status := r.URL.Query().Get("status")

	result, err := s.reservations.ListAll(r.Context(), status, page, pageSize)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, s.reservations.Approve)
}

func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, s.reservations.Reject)
}

func (s *HTTPServer) handleApproveReturn(w http.ResponseWriter, r *http.Request) {
	s.adminTransition(w, r, s.reservations.ApproveReturn)
}

func (s *HTTPServer) adminTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Admin identity is optional; the audit trail falls back to "Admin".
	adminID, adminName, idErr := callerIdentity(r)
	if idErr == nil {
		if _, err := s.users.EnsureUser(r.Context(), adminID, adminName); err != nil {
			s.respondError(w, err)
			return
		}
	}

	reservation, err := fn(r.Context(), id, adminID)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservation)
}

func (s *HTTPServer) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := s.policy.ActivityFeedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	activities, err := s.repo.ListActivities(r.Context(), limit)
	if err != nil {
		s.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities})
}

const exportLimit = 10000

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	reservations, _, err := s.repo.ListReservations(r.Context(), status, exportLimit, 0)
	if err != nil {
		s.respondError(w, err)
		return
	}

	filename := fmt.Sprintf("reservations_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.WriteReservations(w, reservations, time.Now().UTC()); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

func (s *HTTPServer) respondError(w http.ResponseWriter, err error) {
	status, message := statusForError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	writeError(w, status, message)
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func pagination(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = models.DefaultPageSize
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			pageSize = parsed
		}
	}
	return page, pageSize
}
