package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/config"
	"github.com/wdallo/libraryApp-sub000/internal/database"
	"github.com/wdallo/libraryApp-sub000/internal/events"
	"github.com/wdallo/libraryApp-sub000/internal/models"
	"github.com/wdallo/libraryApp-sub000/internal/repository"
	"github.com/wdallo/libraryApp-sub000/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db     *database.DB
	server *httptest.Server
}

func newTestEnv(t *testing.T, policy config.ReservationsConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cache := repository.NewMemoryAvailabilityCache(time.Minute)
	bus := events.NewEventBus()

	reservations := service.NewReservationService(db, bus, cache, policy, &logger)
	books := service.NewBookService(db, cache, &logger)
	users := service.NewUserService(db, &logger)

	srv := NewHTTPServer(config.APIConfig{Port: 0}, policy, reservations, books, users, db, cache, &logger)
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{db: db, server: ts}
}

func defaultTestPolicy() config.ReservationsConfig {
	return config.ReservationsConfig{
		LoanDays:          14,
		ExtensionDays:     7,
		MaxExtensions:     2,
		ActivityFeedLimit: 100,
		RateLimitRequests: 100,
		RateLimitWindow:   60,
	}
}

func (e *testEnv) seedBook(t *testing.T, id int64, title string, copies int64) {
	t.Helper()
	require.NoError(t, e.db.UpsertBook(context.Background(), &models.Book{
		ID: id, Title: title, Author: "Author", TotalQuantity: copies,
	}))
}

func (e *testEnv) do(t *testing.T, method, path string, userID int64, body any) *http.Response {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, payload)
	require.NoError(t, err)
	if userID > 0 {
		req.Header.Set("X-User-ID", strconv.FormatInt(userID, 10))
		req.Header.Set("X-User-Name", fmt.Sprintf("User %d", userID))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeReservation(t *testing.T, resp *http.Response) models.Reservation {
	t.Helper()
	var r models.Reservation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	return r
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())

	resp := env.do(t, http.MethodGet, "/healthz", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReserveEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	resp := env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	r := decodeReservation(t, resp)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, "Test Book", r.BookTitle)
	assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, 14), r.DueDate, 5*time.Second)
}

func TestReserveEndpoint_Validation(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	// Missing identity header.
	resp := env.do(t, http.MethodPost, "/api/v1/reservations", 0, map[string]int64{"book_id": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing book_id.
	resp = env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown book.
	resp = env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 99})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReserveEndpoint_Conflicts(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	resp := env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Same user again: duplicate open reservation.
	resp = env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Different user: no copies left.
	resp = env.do(t, http.MethodPost, "/api/v1/reservations", 11, map[string]int64{"book_id": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReserveEndpoint_PerUserRateLimit(t *testing.T) {
	policy := defaultTestPolicy()
	policy.RateLimitRequests = 2
	env := newTestEnv(t, policy)
	for i := int64(1); i <= 5; i++ {
		env.seedBook(t, i, "Book", 1)
	}

	for i := int64(1); i <= 2; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": i})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 3})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestApprovalFlow(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))

	path := fmt.Sprintf("/api/v1/admin/reservations/%d/approve", created.ID)
	resp := env.do(t, http.MethodPost, path, 99, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decodeReservation(t, resp)
	assert.Equal(t, models.StatusActive, approved.Status)

	// Approving twice is a state conflict.
	resp = env.do(t, http.MethodPost, path, 99, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRejectEndpoint_RestoresAvailability(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/reject", created.ID), 99, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/books/1/availability", 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var av models.Availability
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&av))
	assert.Equal(t, int64(1), av.Available)
}

func TestExtendEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))
	env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/approve", created.ID), 99, nil)

	extendPath := fmt.Sprintf("/api/v1/reservations/%d/extend", created.ID)

	// Owner mismatch is forbidden before any state is touched.
	resp := env.do(t, http.MethodPost, extendPath, 11, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, extendPath, 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decodeReservation(t, resp)
	assert.Equal(t, int64(1), first.ExtensionsUsed)
	assert.WithinDuration(t, created.DueDate.AddDate(0, 0, 7), first.DueDate, time.Second)

	resp = env.do(t, http.MethodPost, extendPath, 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Third extension exceeds the cap.
	resp = env.do(t, http.MethodPost, extendPath, 10, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReturnFlowEndpoints(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))
	env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/approve", created.ID), 99, nil)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/return", created.ID), 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requested := decodeReservation(t, resp)
	assert.Equal(t, models.StatusPendingReturn, requested.Status)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/return/approve", created.ID), 99, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	returned := decodeReservation(t, resp)
	assert.Equal(t, models.StatusReturned, returned.Status)
}

func TestReturnEndpoint_Direct(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))
	env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/approve", created.ID), 99, nil)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/return?direct=1", created.ID), 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	returned := decodeReservation(t, resp)
	assert.Equal(t, models.StatusReturned, returned.Status)
}

func TestCancelEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Test Book", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/reservations/%d/cancel", created.ID), 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeReservation(t, resp)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
}

func TestListMineEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Book A", 1)
	env.seedBook(t, 2, "Book B", 1)

	env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1})
	env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 2})
	env.do(t, http.MethodPost, "/api/v1/reservations", 11, map[string]int64{"book_id": 1})

	resp := env.do(t, http.MethodGet, "/api/v1/reservations", 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items      []models.Reservation `json:"items"`
		TotalCount int64                `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, int64(2), page.TotalCount)
	assert.Len(t, page.Items, 2)
}

func TestAdminListEndpoint_StatusFilter(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Book A", 1)
	env.seedBook(t, 2, "Book B", 1)

	created := decodeReservation(t, env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1}))
	env.do(t, http.MethodPost, "/api/v1/reservations", 11, map[string]int64{"book_id": 2})
	env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/reservations/%d/approve", created.ID), 99, nil)

	resp := env.do(t, http.MethodGet, "/api/v1/admin/reservations?status=active", 99, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items      []models.Reservation `json:"items"`
		TotalCount int64                `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, int64(1), page.TotalCount)

	resp = env.do(t, http.MethodGet, "/api/v1/admin/reservations?status=bogus", 99, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestBooksEndpoints(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Book A", 3)

	resp := env.do(t, http.MethodGet, "/api/v1/books", 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Books []models.Book `json:"books"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Books, 1)

	resp = env.do(t, http.MethodGet, "/api/v1/books/1/availability", 10, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var av models.Availability
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&av))
	assert.Equal(t, int64(3), av.Total)

	resp = env.do(t, http.MethodGet, "/api/v1/books/99/availability", 10, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedBook(t, 1, "Book A", 1)
	env.do(t, http.MethodPost, "/api/v1/reservations", 10, map[string]int64{"book_id": 1})

	resp := env.do(t, http.MethodGet, "/api/v1/admin/reservations/export", 99, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
}

func TestActivityEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())

	for i := 1; i <= 3; i++ {
		require.NoError(t, env.db.InsertActivity(context.Background(), &models.Activity{
			ReservationID: int64(i),
			Status:        models.StatusPending,
			Actor:         "Alice",
			Message:       fmt.Sprintf("entry %d", i),
		}))
	}

	resp := env.do(t, http.MethodGet, "/api/v1/admin/activity?limit=2", 99, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Activities []models.Activity `json:"activities"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Activities, 2)
	assert.Equal(t, "entry 3", body.Activities[0].Message)
}

func TestPathIDValidation(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())

	resp := env.do(t, http.MethodPost, "/api/v1/reservations/abc/cancel", 10, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/reservations/123/cancel", 10, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
