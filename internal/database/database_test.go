package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedBook(t *testing.T, db *DB, id int64, title string, total int64) *models.Book {
	t.Helper()
	book := &models.Book{
		ID:            id,
		Title:         title,
		Author:        "Test Author",
		Category:      "test",
		TotalQuantity: total,
	}
	require.NoError(t, db.UpsertBook(context.Background(), book))
	return book
}

func seedUser(t *testing.T, db *DB, id int64, name string) *models.User {
	t.Helper()
	user := &models.User{ID: id, Name: name}
	require.NoError(t, db.CreateOrUpdateUser(context.Background(), user))
	return user
}

func seedReservation(t *testing.T, db *DB, bookID int64, bookTitle string, userID int64, userName, status string) *models.Reservation {
	t.Helper()
	r := &models.Reservation{
		BookID:    bookID,
		BookTitle: bookTitle,
		UserID:    userID,
		UserName:  userName,
		Status:    status,
		DueDate:   time.Now().UTC().AddDate(0, 0, models.DefaultLoanDays),
	}
	require.NoError(t, db.CreateReservation(context.Background(), r))
	return r
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "db_test_dir")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
}

func TestCreateTables_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	err := createTables(db.DB)
	require.NoError(t, err)
}

func TestDB_Ping(t *testing.T) {
	db := setupTestDB(t)

	err := db.PingContext(context.Background())
	assert.NoError(t, err)
}
