package service

import (
	"context"

	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/rs/zerolog"
)

type BookService struct {
	repo   domain.Repository
	cache  domain.AvailabilityCache
	logger *zerolog.Logger
}

func NewBookService(repo domain.Repository, cache domain.AvailabilityCache, logger *zerolog.Logger) *BookService {
	return &BookService{repo: repo, cache: cache, logger: logger}
}

func (s *BookService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return s.repo.GetBook(ctx, id)
}

func (s *BookService) ListBooks(ctx context.Context) ([]*models.Book, error) {
	return s.repo.ListBooks(ctx)
}

// GetAvailability returns the copy-count snapshot for a book, served from
// cache when fresh. The store stays authoritative; cache misses and cache
// errors both fall through to it.
func (s *BookService) GetAvailability(ctx context.Context, bookID int64) (*models.Availability, error) {
	if s.cache != nil {
		av, err := s.cache.GetAvailability(ctx, bookID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("book_id", bookID).Msg("availability cache read failed")
		} else if av != nil {
			return av, nil
		}
	}

	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	av := &models.Availability{
		BookID:    book.ID,
		Total:     book.TotalQuantity,
		Available: book.AvailableQuantity,
	}

	if s.cache != nil {
		if err := s.cache.SetAvailability(ctx, av); err != nil {
			s.logger.Warn().Err(err).Int64("book_id", bookID).Msg("availability cache write failed")
		}
	}

	return av, nil
}

// SeedCatalog upserts the configured catalog into the store.
func (s *BookService) SeedCatalog(ctx context.Context, books []models.Book) error {
	for i := range books {
		if err := s.repo.UpsertBook(ctx, &books[i]); err != nil {
			return err
		}
	}
	s.logger.Info().Int("count", len(books)).Msg("catalog seeded")
	return nil
}
