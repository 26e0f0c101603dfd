package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
)

// MovieInput carries the editable fields of a movie.
type MovieInput struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description *string `json:"description"`
	DurationMin int     `json:"duration" validate:"gt=0"`
	Genre       string  `json:"genre" validate:"max=64"`
}

func (in *MovieInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Genre = strings.TrimSpace(in.Genre)
}

// MovieService implements the movie catalog and its deactivation guard.
type MovieService struct {
	db        *sql.DB
	movies    *repository.MovieRepo
	showtimes *repository.ShowtimeRepo
	bookings  *repository.BookingRepo
	clock     Clock
}

// NewMovieService wires the catalog repositories.  All must share one DB.
func NewMovieService(movies *repository.MovieRepo, showtimes *repository.ShowtimeRepo, bookings *repository.BookingRepo, clock Clock) *MovieService {
	if movies == nil || showtimes == nil || bookings == nil {
		panic("nil repository passed to NewMovieService")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &MovieService{db: movies.DB(), movies: movies, showtimes: showtimes, bookings: bookings, clock: clock}
}

// Create adds an active movie.  The title must not match another
// active movie, ignoring case.
func (s *MovieService) Create(ctx context.Context, in MovieInput) (*model.Movie, error) {
	in.normalize()
	now := s.clock.Now()
	m := &model.Movie{
		Title:       in.Title,
		Description: in.Description,
		DurationMin: in.DurationMin,
		Genre:       in.Genre,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.titleFree(ctx, tx, in.Title, 0); err != nil {
			return err
		}
		return titleErr(s.movies.CreateTx(ctx, tx, m))
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"movie_id": m.ID, "title": m.Title}).Info("movie created")
	return m, nil
}

// Get returns an active movie.
func (s *MovieService) Get(ctx context.Context, id uint64) (*model.Movie, error) {
	m, err := s.movies.GetByID(ctx, id)
	if err != nil {
		return nil, movieErr(err)
	}
	if !m.IsActive {
		return nil, ErrMovieNotFound
	}
	return m, nil
}

// List pages through active movies.
func (s *MovieService) List(ctx context.Context, p Page) ([]model.Movie, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	return s.movies.ListActive(ctx, p.Skip, p.Limit)
}

// MovieSearch filters the active catalog by title and genre substrings.
type MovieSearch struct {
	Title string
	Genre string
	Page
}

// MovieSearchResult is one page of matches plus the total match count.
type MovieSearchResult struct {
	Items []model.Movie `json:"items"`
	Total int64         `json:"total"`
}

// Search pages through active movies matching q.
func (s *MovieService) Search(ctx context.Context, q MovieSearch) (*MovieSearchResult, error) {
	p, err := q.Page.Normalize()
	if err != nil {
		return nil, err
	}
	items, total, err := s.movies.SearchActive(ctx, repository.MovieSearchQuery{
		Title:  q.Title,
		Genre:  q.Genre,
		Offset: p.Skip,
		Limit:  p.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &MovieSearchResult{Items: items, Total: total}, nil
}

// Update replaces the editable fields of an active movie.  Existing
// showtimes keep their end time until they are themselves updated.
func (s *MovieService) Update(ctx context.Context, id uint64, in MovieInput) (*model.Movie, error) {
	in.normalize()
	var m *model.Movie
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		m, err = s.movies.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return movieErr(err)
		}
		if !m.IsActive {
			return ErrMovieNotFound
		}
		if err := s.titleFree(ctx, tx, in.Title, id); err != nil {
			return err
		}
		m.Title, m.Description, m.DurationMin, m.Genre = in.Title, in.Description, in.DurationMin, in.Genre
		m.UpdatedAt = s.clock.Now()
		return titleErr(s.movies.UpdateTx(ctx, tx, m))
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"movie_id": m.ID}).Info("movie updated")
	return m, nil
}

// Deactivate soft-deletes an active movie.  It is refused while any
// showtime of the movie, past or upcoming, carries a booking that holds
// seats.  All showtime rows of the movie stay locked until commit so no
// booking can slip in between the check and the update.
func (s *MovieService) Deactivate(ctx context.Context, id uint64) (*model.Movie, error) {
	now := s.clock.Now()
	var m *model.Movie
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		m, err = s.movies.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return movieErr(err)
		}
		if !m.IsActive {
			return ErrMovieNotFound
		}
		if _, err := s.showtimes.LockByMovieTx(ctx, tx, id); err != nil {
			return err
		}
		n, err := s.bookings.CountHoldingByMovieTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrHasActiveBookings
		}
		if err := s.movies.SetActiveTx(ctx, tx, id, false, now); err != nil {
			return movieErr(err)
		}
		m.IsActive, m.UpdatedAt = false, now
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"movie_id": id}).Info("movie deactivated")
	return m, nil
}

func (s *MovieService) titleFree(ctx context.Context, tx *sql.Tx, title string, excludeID uint64) error {
	_, err := s.movies.FindActiveByTitleTx(ctx, tx, title, excludeID)
	switch {
	case err == nil:
		return ErrTitleTaken
	case errors.Is(err, repository.ErrMovieNotFound):
		return nil
	default:
		return err
	}
}

func titleErr(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrTitleTaken
	}
	return err
}

func movieErr(err error) error {
	if errors.Is(err, repository.ErrMovieNotFound) {
		return ErrMovieNotFound
	}
	return err
}
