package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/inventory"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/schedule"
)

// ShowtimeInput is the admin-supplied part of a showtime.  The end time
// is always derived from the movie duration.
type ShowtimeInput struct {
	MovieID    uint64    `json:"movie_id" validate:"required"`
	HallID     *uint64   `json:"hall_id" validate:"omitempty,gt=0"`
	StartTime  time.Time `json:"start_time" validate:"required"`
	TotalSeats int       `json:"total_seats" validate:"gt=0"`
}

func (in *ShowtimeInput) normalize() {
	in.StartTime = in.StartTime.UTC()
}

// ShowtimeQuery filters a showtime listing.
type ShowtimeQuery struct {
	MovieID *uint64
	Page
}

// ShowtimeService implements showtime scheduling, capacity edits and the
// showtime deactivation and deletion guards.
//
// Locks are taken in the order movie row, hall row, showtime row, the
// same order movie deactivation uses.  Update checks that the showtime
// exists before taking any of them.  The in-process schedule lock is keyed by hall ID (0 when scheduling is
// global) and the seat lock by showtime ID; the seat locks are shared
// with BookingService.
type ShowtimeService struct {
	db            *sql.DB
	movies        *repository.MovieRepo
	showtimes     *repository.ShowtimeRepo
	bookings      *repository.BookingRepo
	halls         *repository.HallRepo
	policy        schedule.Policy
	scheduleLocks *inventory.Locks
	seatLocks     *inventory.Locks
	clock         Clock
}

// NewShowtimeService wires the showtime engine.
func NewShowtimeService(
	movies *repository.MovieRepo,
	showtimes *repository.ShowtimeRepo,
	bookings *repository.BookingRepo,
	halls *repository.HallRepo,
	policy schedule.Policy,
	seatLocks *inventory.Locks,
	clock Clock,
) *ShowtimeService {
	if movies == nil || showtimes == nil || bookings == nil || halls == nil {
		panic("nil repository passed to NewShowtimeService")
	}
	if seatLocks == nil {
		seatLocks = inventory.NewLocks()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ShowtimeService{
		db:            showtimes.DB(),
		movies:        movies,
		showtimes:     showtimes,
		bookings:      bookings,
		halls:         halls,
		policy:        policy,
		scheduleLocks: inventory.NewLocks(),
		seatLocks:     seatLocks,
		clock:         clock,
	}
}

func (s *ShowtimeService) scheduleKey(hallID *uint64) uint64 {
	if s.policy.HallScoped && hallID != nil {
		return *hallID
	}
	return 0
}

// validateSchedule resolves the movie and hall of in, derives the end
// time and rejects the slot if it collides with another active showtime
// in scope.  excludeID skips the showtime being edited.
func (s *ShowtimeService) validateSchedule(ctx context.Context, tx *sql.Tx, in ShowtimeInput, excludeID uint64) (time.Time, error) {
	m, err := s.movies.GetForUpdateTx(ctx, tx, in.MovieID)
	if err != nil {
		return time.Time{}, movieErr(err)
	}
	if !m.IsActive {
		return time.Time{}, ErrMovieNotFound
	}

	if in.HallID == nil && s.policy.HallScoped {
		return time.Time{}, invalid("hall_id is required")
	}
	if in.HallID != nil {
		h, err := s.halls.LockTx(ctx, tx, *in.HallID)
		if err != nil {
			return time.Time{}, hallErr(err)
		}
		if !h.IsActive {
			return time.Time{}, ErrHallNotFound
		}
	}

	end := schedule.EndTime(in.StartTime, *m)
	var scope *uint64
	if s.policy.HallScoped {
		scope = in.HallID
	}
	candidates, err := s.showtimes.FindCandidatesTx(ctx, tx, scope, in.StartTime, end, s.policy.Buffer, excludeID)
	if err != nil {
		return time.Time{}, err
	}
	proposed := schedule.Window{Start: in.StartTime, End: end}
	if hit, ok := schedule.FirstConflict(candidates, proposed, s.policy.Buffer, excludeID); ok {
		return time.Time{}, &ScheduleConflictError{ShowtimeID: hit.ID, Start: hit.StartTime, End: hit.EndTime}
	}
	return end, nil
}

// Create schedules a new active showtime with every seat available.
func (s *ShowtimeService) Create(ctx context.Context, in ShowtimeInput) (*model.Showtime, error) {
	in.normalize()
	seats, err := inventory.Initialize(in.TotalSeats)
	if err != nil {
		return nil, invalid("%v", err)
	}

	unlock := s.scheduleLocks.Lock(s.scheduleKey(in.HallID))
	defer unlock()

	now := s.clock.Now()
	st := &model.Showtime{
		MovieID:        in.MovieID,
		HallID:         in.HallID,
		StartTime:      in.StartTime,
		TotalSeats:     seats.Total,
		AvailableSeats: seats.Available,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		end, err := s.validateSchedule(ctx, tx, in, 0)
		if err != nil {
			return err
		}
		st.EndTime = end
		return s.showtimes.CreateTx(ctx, tx, st)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"showtime_id": st.ID,
		"movie_id":    st.MovieID,
		"start":       st.StartTime,
		"end":         st.EndTime,
		"total_seats": st.TotalSeats,
	}).Info("showtime created")
	return st, nil
}

// Update moves a showtime to a new movie, hall or start time and resizes
// its capacity.  The slot is re-validated excluding the showtime itself,
// the end time is recomputed from the current movie duration and the
// capacity may not drop below the seats already booked.
func (s *ShowtimeService) Update(ctx context.Context, id uint64, in ShowtimeInput) (*model.Showtime, error) {
	in.normalize()
	// Unlocked existence check; the row lock is taken after movie and hall.
	if _, err := s.showtimes.GetByID(ctx, id); err != nil {
		return nil, showtimeErr(err)
	}

	unlockSchedule := s.scheduleLocks.Lock(s.scheduleKey(in.HallID))
	defer unlockSchedule()
	unlockSeats := s.seatLocks.Lock(id)
	defer unlockSeats()

	now := s.clock.Now()
	var st *model.Showtime
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		end, err := s.validateSchedule(ctx, tx, in, id)
		if err != nil {
			return err
		}
		st, err = s.showtimes.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return showtimeErr(err)
		}
		cur := inventory.Seats{Total: st.TotalSeats, Available: st.AvailableSeats}
		if !cur.Valid() {
			return integrityFault(st, "stored seat counters out of range")
		}
		next, err := cur.Resize(in.TotalSeats)
		if err != nil {
			if errors.Is(err, inventory.ErrCapacityBelowBooked) {
				return ErrCapacityBelowBooked
			}
			return invalid("%v", err)
		}

		st.MovieID, st.HallID, st.StartTime, st.EndTime = in.MovieID, in.HallID, in.StartTime, end
		if err := s.showtimes.UpdateScheduleTx(ctx, tx, st, now); err != nil {
			return versionErr(err)
		}
		return versionErr(s.showtimes.UpdateSeatsTx(ctx, tx, st, next.Total, next.Available, now))
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"showtime_id":     st.ID,
		"start":           st.StartTime,
		"end":             st.EndTime,
		"total_seats":     st.TotalSeats,
		"available_seats": st.AvailableSeats,
	}).Info("showtime updated")
	return st, nil
}

// Get returns a showtime.  Non-admins only see active showtimes of active
// movies.
func (s *ShowtimeService) Get(ctx context.Context, id uint64, isAdmin bool) (*model.Showtime, error) {
	st, err := s.showtimes.GetByID(ctx, id)
	if err != nil {
		return nil, showtimeErr(err)
	}
	if isAdmin {
		return st, nil
	}
	if !st.IsActive {
		return nil, ErrShowtimeNotFound
	}
	m, err := s.movies.GetByID(ctx, st.MovieID)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	if !m.IsActive {
		return nil, ErrShowtimeNotFound
	}
	return st, nil
}

// List pages through showtimes ordered by start time.
func (s *ShowtimeService) List(ctx context.Context, q ShowtimeQuery, isAdmin bool) ([]model.Showtime, error) {
	p, err := q.Page.Normalize()
	if err != nil {
		return nil, err
	}
	return s.showtimes.List(ctx, repository.ShowtimeFilter{
		MovieID:         q.MovieID,
		IncludeInactive: isAdmin,
		Offset:          p.Skip,
		Limit:           p.Limit,
	})
}

// Deactivate soft-deletes a showtime.  Before the showtime has ended it
// is refused while any booking still holds seats; afterwards it is
// always allowed.
func (s *ShowtimeService) Deactivate(ctx context.Context, id uint64) (*model.Showtime, error) {
	unlock := s.seatLocks.Lock(id)
	defer unlock()

	now := s.clock.Now()
	var st *model.Showtime
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		st, err = s.showtimes.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return showtimeErr(err)
		}
		if !st.IsActive {
			return nil
		}
		if !st.HasEnded(now) {
			n, err := s.bookings.CountByShowtimeTx(ctx, tx, id, true)
			if err != nil {
				return err
			}
			if n > 0 {
				return ErrHasActiveBookings
			}
		}
		if err := s.showtimes.SetActiveTx(ctx, tx, id, false, now); err != nil {
			return showtimeErr(err)
		}
		st.IsActive, st.UpdatedAt = false, now
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"showtime_id": id}).Info("showtime deactivated")
	return st, nil
}

// Delete removes a showtime for good.  Only inactive or ended showtimes
// without any booking, cancelled ones included, can be deleted.
func (s *ShowtimeService) Delete(ctx context.Context, id uint64) error {
	unlock := s.seatLocks.Lock(id)
	defer unlock()

	now := s.clock.Now()
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		st, err := s.showtimes.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return showtimeErr(err)
		}
		if st.IsActive && !st.HasEnded(now) {
			return ErrShowtimeInUse
		}
		n, err := s.bookings.CountByShowtimeTx(ctx, tx, id, false)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrShowtimeInUse
		}
		return showtimeErr(s.showtimes.DeleteTx(ctx, tx, id))
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"showtime_id": id}).Info("showtime deleted")
	return nil
}

func showtimeErr(err error) error {
	if errors.Is(err, repository.ErrShowtimeNotFound) {
		return ErrShowtimeNotFound
	}
	return err
}

func hallErr(err error) error {
	if errors.Is(err, repository.ErrHallNotFound) {
		return ErrHallNotFound
	}
	return err
}

func versionErr(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return ErrConcurrentUpdate
	}
	return err
}

// integrityFault logs a broken invariant on st and returns the error that
// aborts the transaction.
func integrityFault(st *model.Showtime, msg string) error {
	logrus.WithFields(logrus.Fields{
		"showtime_id":     st.ID,
		"total_seats":     st.TotalSeats,
		"available_seats": st.AvailableSeats,
	}).Error(msg)
	return ErrDataIntegrity
}
