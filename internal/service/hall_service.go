package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/repository"
)

// HallService manages screening rooms.
type HallService struct {
	halls *repository.HallRepo
	clock Clock
}

func NewHallService(halls *repository.HallRepo, clock Clock) *HallService {
	if halls == nil {
		panic("nil repository passed to NewHallService")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &HallService{halls: halls, clock: clock}
}

// Create adds an active hall with a unique name.
func (s *HallService) Create(ctx context.Context, name string) (*model.Hall, error) {
	name = strings.TrimSpace(name)
	h := &model.Hall{Name: name, IsActive: true, CreatedAt: s.clock.Now()}
	if err := s.halls.Create(ctx, h); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrHallExists
		}
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"hall_id": h.ID, "name": h.Name}).Info("hall created")
	return h, nil
}

func (s *HallService) List(ctx context.Context) ([]model.Hall, error) {
	return s.halls.List(ctx)
}
