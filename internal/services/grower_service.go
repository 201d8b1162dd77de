package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alilals/ziraat-backend/internal/models"
	"github.com/alilals/ziraat-backend/internal/storage"
	"github.com/alilals/ziraat-backend/internal/utils"
)

// GrowerPage is one page of the grower registry
type GrowerPage struct {
	Growers       []models.Grower `json:"growers"`
	NextPageToken string          `json:"next_page_token"`
	Total         int64           `json:"total"`
	TotalPages    int64           `json:"total_pages"`
}

// GrowerService manages the grower registry and each grower's task calendar
type GrowerService struct {
	store  storage.GrowerStore
	logger *zap.Logger
	now    func() time.Time
}

func NewGrowerService(store storage.GrowerStore, logger *zap.Logger) *GrowerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrowerService{store: store, logger: logger, now: time.Now}
}

// Register adds a grower. projectId and nameOfGrower are required and the
// phone number, when given, must be a 10-digit mobile number.
func (s *GrowerService) Register(ctx context.Context, g *models.Grower) (*models.Grower, error) {
	g.ProjectID = strings.TrimSpace(g.ProjectID)
	g.NameOfGrower = strings.TrimSpace(g.NameOfGrower)
	if g.ProjectID == "" || g.NameOfGrower == "" {
		return nil, &ValidationError{Message: "Missing required fields: projectId and nameOfGrower"}
	}
	if g.PhoneNumber != "" && !utils.IsValidPhoneNumber(g.PhoneNumber) {
		return nil, &ValidationError{Message: "Invalid phone number. Must be 10 digits starting with 6-9"}
	}

	grower := g.Clone()
	grower.ID = ""
	grower.Tasks = nil
	grower.CreatedAt = s.now()

	created, err := s.store.Create(ctx, &grower)
	if err != nil {
		return nil, fmt.Errorf("register grower: %w", err)
	}
	s.logger.Info("Grower registered", zap.String("project_id", created.ProjectID))
	return created, nil
}

// Get returns the grower registered under projectID
func (s *GrowerService) Get(ctx context.Context, projectID string) (*models.Grower, error) {
	return s.store.GetByProjectID(ctx, projectID)
}

// Page returns up to size growers newest first, starting after token,
// together with the registry size
func (s *GrowerService) Page(ctx context.Context, size int, token string) (*GrowerPage, error) {
	after, err := storage.DecodePageToken(token)
	if err != nil {
		return nil, err
	}
	size = ClampPageSize(size)

	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count growers: %w", err)
	}
	growers, err := s.store.Page(ctx, size+1, after)
	if err != nil {
		return nil, fmt.Errorf("fetch growers: %w", err)
	}

	page := &GrowerPage{
		Growers:    growers,
		Total:      total,
		TotalPages: (total + int64(size) - 1) / int64(size),
	}
	if len(growers) > size {
		page.Growers = growers[:size]
		page.NextPageToken = storage.EncodePageToken(storage.GrowerCursor(page.Growers[size-1]))
	}
	return page, nil
}

// Search matches term inside project ids and grower names. A blank term
// matches nothing.
func (s *GrowerService) Search(ctx context.Context, term string) ([]models.Grower, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Grower{}, nil
	}
	growers, err := s.store.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("search growers: %w", err)
	}
	return growers, nil
}

// Update changes the profile fields present in patch
func (s *GrowerService) Update(ctx context.Context, projectID string, patch models.GrowerPatch) (*models.Grower, error) {
	if patch.PhoneNumber != nil && !utils.IsValidPhoneNumber(*patch.PhoneNumber) {
		return nil, &ValidationError{Message: "Invalid phone number. Must be 10 digits starting with 6-9"}
	}
	if patch.NameOfGrower != nil && strings.TrimSpace(*patch.NameOfGrower) == "" {
		return nil, &ValidationError{Message: "nameOfGrower cannot be empty"}
	}

	return s.store.Modify(ctx, projectID, func(g *models.Grower) error {
		if patch.NameOfGrower != nil {
			g.NameOfGrower = strings.TrimSpace(*patch.NameOfGrower)
		}
		if patch.PhoneNumber != nil {
			g.PhoneNumber = *patch.PhoneNumber
		}
		if patch.Address != nil {
			g.Address = *patch.Address
		}
		return nil
	})
}

// Remove deletes a grower with its calendar
func (s *GrowerService) Remove(ctx context.Context, projectID string) error {
	if err := s.store.Delete(ctx, projectID); err != nil {
		return err
	}
	s.logger.Info("Grower removed", zap.String("project_id", projectID))
	return nil
}

// Tasks returns the grower's calendar keyed by date, empty when none
func (s *GrowerService) Tasks(ctx context.Context, projectID string) (map[string][]models.GrowerTask, error) {
	g, err := s.store.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if g.Tasks == nil {
		return map[string][]models.GrowerTask{}, nil
	}
	return g.Tasks, nil
}

// AddTask plans a task on date (YYYY-MM-DD) for the grower
func (s *GrowerService) AddTask(ctx context.Context, projectID, date, title, description string) (*models.GrowerTask, error) {
	if _, err := time.Parse(models.TaskDateLayout, date); err != nil {
		return nil, &ValidationError{Message: "Invalid date format. Expected: YYYY-MM-DD"}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &ValidationError{Message: "Please enter a task title"}
	}

	task := models.GrowerTask{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Date:        date,
		CreatedAt:   s.now().UTC(),
	}
	_, err := s.store.Modify(ctx, projectID, func(g *models.Grower) error {
		g.AddTask(task)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes task taskID from date
func (s *GrowerService) DeleteTask(ctx context.Context, projectID, date, taskID string) error {
	_, err := s.store.Modify(ctx, projectID, func(g *models.Grower) error {
		return g.RemoveTask(date, taskID)
	})
	return err
}
