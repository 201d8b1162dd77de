package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alilals/ziraat-backend/internal/models"
)

var (
	ErrGrowerNotFound  = errors.New("grower not found")
	ErrDuplicateGrower = errors.New("project id already registered")
)

// GrowerStore keeps the grower registry behind the notification calendar
type GrowerStore interface {
	// Create inserts a grower, assigning ID and CreatedAt when empty
	Create(ctx context.Context, g *models.Grower) (*models.Grower, error)
	GetByProjectID(ctx context.Context, projectID string) (*models.Grower, error)
	Count(ctx context.Context) (int64, error)

	// Page returns up to size growers newest first, starting after the cursor
	Page(ctx context.Context, size int, after *Cursor) ([]models.Grower, error)

	// Search matches term case-insensitively inside the project id or the
	// grower name, newest first
	Search(ctx context.Context, term string) ([]models.Grower, error)

	// Modify runs fn on the stored grower and saves the result atomically
	Modify(ctx context.Context, projectID string, fn func(g *models.Grower) error) (*models.Grower, error)
	Delete(ctx context.Context, projectID string) error
}

// GrowerCursor returns the cursor positioned on g
func GrowerCursor(g models.Grower) *Cursor {
	return &Cursor{CreatedAt: g.CreatedAt, ID: g.ID}
}

func prepareGrower(g *models.Grower, now time.Time) models.Grower {
	grower := g.Clone()
	if grower.ID == "" {
		grower.ID = uuid.NewString()
	}
	if grower.CreatedAt.IsZero() {
		grower.CreatedAt = now
	}
	grower.CreatedAt = grower.CreatedAt.UTC()
	grower.UpdatedAt = grower.CreatedAt
	return grower
}

// MemoryGrowerStore holds growers in memory, for tests and local runs
type MemoryGrowerStore struct {
	mu      sync.RWMutex
	growers map[string]models.Grower // project id -> grower
	now     func() time.Time
}

// NewMemoryGrowerStore creates an empty in-memory registry
func NewMemoryGrowerStore() *MemoryGrowerStore {
	return &MemoryGrowerStore{
		growers: make(map[string]models.Grower),
		now:     time.Now,
	}
}

func (m *MemoryGrowerStore) Create(_ context.Context, g *models.Grower) (*models.Grower, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.growers[g.ProjectID]; exists {
		return nil, ErrDuplicateGrower
	}
	grower := prepareGrower(g, m.now())
	m.growers[grower.ProjectID] = grower

	out := grower.Clone()
	return &out, nil
}

func (m *MemoryGrowerStore) GetByProjectID(_ context.Context, projectID string) (*models.Grower, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, exists := m.growers[projectID]
	if !exists {
		return nil, ErrGrowerNotFound
	}
	out := g.Clone()
	return &out, nil
}

func (m *MemoryGrowerStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.growers)), nil
}

func (m *MemoryGrowerStore) Page(_ context.Context, size int, after *Cursor) ([]models.Grower, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	page := make([]models.Grower, 0, size)
	for _, g := range m.sortedLocked() {
		if after != nil && !after.precedes(g.CreatedAt, g.ID) {
			continue
		}
		page = append(page, g.Clone())
		if len(page) == size {
			break
		}
	}
	return page, nil
}

func (m *MemoryGrowerStore) Search(_ context.Context, term string) ([]models.Grower, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	term = strings.ToLower(term)
	out := []models.Grower{}
	for _, g := range m.sortedLocked() {
		if strings.Contains(strings.ToLower(g.ProjectID), term) ||
			strings.Contains(strings.ToLower(g.NameOfGrower), term) {
			out = append(out, g.Clone())
		}
	}
	return out, nil
}

func (m *MemoryGrowerStore) Modify(_ context.Context, projectID string, fn func(g *models.Grower) error) (*models.Grower, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, exists := m.growers[projectID]
	if !exists {
		return nil, ErrGrowerNotFound
	}
	updated := g.Clone()
	if err := fn(&updated); err != nil {
		return nil, err
	}
	updated.UpdatedAt = m.now().UTC()
	m.growers[projectID] = updated

	out := updated.Clone()
	return &out, nil
}

func (m *MemoryGrowerStore) Delete(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.growers[projectID]; !exists {
		return ErrGrowerNotFound
	}
	delete(m.growers, projectID)
	return nil
}

// sortedLocked returns the registry newest first. Caller holds mu.
func (m *MemoryGrowerStore) sortedLocked() []models.Grower {
	out := make([]models.Grower, 0, len(m.growers))
	for _, g := range m.growers {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// DatabaseGrowerStore keeps growers in a SQL database through gorm
type DatabaseGrowerStore struct {
	db *gorm.DB
}

// NewDatabaseGrowerStore wraps an open gorm connection
func NewDatabaseGrowerStore(db *gorm.DB) *DatabaseGrowerStore {
	return &DatabaseGrowerStore{db: db}
}

func (s *DatabaseGrowerStore) Create(ctx context.Context, g *models.Grower) (*models.Grower, error) {
	grower := prepareGrower(g, time.Now())
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Grower{}).Where("project_id = ?", grower.ProjectID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicateGrower
		}
		return tx.Create(&grower).Error
	})
	if err != nil {
		return nil, err
	}
	return &grower, nil
}

func (s *DatabaseGrowerStore) GetByProjectID(ctx context.Context, projectID string) (*models.Grower, error) {
	var grower models.Grower
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&grower).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGrowerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &grower, nil
}

func (s *DatabaseGrowerStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Grower{}).Count(&count).Error
	return count, err
}

func (s *DatabaseGrowerStore) Page(ctx context.Context, size int, after *Cursor) ([]models.Grower, error) {
	query := s.db.WithContext(ctx)
	if after != nil {
		query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))",
			after.CreatedAt.UTC(), after.CreatedAt.UTC(), after.ID)
	}

	growers := make([]models.Grower, 0, size)
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(size).
		Find(&growers).Error
	if err != nil {
		return nil, err
	}
	return growers, nil
}

// likeEscaper keeps user input from acting as LIKE wildcards
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *DatabaseGrowerStore) Search(ctx context.Context, term string) ([]models.Grower, error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	growers := []models.Grower{}
	err := s.db.WithContext(ctx).
		Where(`LOWER(project_id) LIKE ? ESCAPE '\' OR LOWER(name_of_grower) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC").
		Order("id DESC").
		Find(&growers).Error
	if err != nil {
		return nil, err
	}
	return growers, nil
}

// Modify reads, changes and saves the grower in one transaction
func (s *DatabaseGrowerStore) Modify(ctx context.Context, projectID string, fn func(g *models.Grower) error) (*models.Grower, error) {
	var updated models.Grower
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var grower models.Grower
		err := tx.Where("project_id = ?", projectID).First(&grower).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGrowerNotFound
		}
		if err != nil {
			return err
		}

		if err := fn(&grower); err != nil {
			return err
		}
		if err := tx.Save(&grower).Error; err != nil {
			return err
		}
		updated = grower
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *DatabaseGrowerStore) Delete(ctx context.Context, projectID string) error {
	result := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&models.Grower{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGrowerNotFound
	}
	return nil
}
