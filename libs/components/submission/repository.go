package submission

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/matapang/platform/libs/shared/database"
	"github.com/matapang/platform/libs/shared/errs"
)

// ErrStale is returned when a conditional write finds the submission moved on.
var ErrStale = fmt.Errorf("%w: submission was changed by another request", errs.ErrConflict)

// Guard is the approval position a conditional write expects to replace.
type Guard struct {
	Status string
	Level  int
}

// GuardOf captures the current approval position of entity.
func GuardOf(entity *Submission) Guard {
	return Guard{Status: entity.Status, Level: entity.CurrentLevel}
}

// Filter narrows submission listings.
type Filter struct {
	FormID string
	Status string
}

// Repository defines the persistence contract for submissions.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Submission, error)
	Create(ctx context.Context, entity *Submission) error
	Find(ctx context.Context, id string) (*Submission, error)
	Save(ctx context.Context, entity *Submission) error
	Transition(ctx context.Context, entity *Submission, from Guard) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// GormRepository persists submissions via GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository constructs a repository backed by the provided DB connection.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the submissions table.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Submission{})
}

// List returns submissions, newest first.
func (r *GormRepository) List(ctx context.Context, filter Filter) ([]Submission, error) {
	query := r.db.WithContext(ctx).Model(&Submission{}).Order("created_at DESC")
	if filter.FormID != "" {
		query = query.Where("form_id = ?", filter.FormID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var out []Submission
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a new submission.
func (r *GormRepository) Create(ctx context.Context, entity *Submission) error {
	return database.Translate(r.db.WithContext(ctx).Create(entity).Error)
}

// Find locates a submission by primary key.
func (r *GormRepository) Find(ctx context.Context, id string) (*Submission, error) {
	var entity Submission
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &entity, nil
}

// Save persists every column of a submission.
func (r *GormRepository) Save(ctx context.Context, entity *Submission) error {
	return database.Translate(r.db.WithContext(ctx).Save(entity).Error)
}

// Transition persists every column only while the stored row still holds
// the status and level in from.
func (r *GormRepository) Transition(ctx context.Context, entity *Submission, from Guard) error {
	result := r.db.WithContext(ctx).Model(entity).
		Where("status = ? AND current_level = ?", from.Status, from.Level).
		Select("*").
		Updates(entity)
	if result.Error != nil {
		return database.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// CountByStatus aggregates submissions per status.
func (r *GormRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type result struct {
		Status string
		Total  int64
	}

	var rows []result
	if err := r.db.WithContext(ctx).
		Model(&Submission{}).
		Select("status, COUNT(*) as total").
		Group("status").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}
