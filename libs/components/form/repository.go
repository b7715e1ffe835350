package form

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/matapang/platform/libs/shared/database"
)

// Filter narrows form listings.
type Filter struct {
	Search   string
	Status   string
	Template *bool
}

// Repository defines the persistence contract for forms. Replace writes the
// whole document in one statement.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Form, error)
	Create(ctx context.Context, entity *Form) error
	Find(ctx context.Context, id string) (*Form, error)
	FindByFormID(ctx context.Context, formID string) (*Form, error)
	Replace(ctx context.Context, entity *Form) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// GormRepository provides a relational-backed implementation of Repository.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository constructs a repository from a database connection.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the forms table.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&Form{})
}

// List returns forms, newest first.
func (r *GormRepository) List(ctx context.Context, filter Filter) ([]Form, error) {
	query := r.db.WithContext(ctx).Model(&Form{}).Order("created_at DESC")
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(form_name) LIKE LOWER(?) OR LOWER(form_id) LIKE LOWER(?)", like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Template != nil {
		query = query.Where("is_template = ?", *filter.Template)
	}

	var forms []Form
	if err := query.Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// Create persists a new form.
func (r *GormRepository) Create(ctx context.Context, entity *Form) error {
	return database.Translate(r.db.WithContext(ctx).Create(entity).Error)
}

// Find returns a form by ID.
func (r *GormRepository) Find(ctx context.Context, id string) (*Form, error) {
	var entity Form
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &entity, nil
}

// FindByFormID returns the most recent form carrying formID.
func (r *GormRepository) FindByFormID(ctx context.Context, formID string) (*Form, error) {
	var entity Form
	err := r.db.WithContext(ctx).Order("created_at DESC").First(&entity, "form_id = ?", formID).Error
	if err != nil {
		return nil, database.Translate(err)
	}
	return &entity, nil
}

// Replace overwrites every column of an existing form.
func (r *GormRepository) Replace(ctx context.Context, entity *Form) error {
	result := r.db.WithContext(ctx).Model(&Form{}).Where("id = ?", entity.ID).
		Select("form_id", "form_name", "description", "sections", "fields", "approval_flow", "status", "is_template", "is_active", "updated_at").
		Updates(entity)
	if result.Error != nil {
		return database.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a form by ID.
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&Form{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// Count returns the number of stored forms.
func (r *GormRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Form{}).Count(&n).Error
	return n, err
}
