package identity

import (
	"context"

	"gorm.io/gorm"

	"github.com/matapang/platform/libs/components/approval"
	"github.com/matapang/platform/libs/shared/database"
)

// Repository defines the persistence contract for users.
type Repository interface {
	List(ctx context.Context, role, search string) ([]User, error)
	Create(ctx context.Context, entity *User) error
	Find(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, id string, updates map[string]any) (*User, error)
	Delete(ctx context.Context, id string) error
}

// GormRepository persists users via GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new user repository.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the users table.
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&User{})
}

// List returns users optionally filtered by role or a name/email search.
func (r *GormRepository) List(ctx context.Context, role, search string) ([]User, error) {
	query := r.db.WithContext(ctx).Model(&User{}).Order("name ASC")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", like, like)
	}

	var users []User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Create persists a new user. A taken email maps to errs.ErrConflict.
func (r *GormRepository) Create(ctx context.Context, entity *User) error {
	return database.Translate(r.db.WithContext(ctx).Create(entity).Error)
}

// Find returns a user by ID.
func (r *GormRepository) Find(ctx context.Context, id string) (*User, error) {
	var entity User
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, database.Translate(err)
	}
	return &entity, nil
}

// Update applies changes to an existing user.
func (r *GormRepository) Update(ctx context.Context, id string, updates map[string]any) (*User, error) {
	entity, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(entity).Updates(updates).Error; err != nil {
		return nil, database.Translate(err)
	}
	return r.Find(ctx, id)
}

// Delete removes a user.
func (r *GormRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&User{}, "id = ?", id)
	if result.Error != nil {
		return database.Translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return database.Translate(gorm.ErrRecordNotFound)
	}
	return nil
}

// Directory serves approver lookups straight from a repository, for
// processes that host users in-process.
type Directory struct {
	Repo Repository
}

// Lookup implements approval.Directory.
func (d Directory) Lookup(ctx context.Context, id string) (approval.Approver, error) {
	u, err := d.Repo.Find(ctx, id)
	if err != nil {
		return approval.Approver{}, err
	}
	return approval.Approver{ID: u.ID, Name: u.Name, Email: u.Email, Position: u.Position}, nil
}
