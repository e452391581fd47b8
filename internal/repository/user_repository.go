package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medbook/internal/service"
	"github.com/dmehra2102/prod-golang-projects/medbook/pkg/metrics"
)

const usersTable = "users"

// UserRepository is the gorm-backed user directory.
type UserRepository struct {
	db      *gorm.DB
	metrics *metrics.Collector
}

var _ service.Directory = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB, m *metrics.Collector) *UserRepository {
	return &UserRepository{db: db, metrics: m}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	defer r.metrics.ObserveQuery("find_by_username", usersTable, time.Now())

	var u domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error
	return userOrErr(&u, err)
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	defer r.metrics.ObserveQuery("find_by_id", usersTable, time.Now())

	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	return userOrErr(&u, err)
}

// FindFirstByRole returns the earliest registered user holding role.
func (r *UserRepository) FindFirstByRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	defer r.metrics.ObserveQuery("find_first_by_role", usersTable, time.Now())

	var u domain.User
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		Order("id ASC").
		Take(&u).Error
	return userOrErr(&u, err)
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	defer r.metrics.ObserveQuery("exists_by_username", usersTable, time.Now())

	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, storageError(err)
	}
	return n > 0, nil
}

// UsernamesByID resolves ids in one query. Unknown ids are absent from the map.
func (r *UserRepository) UsernamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	defer r.metrics.ObserveQuery("usernames_by_id", usersTable, time.Now())

	var rows []struct {
		ID       uuid.UUID
		Username string
	}
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Select("id", "username").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, storageError(err)
	}

	names := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Username
	}
	return names, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	defer r.metrics.ObserveQuery("create", usersTable, time.Now())

	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username %q %w", u.Username, domain.ErrAlreadyExists)
		}
		return storageError(err)
	}
	return nil
}

func userOrErr(u *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, service.ErrUserNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return u, nil
}
