package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmehra2102/prod-golang-projects/medbook/internal/domain"
)

type SeedUser struct {
	Username string
	Password string
	Role     domain.Role
}

// Seeder provisions bootstrap accounts. It is idempotent: users whose
// username is already taken are skipped.
type Seeder struct {
	directory Directory
	log       *zap.Logger
	cost      int
}

func NewSeeder(directory Directory, log *zap.Logger) *Seeder {
	return &Seeder{directory: directory, log: log, cost: bcrypt.DefaultCost}
}

// SeedUsers returns how many users were created.
func (s *Seeder) SeedUsers(ctx context.Context, users []SeedUser) (int, error) {
	created := 0
	for _, u := range users {
		if !u.Role.IsValid() {
			return created, &ValidationError{Fields: []string{fmt.Sprintf("role %q of %q is invalid", u.Role, u.Username)}}
		}

		exists, err := s.directory.ExistsByUsername(ctx, u.Username)
		if err != nil {
			return created, fmt.Errorf("checking user %q: %w", u.Username, err)
		}
		if exists {
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), s.cost)
		if err != nil {
			return created, fmt.Errorf("hashing password: %w", err)
		}

		if err := s.directory.Create(ctx, &domain.User{
			Username:     u.Username,
			PasswordHash: string(hash),
			Role:         u.Role,
		}); err != nil {
			return created, fmt.Errorf("creating user %q: %w", u.Username, err)
		}

		created++
		s.log.Info("seeded user",
			zap.String("username", u.Username),
			zap.String("role", string(u.Role)),
		)
	}
	return created, nil
}
