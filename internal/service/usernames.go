package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UsernameResolver turns the party ids on appointments and patient records
// into usernames for display.
type UsernameResolver struct {
	directory Directory
	log       *zap.Logger
}

func NewUsernameResolver(directory Directory, log *zap.Logger) *UsernameResolver {
	return &UsernameResolver{directory: directory, log: log}
}

// Usernames resolves ids with a single directory call. Nil and repeated ids
// are skipped. A directory failure yields an empty map and is logged, so a
// committed change is still reported as such.
func (r *UsernameResolver) Usernames(ctx context.Context, ids ...uuid.UUID) map[uuid.UUID]string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[uuid.UUID]string{}
	}

	names, err := r.directory.UsernamesByID(ctx, unique)
	if err != nil {
		r.log.Warn("resolving usernames failed", zap.Int("ids", len(unique)), zap.Error(err))
		return map[uuid.UUID]string{}
	}
	return names
}
