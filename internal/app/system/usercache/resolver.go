package usercache

import (
	"context"

	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Loader reads summaries from the source of truth.
type Loader interface {
	GetSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error)
}

// Resolver answers summary lookups from the cache, falling back to the
// loader for misses. Cache failures degrade to a loader read; they are
// logged and never returned.
type Resolver struct {
	cache  Cache
	loader Loader
	logger *zap.Logger
}

func NewResolver(cache Cache, loader Loader, logger *zap.Logger) *Resolver {
	return &Resolver{cache: cache, loader: loader, logger: logger}
}

// Summary resolves a single user. ok is false when the user does not exist.
func (r *Resolver) Summary(ctx context.Context, id primitive.ObjectID) (models.UserSummary, bool, error) {
	m, err := r.Summaries(ctx, []primitive.ObjectID{id})
	if err != nil {
		return models.UserSummary{}, false, err
	}
	s, ok := m[id]
	return s, ok, nil
}

// Summaries resolves every id it can. Unknown users are absent from the
// result.
func (r *Resolver) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.UserSummary, error) {
	out := make(map[primitive.ObjectID]models.UserSummary, len(ids))
	var missing []primitive.ObjectID
	seen := make(map[primitive.ObjectID]struct{}, len(ids))

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		s, ok, err := r.cache.Get(ctx, id)
		if err != nil {
			r.logger.Warn("usercache lookup failed", zap.String("user_id", id.Hex()), zap.Error(err))
		}
		if ok {
			out[id] = s
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	loaded, err := r.loader.GetSummaries(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, s := range loaded {
		out[id] = s
		if err := r.cache.Set(ctx, s); err != nil {
			r.logger.Warn("usercache store failed", zap.String("user_id", id.Hex()), zap.Error(err))
		}
	}
	return out, nil
}

// Invalidate drops a user from the cache so the next lookup reloads it.
func (r *Resolver) Invalidate(ctx context.Context, id primitive.ObjectID) error {
	return r.cache.Invalidate(ctx, id)
}
