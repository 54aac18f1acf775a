// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureOrganizations(ctx, db); err != nil {
		problems = append(problems, "organizations: "+err.Error())
	}
	if err := ensureEvents(ctx, db); err != nil {
		problems = append(problems, "events: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Desired indexes                                                            */
/* -------------------------------------------------------------------------- */

func ensureOrganizations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("organizations"), []mongo.IndexModel{
		{
			// Deleted organizations keep their code reserved.
			Keys:    bson.D{{Key: "invitation_code", Value: 1}},
			Options: options.Index().SetName("uniq_orgs_invitation_code").SetUnique(true),
		},
		{
			// One live organization per creator.
			Keys: bson.D{{Key: "creator_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_orgs_active_creator").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_deleted": false}),
		},
		{
			Keys:    bson.D{{Key: "member_ids", Value: 1}},
			Options: options.Index().SetName("idx_orgs_members"),
		},
	})
}

func ensureEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "start_date", Value: 1}},
			Options: options.Index().SetName("idx_events_deleted_start"),
		},
		{
			Keys:    bson.D{{Key: "creator_id", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_events_creator_deleted"),
		},
		{
			Keys:    bson.D{{Key: "participant_ids", Value: 1}, {Key: "is_deleted", Value: 1}},
			Options: options.Index().SetName("idx_events_participants_deleted"),
		},
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "start_date", Value: 1}},
			Options: options.Index().SetName("idx_events_org"),
		},
		{
			// Not unique: caller-supplied codes may repeat across events.
			Keys:    bson.D{{Key: "join_code", Value: 1}},
			Options: options.Index().SetName("idx_events_join_code").SetSparse(true),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_time"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_time"),
		},
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_event_time"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_time"),
		},
	})
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Sparse  *bool  `bson:"sparse,omitempty"`
	Partial bson.M `bson:"partialFilterExpression,omitempty"`
}

type desiredIndex struct {
	name    string
	unique  bool
	sparse  bool
	partial string
	sig     string
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func partialSig(p any) string {
	if p == nil {
		return ""
	}
	if m, ok := p.(bson.M); ok && len(m) == 0 {
		return ""
	}
	b, err := bson.MarshalExtJSON(p, true, false)
	if err != nil {
		return fmt.Sprintf("%v", p)
	}
	return string(b)
}

func boolOf(b *bool) bool { return b != nil && *b }

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{sig: keySig(m.Keys.(bson.D))}
	if o := m.Options; o != nil {
		if o.Name != nil {
			d.name = *o.Name
		}
		d.unique = boolOf(o.Unique)
		d.sparse = boolOf(o.Sparse)
		d.partial = partialSig(o.PartialFilterExpression)
	}
	return d
}

func (d desiredIndex) matches(ex existingIndex) bool {
	if d.unique != boolOf(ex.Unique) || d.sparse != boolOf(ex.Sparse) {
		return false
	}
	var p any
	if len(ex.Partial) > 0 {
		p = ex.Partial
	}
	return d.partial == partialSig(p)
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates each desired index, reusing an existing index with
// the same keys and options and replacing one whose name or options differ.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A missing collection has no indexes yet.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		d := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique))

		if ex, ok := existing[d.sig]; ok {
			if d.matches(ex) && (d.name == "" || ex.Name == d.name) {
				log.Debug("reusing existing index")
				continue
			}
			log.Info("replacing index", zap.String("existing", ex.Name))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), d.name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("index ensure failed", zap.Duration("took", time.Since(start)), zap.Error(err))
			if isDuplicateKeyErr(err) && d.unique {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), d.name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			}
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
