// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/eventhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collection pairs a collection with its $jsonSchema. A nil schema only
// ensures the collection exists.
type collection struct {
	name   string
	schema func() bson.M
}

var collections = []collection{
	{name: "organizations", schema: orgsSchema},
	{name: "events", schema: eventsSchema},
	// users belongs to the authentication service; audit_events is append-only.
	{name: "users"},
	{name: "audit_events"},
}

// EnsureAll creates missing collections and attaches their validators.
// Servers without collMod support (some DocumentDB versions) skip the
// validator step with an Info log.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		// Fall back to create-and-tolerate-exists for every collection.
		zap.L().Warn("listCollections failed", zap.Error(err))
		existing = nil
	}
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[n] = true
	}

	var errs []error
	for _, c := range collections {
		if err := ensureCollection(ctx, db, c.name, have[c.name]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		if c.schema == nil {
			continue
		}
		err := setValidator(ctx, db, c.name, c.schema())
		switch {
		case err == nil:
		case isCommandErr(err, []int32{59, 115}, "no such command", "not implemented", "not supported"):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
		default:
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, exists bool) error {
	if exists {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists: a concurrent starter won the race.
		if isCommandErr(err, []int32{48}, "already exists", "namespace exists") {
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	zap.L().Debug("validator ensured", zap.String("collection", name))
	return nil
}

// isCommandErr matches a server error by code or, for drivers and proxies
// that lose the code, by message.
func isCommandErr(err error, codes []int32, phrases ...string) bool {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		for _, c := range codes {
			if ce.Code == c {
				return true
			}
		}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func enumOf[T ~string](vals []T) bson.A {
	out := make(bson.A, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

func orgsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "creator_id", "member_ids", "invitation_code", "is_deleted"},
			"properties": bson.M{
				"name":            nonBlank,
				"name_ci":         nonBlank,
				"creator_id":      bson.M{"bsonType": "objectId"},
				"member_ids":      bson.M{"bsonType": "array", "minItems": 1, "items": bson.M{"bsonType": "objectId"}},
				"invitation_code": bson.M{"bsonType": "string", "minLength": 1},
				"is_deleted":      bson.M{"bsonType": "bool"},
				"deleted_at":      bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}

func eventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{
				"name", "type", "access_type", "start_date", "end_date", "creator_id",
				"organization_id", "max_attendees", "participant_ids", "is_deleted",
			},
			"properties": bson.M{
				"name":            nonBlank,
				"type":            bson.M{"enum": enumOf(models.EventTypes)},
				"access_type":     bson.M{"enum": enumOf(models.AccessTypes)},
				"start_date":      bson.M{"bsonType": "date"},
				"end_date":        bson.M{"bsonType": "date"},
				"creator_id":      bson.M{"bsonType": "objectId"},
				"organization_id": bson.M{"bsonType": "objectId"},
				"max_attendees":   bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 10000},
				"participant_ids": bson.M{"bsonType": "array", "items": bson.M{"bsonType": "objectId"}},
				"is_deleted":      bson.M{"bsonType": "bool"},
				"deleted_at":      bson.M{"bsonType": bson.A{"date", "null"}},
			},
		},
	}
}
