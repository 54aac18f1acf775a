// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/dalemusser/eventhub/internal/app/store/audit"
	"github.com/dalemusser/eventhub/internal/app/system/reqmeta"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations accepted by each Config field.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Lifecycle controls organization and event create/update/delete records.
	Lifecycle string
	// Membership controls organization joins and event joins/leaves.
	Membership string
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.EventID != nil {
		fields = append(fields, zap.String("event_id", event.EventID.Hex()))
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	l.zapLog.Info("audit event", fields...)
}

// Log records an audit event according to the category's destination.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryLifecycle:
		setting = l.config.Lifecycle
	case audit.CategoryMembership:
		setting = l.config.Membership
	default:
		setting = All
	}
	if setting == "" {
		setting = All
	}
	if setting == Off {
		return
	}

	meta := reqmeta.From(ctx)
	event.IP = meta.IP
	event.RequestID = meta.ID

	if setting == All || setting == Log {
		l.logToZap(event)
	}
	if setting == All || setting == DB {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func ref(id primitive.ObjectID) *primitive.ObjectID { return &id }

// --- Organization events ---

func (l *Logger) OrgCreated(ctx context.Context, actor primitive.ObjectID, org models.Organization) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryLifecycle,
		EventType:      audit.EventOrgCreated,
		ActorID:        ref(actor),
		OrganizationID: ref(org.ID),
		Details:        map[string]string{"name": org.Name},
	})
}

func (l *Logger) OrgUpdated(ctx context.Context, actor, orgID primitive.ObjectID, fields []string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryLifecycle,
		EventType:      audit.EventOrgUpdated,
		ActorID:        ref(actor),
		OrganizationID: ref(orgID),
		Details:        changed(fields),
	})
}

func (l *Logger) OrgDeleted(ctx context.Context, actor, orgID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryLifecycle,
		EventType:      audit.EventOrgDeleted,
		ActorID:        ref(actor),
		OrganizationID: ref(orgID),
	})
}

func (l *Logger) OrgJoined(ctx context.Context, actor, orgID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryMembership,
		EventType:      audit.EventOrgJoined,
		ActorID:        ref(actor),
		OrganizationID: ref(orgID),
	})
}

// --- Event events ---

func (l *Logger) EventCreated(ctx context.Context, actor primitive.ObjectID, e models.Event) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryLifecycle,
		EventType:      audit.EventEventCreated,
		ActorID:        ref(actor),
		OrganizationID: ref(e.OrganizationID),
		EventID:        ref(e.ID),
		Details:        map[string]string{"name": e.Name, "type": string(e.Type)},
	})
}

func (l *Logger) EventUpdated(ctx context.Context, actor primitive.ObjectID, e models.Event, fields []string) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryLifecycle,
		EventType:      audit.EventEventUpdated,
		ActorID:        ref(actor),
		OrganizationID: ref(e.OrganizationID),
		EventID:        ref(e.ID),
		Details:        changed(fields),
	})
}

func (l *Logger) EventDeleted(ctx context.Context, actor primitive.ObjectID, e models.Event) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryLifecycle,
		EventType:      audit.EventEventDeleted,
		ActorID:        ref(actor),
		OrganizationID: ref(e.OrganizationID),
		EventID:        ref(e.ID),
	})
}

func (l *Logger) EventJoined(ctx context.Context, actor primitive.ObjectID, e models.Event) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryMembership,
		EventType:      audit.EventEventJoined,
		ActorID:        ref(actor),
		OrganizationID: ref(e.OrganizationID),
		EventID:        ref(e.ID),
	})
}

func (l *Logger) EventLeft(ctx context.Context, actor primitive.ObjectID, e models.Event) {
	l.Log(ctx, audit.Event{
		Category:       audit.CategoryMembership,
		EventType:      audit.EventEventLeft,
		ActorID:        ref(actor),
		OrganizationID: ref(e.OrganizationID),
		EventID:        ref(e.ID),
	})
}

func changed(fields []string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = "changed"
	}
	return out
}
