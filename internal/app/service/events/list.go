package eventservice

import (
	"context"
	"strings"

	eventstore "github.com/dalemusser/eventhub/internal/app/store/events"
	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/dalemusser/eventhub/internal/app/system/eventstatus"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/paging"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSort orders listings soonest first.
const DefaultSort = "startDate"

var sortKeys = map[string]string{
	"startDate": "start_date",
	"createdAt": "created_at",
	"name":      "name_ci",
}

// ListQuery filters and pages the public listing. Empty strings mean no
// filter. Sort is one of startDate, createdAt or name, with a leading "-"
// for descending.
type ListQuery struct {
	Type           string
	AccessType     string
	Status         string
	OrganizationID string
	Sort           string
	Page           paging.Page
}

// ListResult is one page of views plus its metadata.
type ListResult struct {
	Events []eventstatus.View `json:"events"`
	Meta   paging.Meta        `json:"meta"`
}

// List returns one page of live events. The status filter is evaluated
// against the current time, never against a stored value.
func (s *Service) List(ctx context.Context, callerID primitive.ObjectID, q ListQuery) (ListResult, error) {
	f, err := s.filter(q)
	if err != nil {
		return ListResult{}, err
	}
	order, err := parseSort(q.Sort)
	if err != nil {
		return ListResult{}, err
	}
	page := paging.New(q.Page.Number, q.Page.Limit)

	events, total, err := s.events.List(ctx, f, page, order)
	if err != nil {
		return ListResult{}, s.fail("list", err)
	}
	views, err := s.views(ctx, events, callerID)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Events: views, Meta: paging.NewMeta(page, total)}, nil
}

func (s *Service) filter(q ListQuery) (eventstore.Filter, error) {
	f := eventstore.Filter{Now: s.now()}
	if q.Type != "" {
		t := models.EventType(q.Type)
		if t != models.EventTypeOnline && t != models.EventTypeOffline {
			return f, apperr.Validation("type", "Type must be one of: online, offline.")
		}
		f.Type = t
	}
	if q.AccessType != "" {
		a := models.AccessType(q.AccessType)
		if a != models.AccessFreeForAll && a != models.AccessCodeToJoin {
			return f, apperr.Validation("access_type", "Access type must be one of: freeForAll, codeToJoin.")
		}
		f.AccessType = a
	}
	if q.Status != "" {
		st, ok := eventstatus.Parse(q.Status)
		if !ok {
			return f, apperr.Validation("status", "Status must be one of: upcoming, ongoing, completed.")
		}
		f.Status = st
	}
	if q.OrganizationID != "" {
		if fe := inputval.First(inputval.Check{
			Field: "organization_id", Label: "Organization", Value: q.OrganizationID, Tag: "objectid",
		}); fe != nil {
			return f, apperr.Validation(fe.Field, fe.Message)
		}
		f.OrganizationID, _ = primitive.ObjectIDFromHex(strings.TrimSpace(q.OrganizationID))
	}
	return f, nil
}

func parseSort(s string) (bson.D, error) {
	if s == "" {
		s = DefaultSort
	}
	dir := 1
	key := s
	if strings.HasPrefix(s, "-") {
		dir = -1
		key = s[1:]
	}
	field, ok := sortKeys[key]
	if !ok {
		return nil, apperr.Validation("sort", "Sort must be one of: startDate, createdAt, name.")
	}
	return bson.D{{Key: field, Value: dir}}, nil
}
