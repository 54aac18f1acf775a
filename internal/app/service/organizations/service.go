// Package orgservice owns the organization lifecycle: one live organization
// per creator, a member set that always starts with the creator, and a
// globally unique invitation code.
package orgservice

import (
	"context"
	"errors"
	"strings"

	organizationstore "github.com/dalemusser/eventhub/internal/app/store/organizations"
	"github.com/dalemusser/eventhub/internal/app/system/apperr"
	"github.com/dalemusser/eventhub/internal/app/system/auditlog"
	"github.com/dalemusser/eventhub/internal/app/system/codegen"
	"github.com/dalemusser/eventhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/eventhub/internal/app/system/inputval"
	"github.com/dalemusser/eventhub/internal/app/system/optional"
	"github.com/dalemusser/eventhub/internal/app/system/usercache"
	"github.com/dalemusser/eventhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Messages returned to callers.
const (
	MsgNotFound          = "Organization not found"
	MsgNotCreator        = "Only the organization creator can do this"
	MsgAlreadyOwns       = "You already have an organization"
	MsgAlreadyDeleted    = "Organization is already deleted"
	MsgInvalidInvitation = "Invalid invitation code"
	MsgAlreadyMember     = "You are already a member of this organization"
	MsgCodeExhausted     = "Could not generate a unique invitation code"
)

// CreateInput is the payload for Create. MemberIDs may list extra members;
// the creator is always stored first regardless.
type CreateInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	URL         string               `json:"url"`
	Location    *models.Location     `json:"location"`
	MemberIDs   []primitive.ObjectID `json:"members"`
}

// UpdateInput is a partial update. Absent fields are left alone; explicit
// null clears description, url and location.
type UpdateInput struct {
	Name        optional.Field[string]          `json:"name"`
	Description optional.Field[string]          `json:"description"`
	URL         optional.Field[string]          `json:"url"`
	Location    optional.Field[models.Location] `json:"location"`
}

// View is an organization with its user references resolved.
type View struct {
	models.Organization
	Creator models.UserSummary   `json:"creator"`
	Members []models.UserSummary `json:"members"`
}

type Service struct {
	orgs   *organizationstore.Store
	users  *usercache.Resolver
	codes  *codegen.Generator
	audit  *auditlog.Logger
	logger *zap.Logger
}

func New(db *mongo.Database, users *usercache.Resolver, audit *auditlog.Logger, logger *zap.Logger) *Service {
	return &Service{
		orgs:   organizationstore.New(db),
		users:  users,
		codes:  codegen.InvitationCodes(),
		audit:  audit,
		logger: logger,
	}
}

// WithCodeGenerator replaces the invitation code generator.
func (s *Service) WithCodeGenerator(g *codegen.Generator) *Service {
	s.codes = g
	return s
}

func (s *Service) fail(op string, err error) error {
	if apperr.IsTransient(err) {
		s.logger.Warn("organization store unavailable", zap.String("op", op), zap.Error(err))
	} else {
		s.logger.Error("organization store failure", zap.String("op", op), zap.Error(err))
	}
	return apperr.Unavailable(err)
}

func validation(fe *inputval.FieldError) error {
	if fe == nil {
		return nil
	}
	return apperr.Validation(fe.Field, fe.Message)
}

func nameCheck(v string) inputval.Check {
	return inputval.Check{Field: "name", Label: "Name", Value: v, Tag: "required,min=3,max=50"}
}

func descriptionCheck(v string) inputval.Check {
	return inputval.Check{Field: "description", Label: "Description", Value: v, Tag: "omitempty,max=500"}
}

func urlCheck(v string) inputval.Check {
	return inputval.Check{Field: "url", Label: "URL", Value: v, Tag: "omitempty,httpurl"}
}

func cleanLocation(l *models.Location) *models.Location {
	if l == nil {
		return nil
	}
	out := *l
	out.Address = htmlsanitize.PlainText(out.Address)
	if out.Address == "" && out.Coordinates == nil {
		return nil
	}
	return &out
}

func memberSet(creator primitive.ObjectID, extra []primitive.ObjectID) []primitive.ObjectID {
	out := []primitive.ObjectID{creator}
	seen := map[primitive.ObjectID]bool{creator: true}
	for _, id := range extra {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Create registers a new organization owned by callerID.
func (s *Service) Create(ctx context.Context, callerID primitive.ObjectID, in CreateInput) (View, error) {
	if _, err := s.orgs.GetActiveByCreator(ctx, callerID); err == nil {
		return View{}, apperr.Conflict(MsgAlreadyOwns)
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return View{}, s.fail("get_by_creator", err)
	}

	org := models.Organization{
		Name:        htmlsanitize.PlainText(in.Name),
		Description: htmlsanitize.PlainText(in.Description),
		URL:         strings.TrimSpace(in.URL),
		Location:    cleanLocation(in.Location),
		CreatorID:   callerID,
		MemberIDs:   memberSet(callerID, in.MemberIDs),
	}
	if err := validation(inputval.First(
		nameCheck(org.Name),
		descriptionCheck(org.Description),
		urlCheck(org.URL),
	)); err != nil {
		return View{}, err
	}

	// The unique index catches a code taken between the check and the
	// insert; one fresh draw covers that race.
	var created models.Organization
	for attempt := 0; ; attempt++ {
		code, err := s.codes.Unique(ctx, s.orgs.InvitationCodeExists)
		if errors.Is(err, codegen.ErrExhausted) {
			s.logger.Warn("invitation code space exhausted", zap.Error(err))
			return View{}, apperr.ConflictWrap(MsgCodeExhausted, err)
		}
		if err != nil {
			return View{}, s.fail("invitation_code", err)
		}
		org.InvitationCode = code

		created, err = s.orgs.Create(ctx, org)
		if errors.Is(err, organizationstore.ErrDuplicateInvitationCode) && attempt == 0 {
			continue
		}
		switch {
		case errors.Is(err, organizationstore.ErrCreatorHasOrganization):
			return View{}, apperr.Conflict(MsgAlreadyOwns)
		case errors.Is(err, organizationstore.ErrDuplicateInvitationCode):
			return View{}, apperr.ConflictWrap(MsgCodeExhausted, err)
		case err != nil:
			return View{}, s.fail("create", err)
		}
		break
	}

	s.audit.OrgCreated(ctx, callerID, created)
	return s.view(ctx, created, callerID)
}

// loadOwned loads a live organization and checks that callerID created it.
func (s *Service) loadOwned(ctx context.Context, callerID, id primitive.ObjectID) (models.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Organization{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return models.Organization{}, s.fail("get", err)
	}
	if org.CreatorID != callerID {
		return models.Organization{}, apperr.Forbidden(MsgNotCreator)
	}
	return org, nil
}

// Update applies a partial update. Only the creator may update, and deleted
// organizations are reported as not found.
func (s *Service) Update(ctx context.Context, callerID, id primitive.ObjectID, in UpdateInput) (View, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && org.IsDeleted) {
		return View{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return View{}, s.fail("get", err)
	}
	if org.CreatorID != callerID {
		return View{}, apperr.Forbidden(MsgNotCreator)
	}

	var (
		upd     organizationstore.Update
		checks  []inputval.Check
		changed []string
	)
	if in.Name.Changed() {
		v, _ := in.Name.Value()
		v = htmlsanitize.PlainText(v)
		checks = append(checks, nameCheck(v))
		upd.Name = &v
		changed = append(changed, "name")
	}
	if in.Description.Changed() {
		upd.Description = cleanText(in.Description, htmlsanitize.PlainText)
		v, _ := upd.Description.Value()
		checks = append(checks, descriptionCheck(v))
		changed = append(changed, "description")
	}
	if in.URL.Changed() {
		upd.URL = cleanText(in.URL, strings.TrimSpace)
		v, _ := upd.URL.Value()
		checks = append(checks, urlCheck(v))
		changed = append(changed, "url")
	}
	if in.Location.Changed() {
		upd.Location = optional.Clear[models.Location]()
		if v, ok := in.Location.Value(); ok {
			if l := cleanLocation(&v); l != nil {
				upd.Location = optional.Set(*l)
			}
		}
		changed = append(changed, "location")
	}
	if err := validation(inputval.First(checks...)); err != nil {
		return View{}, err
	}

	updated, err := s.orgs.Update(ctx, id, upd)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return View{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return View{}, s.fail("update", err)
	}

	s.audit.OrgUpdated(ctx, callerID, id, changed)
	return s.view(ctx, updated, callerID)
}

// cleanText normalizes a set string field; an empty result clears it.
func cleanText(f optional.Field[string], clean func(string) string) optional.Field[string] {
	v, ok := f.Value()
	if !ok {
		return optional.Clear[string]()
	}
	if v = clean(v); v == "" {
		return optional.Clear[string]()
	}
	return optional.Set(v)
}

// SoftDelete flags the organization as deleted.
func (s *Service) SoftDelete(ctx context.Context, callerID, id primitive.ObjectID) (View, error) {
	org, err := s.loadOwned(ctx, callerID, id)
	if err != nil {
		return View{}, err
	}
	if org.IsDeleted {
		return View{}, apperr.Conflict(MsgAlreadyDeleted)
	}

	deleted, err := s.orgs.SoftDelete(ctx, id)
	switch {
	case errors.Is(err, organizationstore.ErrAlreadyDeleted):
		return View{}, apperr.Conflict(MsgAlreadyDeleted)
	case errors.Is(err, mongo.ErrNoDocuments):
		return View{}, apperr.NotFound(MsgNotFound)
	case err != nil:
		return View{}, s.fail("soft_delete", err)
	}

	s.audit.OrgDeleted(ctx, callerID, id)
	return s.view(ctx, deleted, callerID)
}

// GetByCreator returns the caller's live organization, or nil when the
// caller has none yet.
func (s *Service) GetByCreator(ctx context.Context, callerID primitive.ObjectID) (*View, error) {
	org, err := s.orgs.GetActiveByCreator(ctx, callerID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("get_by_creator", err)
	}
	v, err := s.view(ctx, org, callerID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID returns a live organization.
func (s *Service) GetByID(ctx context.Context, callerID, id primitive.ObjectID) (View, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) || (err == nil && org.IsDeleted) {
		return View{}, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return View{}, s.fail("get", err)
	}
	return s.view(ctx, org, callerID)
}

// JoinByInvitationCode adds the caller to the live organization holding code.
func (s *Service) JoinByInvitationCode(ctx context.Context, callerID primitive.ObjectID, code string) (View, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := validation(inputval.First(inputval.Check{
		Field: "invitation_code", Label: "Invitation code", Value: code, Tag: "required",
	})); err != nil {
		return View{}, err
	}

	org, err := s.orgs.AddMemberByInvitationCode(ctx, code, callerID)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return View{}, apperr.NotFound(MsgInvalidInvitation)
	case errors.Is(err, organizationstore.ErrAlreadyMember):
		return View{}, apperr.Conflict(MsgAlreadyMember)
	case err != nil:
		return View{}, s.fail("join", err)
	}

	s.audit.OrgJoined(ctx, callerID, org.ID)
	return s.view(ctx, org, callerID)
}

// view resolves user references. The invitation code is only shown to the
// creator.
func (s *Service) view(ctx context.Context, org models.Organization, viewer primitive.ObjectID) (View, error) {
	ids := append([]primitive.ObjectID{org.CreatorID}, org.MemberIDs...)
	summaries, err := s.users.Summaries(ctx, ids)
	if err != nil {
		return View{}, s.fail("user_summaries", err)
	}

	v := View{Organization: org, Members: make([]models.UserSummary, 0, len(org.MemberIDs))}
	if viewer != org.CreatorID {
		v.InvitationCode = ""
	}
	v.Creator = summaryOrID(summaries, org.CreatorID)
	for _, id := range org.MemberIDs {
		v.Members = append(v.Members, summaryOrID(summaries, id))
	}
	return v, nil
}

func summaryOrID(m map[primitive.ObjectID]models.UserSummary, id primitive.ObjectID) models.UserSummary {
	if s, ok := m[id]; ok {
		return s
	}
	return models.UserSummary{ID: id}
}
