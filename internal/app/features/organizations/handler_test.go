package organizations_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/eventhub/internal/app/features/organizations"
	orgservice "github.com/dalemusser/eventhub/internal/app/service/organizations"
	userstore "github.com/dalemusser/eventhub/internal/app/store/users"
	"github.com/dalemusser/eventhub/internal/app/system/auth"
	"github.com/dalemusser/eventhub/internal/app/system/usercache"
	"github.com/dalemusser/eventhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	testSecret = "organizations-handler-test-secret!!"
	testIssuer = "eventhub-test"
)

type env struct {
	handler *organizations.Handler
	router  http.Handler
	fx      *testutil.Fixtures
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	users := usercache.NewResolver(usercache.NewMemory(0), userstore.New(db), logger)
	h := organizations.NewHandler(orgservice.New(db, users, nil, logger), logger)
	am := auth.NewMiddleware(auth.NewVerifier(testSecret, testIssuer), users, logger)
	return env{handler: h, router: organizations.Routes(h, am, nil), fx: testutil.NewFixtures(t, db)}
}

func as(r *http.Request, id primitive.ObjectID) *http.Request {
	return r.WithContext(auth.WithCaller(r.Context(), auth.Caller{ID: id}))
}

func TestHandleCreate_Success(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fx.CreateUser(ctx, "Ursula One")
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/organizations", map[string]any{
		"name": "Acme Robotics",
		"url":  "https://acme.example",
	})
	rec := testutil.NewRecorder()
	e.handler.HandleCreate(rec, as(req, u.ID))

	rec.AssertStatus(t, http.StatusCreated)
	var v orgservice.View
	rec.Decode(t, &v)
	if v.Name != "Acme Robotics" || len(v.InvitationCode) != 10 {
		t.Errorf("view = %+v", v)
	}
	if v.Creator.Name != "Ursula One" {
		t.Errorf("creator = %+v", v.Creator)
	}
}

func TestHandleCreate_ValidationError(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fx.CreateUser(ctx, "Ursula One")
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/organizations", map[string]any{"name": "A"})
	rec := testutil.NewRecorder()
	e.handler.HandleCreate(rec, as(req, u.ID))

	rec.AssertStatus(t, http.StatusBadRequest)
	body := rec.DecodeError(t)
	if body.Error.Kind != "validation" || body.Error.Field != "name" {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestHandleCreate_MalformedBody(t *testing.T) {
	e := newEnv(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/organizations", `{"name":`)
	rec := testutil.NewRecorder()
	e.handler.HandleCreate(rec, as(req, primitive.NewObjectID()))

	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestServeMine_NullWhenNone(t *testing.T) {
	e := newEnv(t)
	req := testutil.NewJSONRequest(t, http.MethodGet, "/api/organizations/mine", nil)
	rec := testutil.NewRecorder()
	e.handler.ServeMine(rec, as(req, primitive.NewObjectID()))

	rec.AssertStatus(t, http.StatusOK)
	var body map[string]any
	rec.Decode(t, &body)
	if v, ok := body["organization"]; !ok || v != nil {
		t.Errorf("body = %v, want organization:null", body)
	}
}

func TestHandleUpdate_ClearsWithNull(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := e.fx.CreateUser(ctx, "Ursula One")
	create := testutil.NewJSONRequest(t, http.MethodPost, "/api/organizations", map[string]any{
		"name":        "Acme Robotics",
		"description": "We build robots.",
	})
	rec := testutil.NewRecorder()
	e.handler.HandleCreate(rec, as(create, u.ID))
	rec.AssertStatus(t, http.StatusCreated)
	var created orgservice.View
	rec.Decode(t, &created)

	req := testutil.NewJSONRequest(t, http.MethodPatch, "/api/organizations/"+created.ID.Hex(), `{"description":null}`)
	req = testutil.WithChiURLParam(as(req, u.ID), "id", created.ID.Hex())
	rec = testutil.NewRecorder()
	e.handler.HandleUpdate(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var updated orgservice.View
	rec.Decode(t, &updated)
	if updated.Description != "" || updated.Name != "Acme Robotics" {
		t.Errorf("updated = %+v", updated.Organization)
	}
}

func TestHandleDelete_ForbiddenForOthers(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateUser(ctx, "Olga Owner")
	other := e.fx.CreateUser(ctx, "Oscar Other")
	org := e.fx.CreateOrganization(ctx, "Owner Org", owner.ID)

	req := testutil.NewJSONRequest(t, http.MethodDelete, "/api/organizations/"+org.ID.Hex(), nil)
	req = testutil.WithChiURLParam(as(req, other.ID), "id", org.ID.Hex())
	rec := testutil.NewRecorder()
	e.handler.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)

	req = testutil.NewJSONRequest(t, http.MethodDelete, "/api/organizations/"+org.ID.Hex(), nil)
	req = testutil.WithChiURLParam(as(req, owner.ID), "id", org.ID.Hex())
	rec = testutil.NewRecorder()
	e.handler.HandleDelete(rec, req)
	rec.AssertStatus(t, http.StatusOK)
}

func TestServeOne_BadID(t *testing.T) {
	e := newEnv(t)
	req := testutil.NewJSONRequest(t, http.MethodGet, "/api/organizations/xyz", nil)
	req = testutil.WithChiURLParam(as(req, primitive.NewObjectID()), "id", "xyz")
	rec := testutil.NewRecorder()
	e.handler.ServeOne(rec, req)

	rec.AssertStatus(t, http.StatusNotFound)
}

func TestRoutes_JoinWithBearerToken(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := e.fx.CreateUser(ctx, "Olga Owner")
	joiner := e.fx.CreateUser(ctx, "Jo Joiner")
	org := e.fx.CreateOrganization(ctx, "Owner Org", owner.ID)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/join", map[string]string{
		"invitation_code": " " + org.InvitationCode + " ",
	})
	req.Header.Set("Authorization", "Bearer "+testutil.BearerToken(t, testSecret, testIssuer, joiner.ID, time.Hour))
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	var v orgservice.View
	rec.Decode(t, &v)
	if len(v.MemberIDs) != 2 || v.MemberIDs[1] != joiner.ID {
		t.Errorf("members = %v", v.MemberIDs)
	}
	if v.InvitationCode != "" {
		t.Error("invitation code shown to a non-creator")
	}

	req = testutil.NewJSONRequest(t, http.MethodGet, "/mine", nil)
	rec = testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusUnauthorized)
}
