package crud_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/internal/crud"
	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/internal/repository/memory"
	"github.com/maxviazov/ats-service/internal/validation"
	"github.com/rs/zerolog"
)

var (
	orgTable = repository.Table{
		Name:            "organizations",
		IDColumn:        "organization_id",
		CreatedAtColumn: "created_at",
		UpdatedAtColumn: "updated_at",
		Unique:          [][]string{{"name"}},
	}
	jobTable = repository.Table{
		Name:       "jobs",
		IDColumn:   "job_id",
		References: map[string]string{"organization_id": "organizations"},
	}
	orgRules = validation.Rules{
		"name":     "required,text,max=100",
		"industry": "text",
		"website":  "text,url",
	}
)

type envelope struct {
	Success    bool                    `json:"success"`
	Data       json.RawMessage         `json:"data"`
	Error      string                  `json:"error"`
	StatusCode int                     `json:"statusCode"`
	Errors     []validation.FieldError `json:"errors"`
}

type paged struct {
	Data   []map[string]any `json:"data"`
	Paging struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		TotalPages int64 `json:"totalPages"`
	} `json:"paging"`
}

type fixture struct {
	router *gin.Engine
	orgs   repository.Store
	jobs   repository.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := memory.NewDB()
	f := &fixture{router: gin.New(), orgs: db.Table(orgTable), jobs: db.Table(jobTable)}

	schema := validation.New(orgRules)
	orgs := crud.New(f.orgs, crud.Config{
		Name:            "Organization",
		IDField:         "organization_id",
		DefaultLimit:    5,
		MaxLimit:        20,
		CreateValidator: schema,
		UpdateValidator: schema.Partial(),
	}, zerolog.Nop())
	orgs.Register(f.router.Group("/api/organizations"))

	jobs := crud.New(f.jobs, crud.Config{Name: "Job", IDField: "job_id"}, zerolog.Nop())
	g := f.router.Group("/api/jobs")
	g.GET("/organization/:organization_id", jobs.ListBy("organization_id", "organization_id", crud.ParseInt64))
	g.GET("/stats", jobs.StatsBy("status"))
	jobs.Register(g)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope: %v (%s)", err, w.Body.String())
	}
	if env.StatusCode != w.Code {
		t.Fatalf("statusCode %d does not match HTTP status %d", env.StatusCode, w.Code)
	}
	return w, env
}

func (f *fixture) seedOrgs(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := f.orgs.Create(context.Background(), model.Record{"name": fmt.Sprintf("Org %02d", i)}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("invalid data: %v (%s)", err, env.Data)
	}
	return v
}

func TestList_PaginationContract(t *testing.T) {
	f := newFixture(t)
	f.seedOrgs(t, 12)

	cases := []struct {
		query     string
		wantLen   int
		wantPage  int
		wantLimit int
	}{
		{"", 5, 1, 5},
		{"?page=2&limit=5", 5, 2, 5},
		{"?page=3&limit=5", 2, 3, 5},
		{"?page=4&limit=5", 0, 4, 5},
		{"?limit=500", 12, 1, 20},
		{"?limit=0", 1, 1, 1},
		{"?page=-1&limit=abc", 5, 1, 5},
		{"?page=500000000000000000&limit=20", 0, math.MaxInt/20 + 1, 20},
	}
	for _, tc := range cases {
		t.Run("query"+tc.query, func(t *testing.T) {
			w, env := f.do(t, http.MethodGet, "/api/organizations"+tc.query, "")
			if w.Code != http.StatusOK || !env.Success {
				t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
			}
			p := decodeData[paged](t, env)
			if len(p.Data) != tc.wantLen || p.Data == nil {
				t.Fatalf("expected %d records, got %d", tc.wantLen, len(p.Data))
			}
			if len(p.Data) > p.Paging.Limit {
				t.Fatalf("page larger than limit")
			}
			if p.Paging.Page != tc.wantPage || p.Paging.Limit != tc.wantLimit || p.Paging.Total != 12 {
				t.Fatalf("unexpected paging %+v", p.Paging)
			}
			want := int64(math.Ceil(12 / float64(tc.wantLimit)))
			if p.Paging.TotalPages != want {
				t.Fatalf("totalPages=%d want %d", p.Paging.TotalPages, want)
			}
		})
	}
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	f.seedOrgs(t, 3)

	_, env := f.do(t, http.MethodGet, "/api/organizations", "")
	p := decodeData[paged](t, env)
	var ids []float64
	for _, r := range p.Data {
		ids = append(ids, r["organization_id"].(float64))
	}
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 2 || ids[2] != 1 {
		t.Fatalf("expected descending ids, got %v", ids)
	}
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	f.seedOrgs(t, 1)

	w, env := f.do(t, http.MethodGet, "/api/organizations/1", "")
	if w.Code != http.StatusOK || decodeData[map[string]any](t, env)["name"] != "Org 00" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}

	w, env = f.do(t, http.MethodGet, "/api/organizations/999", "")
	if w.Code != http.StatusNotFound || env.Error != "Organization not found" || env.Success {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}

	w, env = f.do(t, http.MethodGet, "/api/organizations/abc", "")
	if w.Code != http.StatusBadRequest || env.Error != "Invalid Organization ID" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestMissingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := crud.New(memory.NewDB().Table(orgTable), crud.Config{Name: "Organization", IDField: "organization_id"}, zerolog.Nop())

	for name, handler := range map[string]gin.HandlerFunc{"get": h.GetByID, "update": h.Update, "delete": h.Delete} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", strings.NewReader(`{}`))
			c.Params = gin.Params{{Key: "id", Value: "  "}}
			handler(c)
			if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Organization ID is required") {
				t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodPost, "/api/organizations", `{"name":"Acme","industry":"Software"}`)
	if w.Code != http.StatusCreated || !env.Success {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
	rec := decodeData[map[string]any](t, env)
	if rec["organization_id"] != float64(1) || rec["name"] != "Acme" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestCreate_ValidationFailurePersistsNothing(t *testing.T) {
	f := newFixture(t)

	w, env := f.do(t, http.MethodPost, "/api/organizations", `{"industry":42,"website":"not a url"}`)
	if w.Code != http.StatusBadRequest || env.Error != "Validation failed" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
	want := []validation.FieldError{
		{Field: "industry", Message: "must be a string"},
		{Field: "name", Message: "is required"},
		{Field: "website", Message: "must be a valid URL"},
	}
	if fmt.Sprint(env.Errors) != fmt.Sprint(want) {
		t.Fatalf("unexpected field errors %v", env.Errors)
	}
	if n, _ := f.orgs.Count(context.Background(), nil); n != 0 {
		t.Fatalf("nothing should be persisted, found %d", n)
	}
}

func TestCreate_InvalidBody(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`not json`, `[1,2]`, `"text"`, `{"name":"a"} trailing`, `{"name":"Acme"}}`, `{"name":"Acme"}]`, `{"name":"a"} {"name":"b"}`} {
		w, env := f.do(t, http.MethodPost, "/api/organizations", body)
		if w.Code != http.StatusBadRequest || env.Error != "Invalid request body" {
			t.Fatalf("body %q: unexpected response %d: %s", body, w.Code, w.Body.String())
		}
	}
}

func TestCreate_UniqueConflict(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/organizations", `{"name":"Acme","industry":"Software"}`)

	w, env := f.do(t, http.MethodPost, "/api/organizations", `{"name":"Acme","industry":"Retail"}`)
	if w.Code != http.StatusConflict || env.Error != "Organization with this value already exists" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}

	_, env = f.do(t, http.MethodGet, "/api/organizations/1", "")
	if decodeData[map[string]any](t, env)["industry"] != "Software" {
		t.Fatalf("first record was modified")
	}
	if n, _ := f.orgs.Count(context.Background(), nil); n != 1 {
		t.Fatalf("expected exactly one record, got %d", n)
	}
}

func TestCreate_RelatedNotFound(t *testing.T) {
	f := newFixture(t)
	w, env := f.do(t, http.MethodPost, "/api/jobs", `{"organization_id":77,"title":"Ghost"}`)
	if w.Code != http.StatusNotFound || env.Error != "Related record not found" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdate_PartialLeavesOtherFields(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/organizations", `{"name":"Acme","industry":"Software","website":"https://acme.test"}`)

	w, env := f.do(t, http.MethodPatch, "/api/organizations/1", `{"industry":"Robotics","organization_id":99}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
	rec := decodeData[map[string]any](t, env)
	if rec["industry"] != "Robotics" || rec["name"] != "Acme" || rec["website"] != "https://acme.test" {
		t.Fatalf("partial update changed other fields: %v", rec)
	}
	if rec["organization_id"] != float64(1) {
		t.Fatalf("identifier was rewritten: %v", rec["organization_id"])
	}
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/organizations", `{"name":"Acme"}`)
	f.do(t, http.MethodPost, "/api/organizations", `{"name":"Globex"}`)

	cases := []struct {
		name, path, body string
		wantStatus       int
		wantError        string
	}{
		{"not found", "/api/organizations/999", `{"industry":"x"}`, http.StatusNotFound, "Organization not found"},
		{"invalid id", "/api/organizations/0", `{"industry":"x"}`, http.StatusBadRequest, "Invalid Organization ID"},
		{"validation", "/api/organizations/1", `{"name":null}`, http.StatusBadRequest, "Validation failed"},
		{"conflict", "/api/organizations/2", `{"name":"Acme"}`, http.StatusConflict, "Organization with this value already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := f.do(t, http.MethodPatch, tc.path, tc.body)
			if w.Code != tc.wantStatus || env.Error != tc.wantError {
				t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	f.seedOrgs(t, 1)

	w, env := f.do(t, http.MethodDelete, "/api/organizations/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
	if got := decodeData[map[string]any](t, env); got["organization_id"] != float64(1) || len(got) != 1 {
		t.Fatalf("expected only the deleted identifier, got %v", got)
	}

	w, env = f.do(t, http.MethodDelete, "/api/organizations/1", "")
	if w.Code != http.StatusNotFound || env.Error != "Organization not found" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}
}

func TestListByAndStats(t *testing.T) {
	f := newFixture(t)
	f.seedOrgs(t, 2)
	ctx := context.Background()
	for _, j := range []model.Record{
		{"organization_id": 1, "title": "A", "status": "open"},
		{"organization_id": 1, "title": "B", "status": "closed"},
		{"organization_id": 2, "title": "C", "status": "open"},
	} {
		if _, err := f.jobs.Create(ctx, j); err != nil {
			t.Fatalf("seed job: %v", err)
		}
	}

	_, env := f.do(t, http.MethodGet, "/api/jobs/organization/1?limit=1", "")
	p := decodeData[paged](t, env)
	if len(p.Data) != 1 || p.Paging.Total != 2 || p.Paging.TotalPages != 2 {
		t.Fatalf("unexpected filtered page: %+v", p)
	}

	w, env := f.do(t, http.MethodGet, "/api/jobs/organization/x", "")
	if w.Code != http.StatusBadRequest || env.Error != "Invalid organization_id" {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}

	_, env = f.do(t, http.MethodGet, "/api/jobs/stats", "")
	stats := decodeData[struct {
		Total  int64            `json:"total"`
		Status map[string]int64 `json:"status"`
	}](t, env)
	if stats.Total != 3 || stats.Status["open"] != 2 || stats.Status["closed"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

// failingStore fails every call with err.
type failingStore struct{ err error }

func (s failingStore) FindMany(context.Context, repository.FindArgs) ([]model.Record, error) {
	return nil, s.err
}
func (s failingStore) Count(context.Context, repository.Where) (int64, error) { return 0, s.err }
func (s failingStore) FindUnique(context.Context, any) (model.Record, error) {
	return model.Record{"organization_id": int64(1)}, nil
}
func (s failingStore) Create(context.Context, model.Record) (model.Record, error) { return nil, s.err }
func (s failingStore) Update(context.Context, any, model.Record) (model.Record, error) {
	return nil, s.err
}
func (s failingStore) Delete(context.Context, any) (model.Record, error) { return nil, s.err }
func (s failingStore) GroupCount(context.Context, string, repository.Where) ([]model.GroupCount, error) {
	return nil, s.err
}

func TestStorageFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	boom := errors.New("connection reset")

	cases := []struct {
		name       string
		err        error
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"list", boom, http.MethodGet, "/x", "", 500, "Failed to fetch Organization records"},
		{"create", boom, http.MethodPost, "/x", `{}`, 500, "Failed to create Organization"},
		{"update", boom, http.MethodPatch, "/x/1", `{}`, 500, "Failed to update Organization"},
		{"update race", repository.ErrNotFound, http.MethodPatch, "/x/1", `{}`, 404, "Organization not found"},
		{"update wrapped conflict", fmt.Errorf("%w: organizations_name_key", repository.ErrAlreadyExists), http.MethodPatch, "/x/1", `{}`, 409, "Organization with this value already exists"},
		{"delete", boom, http.MethodDelete, "/x/1", "", 500, "Failed to delete Organization"},
		{"stats", boom, http.MethodGet, "/x/stats", "", 500, "Failed to fetch Organization stats"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := crud.New(failingStore{err: tc.err}, crud.Config{Name: "Organization", IDField: "organization_id"}, zerolog.Nop())
			r := gin.New()
			g := r.Group("/x")
			g.GET("/stats", h.StatsBy("status"))
			h.Register(g)

			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			} else {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus || !strings.Contains(w.Body.String(), tc.wantError) {
				t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
			}
			if strings.Contains(w.Body.String(), "connection reset") {
				t.Fatalf("storage cause leaked to client: %s", w.Body.String())
			}
		})
	}
}
