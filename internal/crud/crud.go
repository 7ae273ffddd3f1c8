// Package crud generates the five conventional REST handlers (list, get, create, update,
// delete) for one entity on top of a repository.Store. Every outcome is written with the
// response envelope; storage errors are classified here and never leak to clients.
package crud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/internal/validation"
	"github.com/maxviazov/ats-service/pkg/response"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config describes one entity. It is fixed once the Factory is built.
type Config struct {
	// Name is the display name used in messages, e.g. "Job".
	Name string
	// IDField is the identifier column, e.g. "job_id".
	IDField string
	// ParseID converts the ":id" path segment. Defaults to ParseInt64.
	ParseID      func(string) (any, error)
	DefaultLimit int
	MaxLimit     int
	// OrderBy is the list sort column, newest first. Defaults to IDField.
	OrderBy         string
	CreateValidator validation.Validator
	UpdateValidator validation.Validator
}

// Factory holds one entity's handlers.
type Factory struct {
	store  repository.Store
	cfg    Config
	logger zerolog.Logger
}

// requestIDKey is where the request id middleware stores the id on the gin context.
const requestIDKey = "request_id"

func New(store repository.Store, cfg Config, logger zerolog.Logger) *Factory {
	if cfg.ParseID == nil {
		cfg.ParseID = ParseInt64
	}
	if cfg.MaxLimit < 1 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit < 1 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.OrderBy == "" {
		cfg.OrderBy = cfg.IDField
	}
	return &Factory{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("module", "crud").Str("entity", cfg.Name).Logger(),
	}
}

// ParseInt64 accepts positive base-10 integers.
func ParseInt64(s string) (any, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("identifier must be positive, got %d", n)
	}
	return n, nil
}

// ParseString accepts any non-empty value as-is.
func ParseString(s string) (any, error) { return s, nil }

// Name returns the entity display name.
func (f *Factory) Name() string { return f.cfg.Name }

// Store exposes the underlying store for custom endpoints.
func (f *Factory) Store() repository.Store { return f.store }

// Register mounts the conventional routes on g.
func (f *Factory) Register(g *gin.RouterGroup) {
	g.GET("", f.List)
	g.POST("", f.Create)
	g.GET("/:id", f.GetByID)
	g.PATCH("/:id", f.Update)
	g.DELETE("/:id", f.Delete)
}

// List handles GET / with page/limit query parameters.
func (f *Factory) List(c *gin.Context) {
	f.list(c, nil)
}

func (f *Factory) list(c *gin.Context, where repository.Where) {
	p := ParsePage(c.Query("page"), c.Query("limit"), f.cfg.DefaultLimit, f.cfg.MaxLimit)
	records, total, err := f.fetchPage(c.Request.Context(), p, where)
	if err != nil {
		f.fail(c, "list", err, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch %s records", f.cfg.Name))
		return
	}
	response.Success(c, http.StatusOK, response.NewPaged(records, total, p.Page, p.Limit))
}

// fetchPage loads the page and the total concurrently. The two reads are not
// transactional; a total slightly out of step with the page is acceptable.
func (f *Factory) fetchPage(ctx context.Context, p Page, where repository.Where) ([]model.Record, int64, error) {
	var (
		records []model.Record
		total   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = f.store.FindMany(gctx, repository.FindArgs{
			Skip:    p.Offset(),
			Take:    p.Limit,
			OrderBy: f.cfg.OrderBy,
			Desc:    true,
			Where:   where,
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = f.store.Count(gctx, where)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// GetByID handles GET /:id.
func (f *Factory) GetByID(c *gin.Context) {
	if rec, ok := f.Lookup(c); ok {
		response.Success(c, http.StatusOK, rec)
	}
}

// Lookup resolves the ":id" path parameter to a record. On failure the error
// response is already written and ok is false.
func (f *Factory) Lookup(c *gin.Context) (rec model.Record, ok bool) {
	id, ok := f.pathID(c)
	if !ok {
		return nil, false
	}
	rec, err := f.store.FindUnique(c.Request.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		f.fail(c, "get", err, http.StatusNotFound, f.notFound())
		return nil, false
	case err != nil:
		f.fail(c, "get", err, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch %s", f.cfg.Name))
		return nil, false
	}
	return rec, true
}

// Create handles POST /. A client-supplied identifier is passed through to storage.
func (f *Factory) Create(c *gin.Context) {
	body, ok := f.body(c, nil)
	if !ok {
		return
	}
	f.CreateRecord(c, body)
}

// CreateRecord validates rec with the create validator, inserts it and writes the response.
// Handlers that build records from other inputs (e.g. multipart uploads) share the
// error contract of Create through it.
func (f *Factory) CreateRecord(c *gin.Context, rec model.Record) {
	if err := validation.Check(f.cfg.CreateValidator, rec); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldErrors(err)...)
		return
	}
	created, err := f.store.Create(c.Request.Context(), rec)
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		f.fail(c, "create", err, http.StatusConflict, f.conflict())
	case errors.Is(err, repository.ErrRelatedNotFound):
		f.fail(c, "create", err, http.StatusNotFound, "Related record not found")
	case err != nil:
		f.fail(c, "create", err, http.StatusInternalServerError, fmt.Sprintf("Failed to create %s", f.cfg.Name))
	default:
		response.Success(c, http.StatusCreated, created)
	}
}

// Update handles PATCH /:id. Only supplied fields change; the identifier is never rewritten.
func (f *Factory) Update(c *gin.Context) {
	id, ok := f.pathID(c)
	if !ok {
		return
	}
	body, ok := f.body(c, f.cfg.UpdateValidator)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := f.store.FindUnique(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			f.fail(c, "update", err, http.StatusNotFound, f.notFound())
			return
		}
		f.fail(c, "update", err, http.StatusInternalServerError, fmt.Sprintf("Failed to update %s", f.cfg.Name))
		return
	}

	rec, err := f.store.Update(ctx, id, body.Without(f.cfg.IDField))
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		f.fail(c, "update", err, http.StatusConflict, f.conflict())
	case errors.Is(err, repository.ErrNotFound):
		// deleted between the existence check and the write
		f.fail(c, "update", err, http.StatusNotFound, f.notFound())
	case err != nil:
		f.fail(c, "update", err, http.StatusInternalServerError, fmt.Sprintf("Failed to update %s", f.cfg.Name))
	default:
		response.Success(c, http.StatusOK, rec)
	}
}

// Delete handles DELETE /:id and answers with the removed identifier.
func (f *Factory) Delete(c *gin.Context) {
	id, ok := f.pathID(c)
	if !ok {
		return
	}
	_, err := f.store.Delete(c.Request.Context(), id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		f.fail(c, "delete", err, http.StatusNotFound, f.notFound())
	case err != nil:
		f.fail(c, "delete", err, http.StatusInternalServerError, fmt.Sprintf("Failed to delete %s", f.cfg.Name))
	default:
		response.Success(c, http.StatusOK, gin.H{f.cfg.IDField: id})
	}
}

// ListBy returns a list handler filtered by column = parsed value of path parameter param.
// It follows the same pagination contract as List.
func (f *Factory) ListBy(column, param string, parse func(string) (any, error)) gin.HandlerFunc {
	if parse == nil {
		parse = ParseString
	}
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param(param))
		if raw == "" {
			response.Error(c, http.StatusBadRequest, fmt.Sprintf("%s is required", param))
			return
		}
		v, err := parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s", param))
			return
		}
		f.list(c, repository.Where{column: v})
	}
}

// StatsBy returns a handler answering {"total": n, "<column>": {"<value>": count}}.
func (f *Factory) StatsBy(column string) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups, err := f.store.GroupCount(c.Request.Context(), column, nil)
		if err != nil {
			f.fail(c, "stats", err, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch %s stats", f.cfg.Name))
			return
		}
		var total int64
		buckets := make(map[string]int64, len(groups))
		for _, g := range groups {
			key := "null"
			if g.Value != nil {
				key = fmt.Sprint(g.Value)
			}
			buckets[key] += g.Count
			total += g.Count
		}
		response.Success(c, http.StatusOK, gin.H{"total": total, column: buckets})
	}
}

func (f *Factory) pathID(c *gin.Context) (any, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	if raw == "" {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("%s ID is required", f.cfg.Name))
		return nil, false
	}
	id, err := f.cfg.ParseID(raw)
	if err != nil {
		response.Error(c, http.StatusBadRequest, fmt.Sprintf("Invalid %s ID", f.cfg.Name))
		return nil, false
	}
	return id, true
}

// body decodes the JSON object and runs v when set. On failure the response is already written.
func (f *Factory) body(c *gin.Context, v validation.Validator) (model.Record, bool) {
	rec, err := decodeRecord(c.Request.Body)
	if err != nil {
		f.logger.Debug().Err(err).Str(requestIDKey, c.GetString(requestIDKey)).Msg("Rejected request body")
		response.Error(c, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if err := validation.Check(v, rec); err != nil {
		response.Error(c, http.StatusBadRequest, "Validation failed", validation.FieldErrors(err)...)
		return nil, false
	}
	return rec, true
}

// fail logs the cause server-side and writes the envelope.
func (f *Factory) fail(c *gin.Context, op string, err error, status int, message string) {
	event := f.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = f.logger.Error()
	}
	event.Err(err).
		Str("op", op).
		Int("status", status).
		Str(requestIDKey, c.GetString(requestIDKey)).
		Msg(message)
	response.Error(c, status, message)
}

func (f *Factory) notFound() string { return f.cfg.Name + " not found" }

func (f *Factory) conflict() string { return f.cfg.Name + " with this value already exists" }
