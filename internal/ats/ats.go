// Package ats wires the applicant tracking entities onto the generic CRUD factory and adds
// the per-entity query routes (filters by parent, by status, group counts) and document files.
package ats

import (
	"github.com/gin-gonic/gin"
	"github.com/maxviazov/ats-service/internal/crud"
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/internal/validation"
	"github.com/rs/zerolog"
)

// Options carries the HTTP-facing limits shared by every entity.
type Options struct {
	DefaultLimit   int
	MaxLimit       int
	MaxUploadBytes int64
}

// API owns one crud.Factory per entity.
type API struct {
	factories map[string]*crud.Factory
	opts      Options
	logger    zerolog.Logger
}

func New(tables repository.Tables, opts Options, logger zerolog.Logger) *API {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	a := &API{
		factories: make(map[string]*crud.Factory),
		opts:      opts,
		logger:    logger.With().Str("module", "ats").Logger(),
	}
	for _, e := range Catalog() {
		schema := validation.New(e.Rules)
		a.factories[e.Resource] = crud.New(tables.Table(e.Table), crud.Config{
			Name:            e.Name,
			IDField:         e.Table.IDColumn,
			DefaultLimit:    opts.DefaultLimit,
			MaxLimit:        opts.MaxLimit,
			CreateValidator: schema,
			UpdateValidator: schema.Partial(),
		}, logger)
	}
	return a
}

// Factory returns the handlers of one resource, or nil.
func (a *API) Factory(resource string) *crud.Factory { return a.factories[resource] }

// Register mounts every resource under r (normally the /api group).
func (a *API) Register(r *gin.RouterGroup) {
	id := crud.ParseInt64
	text := crud.ParseString

	jobs := a.mount(r, Jobs)
	jobs.GET("/organization/:organization_id", a.Factory(Jobs.Resource).ListBy("organization_id", "organization_id", id))
	jobs.GET("/status/:status", a.Factory(Jobs.Resource).ListBy("status", "status", text))
	jobs.GET("/stats", a.Factory(Jobs.Resource).StatsBy("status"))

	a.mount(r, Organizations)
	a.mount(r, Applicants)

	apps := a.mount(r, Applications)
	apps.GET("/job/:job_id", a.Factory(Applications.Resource).ListBy("job_id", "job_id", id))
	apps.GET("/applicant/:applicant_id", a.Factory(Applications.Resource).ListBy("applicant_id", "applicant_id", id))
	apps.GET("/status/:status", a.Factory(Applications.Resource).ListBy("status", "status", text))
	apps.GET("/stats", a.Factory(Applications.Resource).StatsBy("status"))

	interviews := a.mount(r, Interviews)
	interviews.GET("/application/:application_id", a.Factory(Interviews.Resource).ListBy("application_id", "application_id", id))
	interviews.GET("/stats", a.Factory(Interviews.Resource).StatsBy("status"))

	tasks := a.mount(r, Tasks)
	tasks.GET("/status/:status", a.Factory(Tasks.Resource).ListBy("status", "status", text))
	tasks.GET("/stats", a.Factory(Tasks.Resource).StatsBy("status"))

	docs := a.mount(r, Documents)
	docs.GET("/applicant/:applicant_id", a.Factory(Documents.Resource).ListBy("applicant_id", "applicant_id", id))
	docs.POST("/upload", a.uploadDocument)
	docs.GET("/:id/download", a.downloadDocument)

	activity := a.mount(r, UserActivities)
	activity.GET("/user/:user_id", a.Factory(UserActivities.Resource).ListBy("user_id", "user_id", text))
}

func (a *API) mount(r *gin.RouterGroup, e Entity) *gin.RouterGroup {
	g := r.Group("/" + e.Resource)
	a.factories[e.Resource].Register(g)
	return g
}
