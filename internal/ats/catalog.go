package ats

import (
	"github.com/maxviazov/ats-service/internal/repository"
	"github.com/maxviazov/ats-service/internal/validation"
)

const (
	rfc3339 = "datetime=2006-01-02T15:04:05Z07:00"
	isoDate = "datetime=2006-01-02"
)

// Entity binds a REST resource to its table and create rules.
type Entity struct {
	// Resource is the path segment under /api.
	Resource string
	// Name is the display name used in messages.
	Name  string
	Table repository.Table
	Rules validation.Rules
}

func stamped(name, id string) repository.Table {
	return repository.Table{Name: name, IDColumn: id, CreatedAtColumn: "created_at", UpdatedAtColumn: "updated_at"}
}

var (
	Organizations = Entity{
		Resource: "organizations",
		Name:     "Organization",
		Table: func() repository.Table {
			t := stamped("organizations", "organization_id")
			t.Unique = [][]string{{"name"}}
			return t
		}(),
		Rules: validation.Rules{
			"name":     "required,text,max=200",
			"industry": "text,max=100",
			"website":  "text,url",
			"location": "text,max=200",
		},
	}

	Jobs = Entity{
		Resource: "jobs",
		Name:     "Job",
		Table: func() repository.Table {
			t := stamped("jobs", "job_id")
			t.References = map[string]string{"organization_id": "organizations"}
			return t
		}(),
		Rules: validation.Rules{
			"organization_id": "required,integer,min=1",
			"title":           "required,text,max=200",
			"description":     "text",
			"location":        "text,max=200",
			"employment_type": "text,oneof=full_time part_time contract internship temporary",
			"salary_min":      "integer,gte=0",
			"salary_max":      "integer,gte=0",
			"status":          "text,oneof=open closed draft on_hold",
			"posted_at":       "text," + rfc3339,
			"closing_date":    "text," + isoDate,
		},
	}

	Applicants = Entity{
		Resource: "applicants",
		Name:     "Applicant",
		Table: func() repository.Table {
			t := stamped("applicants", "applicant_id")
			t.Unique = [][]string{{"email"}}
			return t
		}(),
		Rules: validation.Rules{
			"first_name":   "required,text,max=100",
			"last_name":    "required,text,max=100",
			"email":        "required,text,email",
			"phone":        "text,max=30",
			"resume_url":   "text,url",
			"linkedin_url": "text,url",
			"source":       "text,max=100",
		},
	}

	Applications = Entity{
		Resource: "applications",
		Name:     "Application",
		Table: func() repository.Table {
			t := stamped("applications", "application_id")
			t.Unique = [][]string{{"applicant_id", "job_id"}}
			t.References = map[string]string{"applicant_id": "applicants", "job_id": "jobs"}
			return t
		}(),
		Rules: validation.Rules{
			"applicant_id": "required,integer,min=1",
			"job_id":       "required,integer,min=1",
			"status":       "text,oneof=applied screening interviewing offered hired rejected withdrawn",
			"cover_letter": "text",
			"applied_at":   "text," + rfc3339,
		},
	}

	Interviews = Entity{
		Resource: "interviews",
		Name:     "Interview",
		Table: func() repository.Table {
			t := stamped("interviews", "interview_id")
			t.References = map[string]string{"application_id": "applications"}
			return t
		}(),
		Rules: validation.Rules{
			"application_id":   "required,integer,min=1",
			"scheduled_at":     "required,text," + rfc3339,
			"duration_minutes": "integer,min=1,max=1440",
			"interview_type":   "text,oneof=phone video onsite technical behavioral panel",
			"interviewer":      "text,max=200",
			"location":         "text,max=200",
			"status":           "text,oneof=scheduled completed cancelled no_show",
			"feedback":         "text",
			"rating":           "integer,min=1,max=5",
		},
	}

	Tasks = Entity{
		Resource: "tasks",
		Name:     "Task",
		Table: func() repository.Table {
			t := stamped("tasks", "task_id")
			t.References = map[string]string{"application_id": "applications"}
			return t
		}(),
		Rules: validation.Rules{
			"title":          "required,text,max=200",
			"description":    "text",
			"assignee":       "text,max=200",
			"application_id": "integer,min=1",
			"due_date":       "text," + rfc3339,
			"priority":       "text,oneof=low medium high urgent",
			"status":         "text,oneof=todo in_progress done",
		},
	}

	Documents = Entity{
		Resource: "documents",
		Name:     "Document",
		Table: func() repository.Table {
			t := stamped("documents", "document_id")
			t.References = map[string]string{"applicant_id": "applicants", "application_id": "applications"}
			return t
		}(),
		Rules: validation.Rules{
			"applicant_id":   "required,integer,min=1",
			"application_id": "integer,min=1",
			"file_name":      "required,text,max=255",
			"mime_type":      "text,max=100",
			"size_bytes":     "integer,gte=0",
			"content":        "required,text,base64",
		},
	}

	UserActivities = Entity{
		Resource: "user-activities",
		Name:     "User activity",
		Table: repository.Table{
			Name:            "user_activities",
			IDColumn:        "activity_id",
			CreatedAtColumn: "occurred_at",
		},
		Rules: validation.Rules{
			"user_id":     "required,text,max=100",
			"action":      "required,text,max=100",
			"entity_type": "text,max=100",
			"entity_id":   "integer,min=1",
			"details":     "object",
			"occurred_at": "text," + rfc3339,
		},
	}
)

// Catalog lists every entity in registration order. Referenced tables come first
// so the memory backend knows them before any reference check runs.
func Catalog() []Entity {
	return []Entity{Organizations, Jobs, Applicants, Applications, Interviews, Tasks, Documents, UserActivities}
}
