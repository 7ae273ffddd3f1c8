// Package contract holds behaviour suites every repository backend must pass.
package contract

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/internal/repository"
)

// Factory returns a fresh, empty backend with the baseline schema applied, plus a cleanup func.
type Factory func(t *testing.T) (repository.Tables, func())

// The suites run against two tables of the baseline schema: organizations (unique name)
// and jobs (references organizations).
var (
	Organizations = repository.Table{
		Name:            "organizations",
		IDColumn:        "organization_id",
		CreatedAtColumn: "created_at",
		UpdatedAtColumn: "updated_at",
		Unique:          [][]string{{"name"}},
	}
	Jobs = repository.Table{
		Name:            "jobs",
		IDColumn:        "job_id",
		CreatedAtColumn: "created_at",
		UpdatedAtColumn: "updated_at",
		References:      map[string]string{"organization_id": "organizations"},
	}
)

// RunStoreContract exercises every repository.Store operation and its error conditions.
func RunStoreContract(t *testing.T, makeTables Factory) {
	t.Helper()

	setup := func(t *testing.T) (orgs, jobs repository.Store) {
		t.Helper()
		tables, cleanup := makeTables(t)
		t.Cleanup(cleanup)
		return tables.Table(Organizations), tables.Table(Jobs)
	}

	t.Run("create_and_find_unique", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		created, err := orgs.Create(ctx, model.Record{"name": "Acme", "industry": "Software"})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		id := ID(t, created["organization_id"])
		if id <= 0 {
			t.Fatalf("expected server-assigned id, got %v", created["organization_id"])
		}
		got, err := orgs.FindUnique(ctx, id)
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if got["name"] != "Acme" || got["industry"] != "Software" {
			t.Fatalf("mismatch: %+v", got)
		}
		if got["created_at"] == nil {
			t.Fatalf("expected created_at to be stamped: %+v", got)
		}
	})

	t.Run("find_unique_not_found", func(t *testing.T) {
		orgs, _ := setup(t)
		_, err := orgs.FindUnique(context.Background(), int64(999999))
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("find_many_pagination_and_count", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		var lastID int64
		for i := 0; i < 7; i++ {
			rec, err := orgs.Create(ctx, model.Record{"name": fmt.Sprintf("Org-%d", i)})
			if err != nil {
				t.Fatalf("seed: %v", err)
			}
			lastID = ID(t, rec["organization_id"])
		}

		page, err := orgs.FindMany(ctx, repository.FindArgs{Take: 3, OrderBy: "organization_id", Desc: true})
		if err != nil {
			t.Fatalf("find many: %v", err)
		}
		if len(page) != 3 {
			t.Fatalf("expected 3 records, got %d", len(page))
		}
		if got := ID(t, page[0]["organization_id"]); got != lastID {
			t.Fatalf("expected newest first (%d), got %d", lastID, got)
		}

		tail, err := orgs.FindMany(ctx, repository.FindArgs{Skip: 6, Take: 3, OrderBy: "organization_id", Desc: true})
		if err != nil {
			t.Fatalf("find many tail: %v", err)
		}
		if len(tail) != 1 {
			t.Fatalf("expected 1 record on last page, got %d", len(tail))
		}

		total, err := orgs.Count(ctx, nil)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if total != 7 {
			t.Fatalf("expected total 7, got %d", total)
		}
	})

	t.Run("where_filter", func(t *testing.T) {
		orgs, jobs := setup(t)
		ctx := context.Background()
		orgID := seedOrganization(t, orgs, "Filter Inc")
		for _, status := range []string{"open", "open", "closed"} {
			if _, err := jobs.Create(ctx, model.Record{"organization_id": orgID, "title": "Engineer", "status": status}); err != nil {
				t.Fatalf("seed job: %v", err)
			}
		}
		where := repository.Where{"status": "open"}
		open, err := jobs.FindMany(ctx, repository.FindArgs{Take: 10, Where: where})
		if err != nil {
			t.Fatalf("find many: %v", err)
		}
		n, err := jobs.Count(ctx, where)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if len(open) != 2 || n != 2 {
			t.Fatalf("expected 2 open jobs, got len=%d count=%d", len(open), n)
		}
		for _, j := range open {
			if j["status"] != "open" {
				t.Fatalf("filter leaked record: %+v", j)
			}
		}
	})

	t.Run("create_unique_violation", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		seedOrganization(t, orgs, "Dup")
		_, err := orgs.Create(ctx, model.Record{"name": "Dup"})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		total, err := orgs.Count(ctx, nil)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if total != 1 {
			t.Fatalf("expected first record untouched and no partial write, total=%d", total)
		}
	})

	t.Run("create_fk_violation", func(t *testing.T) {
		_, jobs := setup(t)
		_, err := jobs.Create(context.Background(), model.Record{"organization_id": int64(9999999), "title": "Ghost"})
		if !errors.Is(err, repository.ErrRelatedNotFound) {
			t.Fatalf("expected ErrRelatedNotFound, got %v", err)
		}
	})

	t.Run("create_with_explicit_id", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		explicit := seedOrganization(t, orgs, "Seed") + 1000

		rec, err := orgs.Create(ctx, model.Record{"organization_id": explicit, "name": "Explicit"})
		if err != nil {
			t.Fatalf("create with id failed: %v", err)
		}
		if got := ID(t, rec["organization_id"]); got != explicit {
			t.Fatalf("expected id %d, got %d", explicit, got)
		}

		// later server-assigned ids must not collide with the explicit one
		for i := 0; i < 3; i++ {
			next, err := orgs.Create(ctx, model.Record{"name": fmt.Sprintf("After %d", i)})
			if err != nil {
				t.Fatalf("create after explicit id failed: %v", err)
			}
			if got := ID(t, next["organization_id"]); got <= explicit {
				t.Fatalf("expected id above %d, got %d", explicit, got)
			}
		}

		_, err = orgs.Create(ctx, model.Record{"organization_id": explicit, "name": "Clash"})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("partial_update", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		created, err := orgs.Create(ctx, model.Record{"name": "Partial", "industry": "Retail", "location": "Berlin"})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		id := ID(t, created["organization_id"])

		updated, err := orgs.Update(ctx, id, model.Record{"industry": "Logistics", "organization_id": id + 1000})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated["industry"] != "Logistics" {
			t.Fatalf("field not updated: %+v", updated)
		}
		if updated["name"] != "Partial" || updated["location"] != "Berlin" {
			t.Fatalf("unspecified fields changed: %+v", updated)
		}
		if got := ID(t, updated["organization_id"]); got != id {
			t.Fatalf("identifier rewritten: want %d got %d", id, got)
		}
	})

	t.Run("update_not_found", func(t *testing.T) {
		orgs, _ := setup(t)
		_, err := orgs.Update(context.Background(), int64(999999), model.Record{"industry": "None"})
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("update_unique_violation", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		seedOrganization(t, orgs, "First")
		second := seedOrganization(t, orgs, "Second")
		_, err := orgs.Update(ctx, second, model.Record{"name": "First"})
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		got, err := orgs.FindUnique(ctx, second)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got["name"] != "Second" {
			t.Fatalf("failed update leaked a write: %+v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		orgs, _ := setup(t)
		ctx := context.Background()
		id := seedOrganization(t, orgs, "Doomed")
		deleted, err := orgs.Delete(ctx, id)
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if ID(t, deleted["organization_id"]) != id {
			t.Fatalf("unexpected deleted record: %+v", deleted)
		}
		if _, err := orgs.FindUnique(ctx, id); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if _, err := orgs.Delete(ctx, id); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("delete_referenced_row_fails", func(t *testing.T) {
		orgs, jobs := setup(t)
		ctx := context.Background()
		orgID := seedOrganization(t, orgs, "Parent")
		if _, err := jobs.Create(ctx, model.Record{"organization_id": orgID, "title": "Child"}); err != nil {
			t.Fatalf("seed job: %v", err)
		}
		if _, err := orgs.Delete(ctx, orgID); !errors.Is(err, repository.ErrRelatedNotFound) {
			t.Fatalf("expected ErrRelatedNotFound, got %v", err)
		}
	})

	t.Run("group_count", func(t *testing.T) {
		orgs, jobs := setup(t)
		ctx := context.Background()
		orgID := seedOrganization(t, orgs, "Stats")
		for _, status := range []string{"open", "closed", "open", "draft", "open"} {
			if _, err := jobs.Create(ctx, model.Record{"organization_id": orgID, "title": "Role", "status": status}); err != nil {
				t.Fatalf("seed job: %v", err)
			}
		}
		groups, err := jobs.GroupCount(ctx, "status", repository.Where{"organization_id": orgID})
		if err != nil {
			t.Fatalf("group count: %v", err)
		}
		counts := map[string]int64{}
		for _, g := range groups {
			counts[fmt.Sprint(g.Value)] = g.Count
		}
		if counts["open"] != 3 || counts["closed"] != 1 || counts["draft"] != 1 || len(counts) != 3 {
			t.Fatalf("unexpected groups: %+v", counts)
		}
	})
}

func seedOrganization(t *testing.T, orgs repository.Store, name string) int64 {
	t.Helper()
	rec, err := orgs.Create(context.Background(), model.Record{"name": name})
	if err != nil {
		t.Fatalf("seed organization %q: %v", name, err)
	}
	return ID(t, rec["organization_id"])
}

// ID normalises identifier values returned by the different drivers.
func ID(t *testing.T, v any) int64 {
	t.Helper()
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	t.Fatalf("unexpected identifier type %T (%v)", v, v)
	return 0
}
