//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"testing"

	"student-result-system/internal/db"
	"student-result-system/internal/model"
	"student-result-system/internal/testutil/testdb"
)

func TestMySQLReplaceAndStats(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.StartMySQL(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	repo := db.NewRepository(h.DB)
	u := &model.User{Username: "admin", PasswordHash: "x"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}

	batch := []model.StudentRecord{record("A", "a@x.com", f(475)), record("B", "b@x.com", f(275))}
	if _, err := repo.ReplaceStudents(ctx, u.ID, batch); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ReplaceStudents(ctx, u.ID, batch[:1]); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListStudents(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d students, want 1", len(list))
	}

	stats, err := repo.StudentStats(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalStudents != 1 || stats.AvgTotal != 475 {
		t.Fatalf("stats = %+v", stats)
	}
}
