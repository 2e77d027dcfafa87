package services

import (
	"encoding/json"
	"testing"

	"fxjournal/internal/models"
	"fxjournal/internal/pagination"
	"fxjournal/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	svc.Log("user-1", models.AuditActionCreate, models.AuditResourceTrade, "trade-1", "127.0.0.1",
		map[string]any{"symbol": "EURUSD"})
	svc.Log("user-1", models.AuditActionClear, models.AuditResourceTrade, "", "127.0.0.1", nil)

	var entries []models.AuditLog
	db.Order("created_at ASC").Find(&entries)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	var changes map[string]any
	if err := json.Unmarshal(entries[0].Changes, &changes); err != nil {
		t.Fatalf("changes should be valid JSON: %v", err)
	}
	if changes["symbol"] != "EURUSD" {
		t.Errorf("expected symbol change, got %v", changes)
	}
	if entries[1].Action != models.AuditActionClear || len(entries[1].Changes) != 0 {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestAuditLog_FailureDoesNotPanic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)
	testutil.TeardownTestDB(t, db)

	// The database is closed; Log must swallow the error.
	svc.Log("user-1", models.AuditActionDelete, models.AuditResourceTrade, "trade-1", "", nil)
}

func TestAuditList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)

	for i := 0; i < 3; i++ {
		svc.Log("user-1", models.AuditActionCreate, models.AuditResourceTrade, "", "", nil)
	}
	svc.Log("user-1", models.AuditActionDelete, models.AuditResourceTrade, "", "", nil)
	svc.Log("user-2", models.AuditActionCreate, models.AuditResourceTrade, "", "", nil)

	t.Run("all actions", func(t *testing.T) {
		page, err := svc.List("user-1", "", pagination.PageRequest{PageSize: 3})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.TotalItems != 4 || len(page.Data) != 3 || page.TotalPages != 2 {
			t.Errorf("unexpected page: total=%d len=%d pages=%d", page.TotalItems, len(page.Data), page.TotalPages)
		}
	})

	t.Run("one action", func(t *testing.T) {
		page, err := svc.List("user-1", models.AuditActionDelete, pagination.PageRequest{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.TotalItems != 1 || page.Data[0].Action != models.AuditActionDelete {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := svc.List("", "", pagination.PageRequest{})
		testutil.AssertAppError(t, err, "UNAUTHORIZED")
	})
}
