package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicate(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !isDuplicate(dup) {
		t.Fatalf("1062 should be treated as duplicate")
	}
	if isDuplicate(&mysql.MySQLError{Number: 1146}) {
		t.Fatalf("1146 is not a duplicate")
	}
	if isDuplicate(errors.New("boom")) || isDuplicate(nil) {
		t.Fatalf("plain errors are not duplicates")
	}
}

func TestJournalStore(t *testing.T) {
	dsn := os.Getenv("FUZZ_MYSQL_DSN")
	if dsn == "" {
		t.Skip("skip: FUZZ_MYSQL_DSN not set")
	}
	db, err := InitMySQL(dsn)
	if err != nil {
		t.Skipf("skip: mysql not available: %v", err)
	}
	ctx := context.Background()
	s := NewJournalStore(db)
	sessionID := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { db.Where("session_id = ?", sessionID).Delete(&Application{}) })

	for rev := uint64(1); rev <= 3; rev++ {
		if err := s.SaveApplication(ctx, sessionID, rev, fmt.Sprintf("o-%d", rev), "http", []byte(`{"ops":[]}`), 0, 1); err != nil {
			t.Fatalf("SaveApplication rev=%d: %v", rev, err)
		}
	}
	// 重复版本直接忽略
	if err := s.SaveApplication(ctx, sessionID, 2, "o-dup", "http", []byte(`{"ops":[]}`), 0, 1); err != nil {
		t.Fatalf("duplicate should be ignored, got %v", err)
	}

	rows, err := s.ListApplications(ctx, sessionID, 1, 0)
	if err != nil {
		t.Fatalf("ListApplications: %v", err)
	}
	if len(rows) != 2 || rows[0].Revision != 2 || rows[1].Revision != 3 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].OperationID != "o-2" {
		t.Fatalf("duplicate overwrote the original row: %+v", rows[0])
	}
}
