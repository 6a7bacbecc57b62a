package store

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Application 是一次成功驱动编辑器的记录，(session_id, revision) 唯一
type Application struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	SessionID   string    `gorm:"size:64;not null;uniqueIndex:uk_session_rev"`
	Revision    uint64    `gorm:"not null;uniqueIndex:uk_session_rev"`
	OperationID string    `gorm:"size:64;not null"`
	Source      string    `gorm:"size:16;not null"`
	Ops         []byte    `gorm:"type:json;not null"`
	CursorPos   int       `gorm:"not null"`
	DocLength   int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (Application) TableName() string { return "fuzz_applications" }

type JournalStore struct{ db *gorm.DB }

func NewJournalStore(db *gorm.DB) *JournalStore {
	return &JournalStore{db: db}
}

func (s *JournalStore) SaveApplication(ctx context.Context, sessionID string, rev uint64, operationID string, source string, ops []byte, cursorPos, docLength int) error {
	err := s.db.WithContext(ctx).Create(&Application{
		SessionID:   sessionID,
		Revision:    rev,
		OperationID: operationID,
		Source:      source,
		Ops:         ops,
		CursorPos:   cursorPos,
		DocLength:   docLength,
	}).Error
	if isDuplicate(err) {
		return nil
	}
	return err
}

// ListApplications 按版本顺序返回 fromRevision 之后的记录
func (s *JournalStore) ListApplications(ctx context.Context, sessionID string, fromRevision uint64, limit int) ([]Application, error) {
	q := s.db.WithContext(ctx).
		Where("session_id = ? AND revision > ?", sessionID, fromRevision).
		Order("revision ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Application
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
