package audit

import (
	"context"
	"log"

	"librarium/internal/domain"

	"gorm.io/gorm"
)

// Event kinds emitted by the auth core.
const (
	KindLoginSuccess   = "login_success"
	KindLoginFailure   = "login_failure"
	KindClientLocked   = "client_locked"
	KindTokenIssued    = "token_issued"
	KindTokenRevoked   = "token_revoked"
	KindTokenReused    = "token_reused"
	KindQuotaEviction  = "quota_eviction"
	KindPasswordChange = "password_change"
)

// Sink receives security events. Implementations must be fire-and-forget:
// a failing sink is logged and swallowed, it never fails the caller.
type Sink interface {
	Record(ctx context.Context, kind, subjectID, detail string)
}

// DBSink appends events to the activity_events table.
type DBSink struct {
	db *gorm.DB
}

func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

func (s *DBSink) Record(ctx context.Context, kind, subjectID, detail string) {
	event := domain.ActivityEvent{Kind: kind, SubjectID: subjectID, Detail: detail}
	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		log.Printf("audit: failed to record %s event: %v", kind, err)
	}
}

// LogSink writes events to the process log. Used in dev and as a fallback
// when no database sink is wired.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Record(_ context.Context, kind, subjectID, detail string) {
	log.Printf("audit: kind=%s subject=%s detail=%s", kind, subjectID, detail)
}
