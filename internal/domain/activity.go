package domain

import "time"

// ActivityEvent is one row in the security activity log. The auth core only
// appends to this table; nothing on a request path ever reads it.
type ActivityEvent struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Kind      string    `json:"kind" gorm:"index;size:64;not null"`
	SubjectID string    `json:"subject_id" gorm:"index;size:128"`
	Detail    string    `json:"detail,omitempty" gorm:"size:1024"`
	CreatedAt time.Time `json:"created_at"`
}
