package models

import (
	"time"

	"gorm.io/datatypes"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

type QuestionStatus string

const (
	StatusActive   QuestionStatus = "Active"
	StatusBlocked  QuestionStatus = "Blocked"
	StatusArchived QuestionStatus = "Archived"
)

// Question is a single exam question scoped to one college. The same text may
// exist in several colleges; every such row shares the same fingerprint and a
// synchronized usage count (number of distinct colleges holding the text).
type Question struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Text string `json:"question_text" gorm:"type:text;not null;index" validate:"required"`

	// SHA-256 of the normalized text. Not unique on its own; uniqueness is
	// enforced per (fingerprint, college) among Active rows.
	Fingerprint string `json:"question_hash" gorm:"size:64;not null;index:idx_questions_fingerprint;uniqueIndex:idx_questions_fp_college,where:status = 'Active'"`

	Subject    string          `json:"subject" gorm:"size:200;not null;index"`
	Topic      *string         `json:"topic" gorm:"size:200;index"`
	Difficulty DifficultyLevel `json:"difficulty_level" gorm:"size:20;not null;index"`
	Marks      int             `json:"marks" gorm:"not null"`
	ExamType   string          `json:"exam_type" gorm:"size:50;not null;index"`
	College    string          `json:"college" gorm:"size:200;not null;index;uniqueIndex:idx_questions_fp_college,where:status = 'Active'"`

	// Embedding vector cached at creation/update time, stored as a JSON array.
	// Null when the embedding backend is not part of the deployment profile.
	Embedding datatypes.JSON `json:"-" gorm:"type:jsonb"`

	Status QuestionStatus `json:"status" gorm:"size:20;not null;default:Active;index"`

	// Denormalized count of distinct colleges holding this fingerprint.
	// Maintained exclusively by the duplicate resolution flow.
	UsageCount int        `json:"usage_count" gorm:"not null;default:0"`
	LastUsedAt *time.Time `json:"last_used_date"`

	CreatedAt time.Time `json:"created_date"`
	UpdatedAt time.Time `json:"updated_at"`

	UsageHistory []QuestionUsage `json:"-" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

// QuestionUsage records that a question (by fingerprint) was placed into an
// exam at a specific college. At most one row per (fingerprint, college) is
// counted; repeat recordings refresh UsedAt and the exam metadata.
type QuestionUsage struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"not null;index"`

	// Denormalized from the owning question so the ledger can aggregate
	// sibling usage without joining back through questions.
	Fingerprint string `json:"-" gorm:"size:64;not null;index;uniqueIndex:idx_usages_fp_college"`
	College     string `json:"college" gorm:"size:200;not null;index;uniqueIndex:idx_usages_fp_college"`

	ExamName     string `json:"exam_name" gorm:"size:200;not null"`
	ExamType     string `json:"exam_type" gorm:"size:50;not null"`
	AcademicYear string `json:"academic_year" gorm:"size:20;not null;index"`

	UsedAt time.Time `json:"date_used" gorm:"not null"`

	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
}

func (QuestionUsage) TableName() string { return "question_usages" }

// IsActive reports whether the question participates in duplicate checks.
func (q *Question) IsActive() bool { return q.Status == StatusActive }

func ValidDifficulty(d DifficultyLevel) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

func ValidStatus(s QuestionStatus) bool {
	switch s {
	case StatusActive, StatusBlocked, StatusArchived:
		return true
	}
	return false
}
