package models

// ErrorResponse is the common error payload returned by handlers.
type ErrorResponse struct {
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// ExamMetadata is the exam context attached to a usage event. Opaque to the
// duplicate detection core beyond boundary validation.
type ExamMetadata struct {
	ExamName     string `json:"exam_name" validate:"required,min=1,max=200"`
	ExamType     string `json:"exam_type" validate:"required,max=50"`
	AcademicYear string `json:"academic_year" validate:"required,min=1,max=20"`
}
