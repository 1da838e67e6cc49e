package validator

import (
	"strings"

	"github.com/edustack/question-catalog-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateQuestionCreate validates question creation business rules
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	return errors
}

// ValidateQuestionUpdate validates question update business rules
func (bv *BusinessValidator) ValidateQuestionUpdate(req *QuestionUpdateRequest, existing *models.Question) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// Archived questions are read-only apart from status changes
	if existing != nil && existing.Status == models.StatusArchived {
		if req.Text != nil || req.Subject != nil || req.Marks != nil {
			errors = append(errors, ValidationError{
				Field:   "status",
				Message: "archived questions cannot be edited",
				Value:   existing.Status,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateSimilarityCheck validates a dry-run duplicate check request
func (bv *BusinessValidator) ValidateSimilarityCheck(req *SimilarityCheckRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateUsageRecord validates a usage recording request
func (bv *BusinessValidator) ValidateUsageRecord(req *UsageRecordRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateUsageByText validates a text-resolved usage recording request
func (bv *BusinessValidator) ValidateUsageByText(req *UsageByTextRequest) ValidationErrors {
	return bv.Validate(req)
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Question text validation (at least 10 characters after trimming)
	bv.validate.RegisterValidation("question_text", func(fl validator.FieldLevel) bool {
		text := strings.TrimSpace(fl.Field().String())
		return len(text) >= 10 && len(text) <= 10000
	})

	// difficulty level validation
	bv.validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		return models.ValidDifficulty(models.DifficultyLevel(fl.Field().String()))
	})

	// question status validation
	bv.validate.RegisterValidation("question_status", func(fl validator.FieldLevel) bool {
		return models.ValidStatus(models.QuestionStatus(fl.Field().String()))
	})

	// Marks validation (strictly positive)
	bv.validate.RegisterValidation("marks_range", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() > 0
	})
}
