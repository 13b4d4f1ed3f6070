package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigurationError reports a quota configuration that is missing a
// required field or is internally inconsistent
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("insufficient configuration: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a roll number that is absent from the dataset
type NotFoundError struct {
	RollNo string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record found for roll number %s", e.RollNo)
}

// IsConfigurationError reports whether err wraps a ConfigurationError
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// WarningCode classifies a non-fatal data quality issue
type WarningCode string

const (
	WarnInvalidMarks     WarningCode = "INVALID_MARKS"
	WarnUnknownCategory  WarningCode = "UNKNOWN_CATEGORY"
	WarnUnknownGender    WarningCode = "UNKNOWN_GENDER"
	WarnDuplicateRollNo  WarningCode = "DUPLICATE_ROLL_NO"
	WarnIncompleteRow    WarningCode = "INCOMPLETE_ROW"
	WarnEmptyPool        WarningCode = "EMPTY_POOL"
	WarnQuotaDeviation   WarningCode = "QUOTA_DEVIATION"
	WarnQuotaSumMismatch WarningCode = "QUOTA_SUM_MISMATCH"
)

// Warning is a data quality issue absorbed by a documented fallback
type Warning struct {
	Code   WarningCode `json:"code" yaml:"code"`
	RollNo string      `json:"roll_no,omitempty" yaml:"roll_no,omitempty"`
	Detail string      `json:"detail" yaml:"detail"`
}

func (w Warning) String() string {
	if w.RollNo != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Code, w.RollNo, w.Detail)
	}
	return fmt.Sprintf("[%s] %s", w.Code, w.Detail)
}
