package errors

import (
	"fmt"
	"time"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Отсечки до транзакции: рейт-лимит и капча
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeVerificationFailed ErrorCode = "VERIFICATION_FAILED"

	// Ошибки допуска к участию
	ErrCodeGiveawayNotFound ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeGiveawayClosed   ErrorCode = "GIVEAWAY_CLOSED"
	ErrCodeCapacityExceeded ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeDuplicateEntry   ErrorCode = "DUPLICATE_ENTRY"
	ErrCodeNotEligible      ErrorCode = "NOT_ELIGIBLE"

	// Ошибки выбора победителя
	ErrCodeAlreadyDecided ErrorCode = "ALREADY_DECIDED"
	ErrCodeNoParticipants ErrorCode = "NO_PARTICIPANTS"

	// Ошибки инфраструктуры
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalAPI   ErrorCode = "EXTERNAL_API_ERROR"
)

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
	Cause     error                  `json:"-"`
}

// Error возвращает строковое представление ошибки
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsAbuseRejection: частые, ожидаемые отказы антиабьюз-слоя.
// Логируются на info/warn, никогда как error.
func (e *AppError) IsAbuseRejection() bool {
	return e.Code == ErrCodeRateLimited ||
		e.Code == ErrCodeVerificationFailed ||
		e.Code == ErrCodeDuplicateEntry
}

// IsEligibilityRejection проверяет отказ по условиям розыгрыша
func (e *AppError) IsEligibilityRejection() bool {
	return e.Code == ErrCodeGiveawayClosed ||
		e.Code == ErrCodeCapacityExceeded ||
		e.Code == ErrCodeNotEligible
}

// IsStateConflict проверяет конфликт состояния при выборе победителя
func (e *AppError) IsStateConflict() bool {
	return e.Code == ErrCodeAlreadyDecided || e.Code == ErrCodeNoParticipants
}

// IsInternal проверяет, является ли ошибка внутренней ошибкой.
// Детали таких ошибок не должны уходить клиенту.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeDatabaseError ||
		e.Code == ErrCodeExternalAPI
}

// WithDetail добавляет детальную информацию к ошибке
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID добавляет ID запроса к ошибке
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New создает новую ошибку приложения
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf оборачивает существующую ошибку с форматированием
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Конструкторы для часто используемых ошибок

// NewValidationError создает ошибку валидации
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewGiveawayNotFoundError создает ошибку "гив не найден"
func NewGiveawayNotFoundError(giveawayID string) *AppError {
	return New(ErrCodeGiveawayNotFound, fmt.Sprintf("Giveaway not found: %s", giveawayID)).
		WithDetail("giveaway_id", giveawayID)
}

// NewRateLimitedError создает отказ по лимиту запросов
func NewRateLimitedError(retryAfter time.Duration) *AppError {
	return New(ErrCodeRateLimited, "Too many requests, please try again later").
		WithDetail("retry_after_seconds", int(retryAfter.Seconds()))
}

// NewDuplicateEntryError создает отказ по повторному участию.
// method называет сигнал, по которому найден дубликат: handle или fingerprint.
func NewDuplicateEntryError(method string) *AppError {
	return New(ErrCodeDuplicateEntry, fmt.Sprintf("You have already joined this giveaway (matched by %s)", method)).
		WithDetail("method", method)
}

// NewDatabaseError создает ошибку базы данных
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// NewForbiddenError создает ошибку доступа
func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, fmt.Sprintf("Forbidden: %s", reason)).
		WithDetail("reason", reason)
}

// AsAppError приводит ошибку к AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}
