package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"

	// Жизненный цикл nonce
	ErrCodeNotReady    ErrorCode = "NOT_READY"
	ErrCodeAlreadyUsed ErrorCode = "ALREADY_USED"
	ErrCodeRevoked     ErrorCode = "REVOKED"
	ErrCodeExpired     ErrorCode = "EXPIRED"

	// Проверка виджета Telegram
	ErrCodeBadSignature ErrorCode = "BAD_SIGNATURE"
	ErrCodeStale        ErrorCode = "STALE"

	// Проверка подписи кошелька
	ErrCodeSignatureRecoverFailed ErrorCode = "SIGNATURE_RECOVER_FAILED"
	ErrCodeAddressMismatch        ErrorCode = "ADDRESS_MISMATCH"

	// Связка с бэкендом авторизации
	ErrCodeCreateUserFailed ErrorCode = "CREATE_USER_FAILED"
	ErrCodeAuthFailed       ErrorCode = "AUTH_FAILED"

	// Ошибки хранилища
	ErrCodeDatabaseError ErrorCode = "DB_ERROR"
)

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
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

// IsInternal проверяет, является ли ошибка внутренней ошибкой
func (e *AppError) IsInternal() bool {
	switch e.Code {
	case ErrCodeInternal, ErrCodeDatabaseError, ErrCodeCreateUserFailed, ErrCodeAuthFailed:
		return true
	}
	return false
}

// IsUnauthorized проверяет, является ли ошибка ошибкой проверки подлинности
func (e *AppError) IsUnauthorized() bool {
	switch e.Code {
	case ErrCodeUnauthorized, ErrCodeBadSignature, ErrCodeStale, ErrCodeAddressMismatch:
		return true
	}
	return false
}

// HTTPStatus maps the error code onto the response status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeBadRequest, ErrCodeSignatureRecoverFailed:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeBadSignature, ErrCodeStale, ErrCodeAddressMismatch:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeNotReady, ErrCodeAlreadyUsed, ErrCodeRevoked:
		return http.StatusConflict
	case ErrCodeExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
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

// NewBadRequestError создает ошибку некорректного запроса
func NewBadRequestError(field, reason string) *AppError {
	return New(ErrCodeBadRequest, fmt.Sprintf("Invalid field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewUnauthorizedError создает ошибку авторизации
func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, fmt.Sprintf("Unauthorized: %s", reason)).
		WithDetail("reason", reason)
}

// NewDatabaseError создает ошибку базы данных
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// AsAppError приводит ошибку к AppError, в том числе обёрнутую через %w
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil {
		return nil, false
	}
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of an AppError anywhere in the chain, or an empty code.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}
