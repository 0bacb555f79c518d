package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"giveaway-engine-backend/internal/common/errors"
)

// ErrorHandler middleware для обработки паник
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		log.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID)

		sendErrorResponse(c, appErr, log)
	})
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
}

// RespondError переводит ошибку в JSON-ответ с корректным статусом.
// Внутренние детали (текст запроса, стек) наружу не уходят.
func RespondError(c *gin.Context, log zerolog.Logger, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Unexpected error")
	}

	sendErrorResponse(c, appErr, log)
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError, log zerolog.Logger) {
	requestID := GetRequestID(c)
	appErr.WithRequestID(requestID)

	logError(appErr, log, c)

	// Категория (4): наружу уходит только общий текст и request_id для корреляции
	if appErr.IsInternal() {
		appErr = errors.New(appErr.Code, "Internal error, please try again later").
			WithRequestID(requestID)
	}

	c.AbortWithStatusJSON(getHTTPStatusCode(appErr), ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// getHTTPStatusCode возвращает HTTP статус код для ошибки
func getHTTPStatusCode(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeGiveawayNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeVerificationFailed:
		return http.StatusForbidden
	case errors.ErrCodeDuplicateEntry, errors.ErrCodeAlreadyDecided:
		return http.StatusConflict
	case errors.ErrCodeGiveawayClosed, errors.ErrCodeCapacityExceeded:
		return http.StatusGone
	case errors.ErrCodeNotEligible:
		return http.StatusForbidden
	case errors.ErrCodeNoParticipants:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// logError логирует ошибку с контекстом: уровень зависит от категории
func logError(appErr *errors.AppError, log zerolog.Logger, c *gin.Context) {
	ev := log.Error()
	switch {
	case appErr.IsAbuseRejection():
		// Ожидаемые отказы — warn, чтобы мониторить паттерны абьюза
		ev = log.Warn()
	case appErr.IsEligibilityRejection(), appErr.IsStateConflict():
		ev = log.Info()
	case appErr.Code == errors.ErrCodeValidation, appErr.Code == errors.ErrCodeNotFound,
		appErr.Code == errors.ErrCodeGiveawayNotFound:
		ev = log.Info()
	}

	ev = ev.
		Str("request_id", GetRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code))

	if appErr.Cause != nil {
		ev = ev.Err(appErr.Cause)
	}

	ev.Msg(appErr.Message)
}

// GetRequestID получает ID запроса из контекста
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}
