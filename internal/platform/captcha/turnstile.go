// Package captcha оборачивает внешнюю проверку человечности (Cloudflare
// Turnstile). Когда секрет не сконфигурирован, верификация выключена как
// фича, и вызывающая сторона пропускает ее целиком.
package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"giveaway-engine-backend/internal/common/config"
	"giveaway-engine-backend/internal/common/logger"
)

const (
	// CodeInternalError — сетевой сбой, таймаут или не-2xx ответ сервиса.
	// Проверка fail-closed: такой результат блокирует допуск.
	CodeInternalError = "internal-error"
	// CodeTimeoutOrDuplicate — токен уже использован или протух;
	// пользователю можно предложить повторить с новым токеном.
	CodeTimeoutOrDuplicate = "timeout-or-duplicate"
)

// Result — транзиентный результат одной проверки, никуда не сохраняется
type Result struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Retryable сообщает, имеет ли смысл повторить с новым токеном
func (r *Result) Retryable() bool {
	for _, code := range r.ErrorCodes {
		if code == CodeTimeoutOrDuplicate {
			return true
		}
	}
	return false
}

// Verifier — синхронная проверка капча-токена
type Verifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) *Result
}

// NewVerifier выбирает реализацию по наличию секрета в конфигурации
func NewVerifier(cfg *config.Config) Verifier {
	if cfg.Turnstile.Secret == "" {
		return &DisabledVerifier{}
	}
	return NewTurnstileVerifier(cfg.Turnstile.Secret, cfg.Turnstile.Endpoint, cfg.Turnstile.Timeout)
}

// DisabledVerifier — верификация выключена в этом деплое
type DisabledVerifier struct{}

func (*DisabledVerifier) Enabled() bool { return false }

// Verify у выключенного верификатора вызываться не должен; на всякий
// случай отвечает отказом, а не тихим пропуском
func (*DisabledVerifier) Verify(context.Context, string, string) *Result {
	return &Result{Success: false, ErrorCodes: []string{CodeInternalError}}
}

// TurnstileVerifier ходит в siteverify эндпоинт Cloudflare Turnstile
type TurnstileVerifier struct {
	secret   string
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

func NewTurnstileVerifier(secret, endpoint string, timeout time.Duration) *TurnstileVerifier {
	return &TurnstileVerifier{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		log:      logger.With("captcha"),
	}
}

func (v *TurnstileVerifier) Enabled() bool { return true }

// Verify выполняет синхронный запрос к сервису верификации.
// Любой сбой инфраструктуры (сеть, таймаут, не-2xx, битый JSON)
// превращается в отказ с кодом internal-error — fail closed.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) *Result {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		v.log.Error().Err(err).Msg("Failed to build siteverify request")
		return failClosed()
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Error().Err(err).Msg("Siteverify request failed")
		return failClosed()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		v.log.Error().Int("status", resp.StatusCode).Msg("Siteverify returned non-2xx status")
		return failClosed()
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		v.log.Error().Err(err).Msg("Failed to decode siteverify response")
		return failClosed()
	}

	return &result
}

func failClosed() *Result {
	return &Result{Success: false, ErrorCodes: []string{CodeInternalError}}
}
