package validation

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

const (
	// Максимальные длины для различных полей
	MaxGuestNameLength   = 100
	MaxHandleLength      = 33 // @ + 32 символа
	MaxFingerprintLength = 128

	// Минимальные длины
	MinGuestNameLength   = 1
	MinFingerprintLength = 16
)

// Telegram username regex (допускает буквы, цифры, подчеркивания, 5-32 символа)
var telegramHandleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{5,32}$`)

// Fingerprint — непрозрачный хэш клиентских сигналов, hex или base64url
var fingerprintRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// NormalizeHandle приводит telegram handle к каноническому виду:
// без пробелов, в нижнем регистре, с ведущим @.
// MyUser123 и @myuser123 после нормализации идентичны.
func NormalizeHandle(handle string) string {
	handle = strings.TrimSpace(handle)
	handle = strings.TrimPrefix(handle, "@")
	if handle == "" {
		return ""
	}
	return "@" + strings.ToLower(handle)
}

// ValidateHandle проверяет telegram handle (до или после нормализации)
func ValidateHandle(handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return fmt.Errorf("telegram handle cannot be empty")
	}

	if len(handle) > MaxHandleLength {
		return fmt.Errorf("telegram handle cannot exceed %d characters", MaxHandleLength)
	}

	handle = strings.TrimPrefix(handle, "@")
	if !telegramHandleRegex.MatchString(handle) {
		return fmt.Errorf("telegram handle must contain only letters, numbers, and underscores, 5-32 characters")
	}

	return nil
}

// ValidateGuestName проверяет имя гостя
func ValidateGuestName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < MinGuestNameLength {
		return fmt.Errorf("guest name cannot be empty")
	}

	if len(name) > MaxGuestNameLength {
		return fmt.Errorf("guest name cannot exceed %d characters", MaxGuestNameLength)
	}

	return nil
}

// ValidateFingerprint проверяет клиентский fingerprint.
// Содержимое непрозрачно, проверяем только форму.
func ValidateFingerprint(fingerprint string) error {
	if fingerprint == "" {
		return fmt.Errorf("fingerprint cannot be empty")
	}

	if len(fingerprint) < MinFingerprintLength || len(fingerprint) > MaxFingerprintLength {
		return fmt.Errorf("fingerprint must be between %d and %d characters", MinFingerprintLength, MaxFingerprintLength)
	}

	if !fingerprintRegex.MatchString(fingerprint) {
		return fmt.Errorf("fingerprint contains invalid characters")
	}

	return nil
}

// ValidateIP проверяет, что строка является корректным IP-адресом
func ValidateIP(ip string) error {
	if net.ParseIP(ip) == nil {
		return fmt.Errorf("invalid ip address: %s", ip)
	}
	return nil
}
