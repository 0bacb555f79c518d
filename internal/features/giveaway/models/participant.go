package models

import "time"

// Participant — одна допущенная заявка. Append-only: создается ровно
// один раз, не обновляется и не удаляется. Уникальность handle и
// fingerprint в рамках розыгрыша — два независимых ограничения.
type Participant struct {
	ID         string `json:"id"`
	GiveawayID string `json:"giveaway_id"`
	GuestName  string `json:"guest_name"`
	// Нормализованный: нижний регистр, ведущий @
	TelegramHandle string    `json:"telegram_handle"`
	Fingerprint    string    `json:"fingerprint"`
	IPAddress      string    `json:"ip_address"`
	CreatedAt      time.Time `json:"created_at"`
}

// Методы, по которым определен дубликат участия
const (
	DuplicateByHandle      = "handle"
	DuplicateByFingerprint = "fingerprint"
)
