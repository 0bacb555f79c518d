package models

import "time"

type GiveawayStatus string

const (
	GiveawayStatusActive    GiveawayStatus = "active"
	GiveawayStatusRunning   GiveawayStatus = "running"
	GiveawayStatusEnded     GiveawayStatus = "ended"
	GiveawayStatusCancelled GiveawayStatus = "cancelled"
)

// Giveaway — движок читает только поля, влияющие на допуск, и пишет
// winner_id с переходом статуса в ended. Остальным владеет CMS.
type Giveaway struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Status    GiveawayStatus `json:"status"`
	StartDate time.Time      `json:"start_date"`
	EndDate   time.Time      `json:"end_date"`
	// 0 — без ограничения
	MaxParticipants int       `json:"max_participants"`
	AllowGuests     bool      `json:"allow_guests"`
	WinnerID        *string   `json:"winner_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsOpen: допуск разрешают только статусы active и running
func (g *Giveaway) IsOpen() bool {
	return g.Status == GiveawayStatusActive || g.Status == GiveawayStatusRunning
}

// HasEnded проверяет дедлайн розыгрыша
func (g *Giveaway) HasEnded(now time.Time) bool {
	return !g.EndDate.IsZero() && now.After(g.EndDate)
}

// IsJoinable: открыт и дедлайн не прошел
func (g *Giveaway) IsJoinable(now time.Time) bool {
	return g.IsOpen() && !g.HasEnded(now)
}

// IsDecided: победитель зафиксирован, терминальное состояние.
// После этого запись меняться не должна.
func (g *Giveaway) IsDecided() bool {
	return g.Status == GiveawayStatusEnded && g.WinnerID != nil
}
