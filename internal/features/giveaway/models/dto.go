package models

// JoinInput — заявка на участие, уже прошедшая транспортный парсинг
type JoinInput struct {
	GiveawayID     string
	GuestName      string
	TelegramHandle string
	Fingerprint    string
	IPAddress      string
	CaptchaToken   string
}

// JoinResult — успешный допуск
type JoinResult struct {
	ParticipantID string `json:"participant_id"`
}

// ParticipationCheck — консультативный ответ предварительной проверки.
// Не является гарантией: авторитетная проверка повторяется в транзакции.
type ParticipationCheck struct {
	Participated bool   `json:"participated"`
	Method       string `json:"method,omitempty"`
	Message      string `json:"message"`
}

// WinnerResult — зафиксированный победитель розыгрыша
type WinnerResult struct {
	GiveawayID     string `json:"giveaway_id"`
	WinnerID       string `json:"winner_id"`
	GuestName      string `json:"guest_name"`
	TelegramHandle string `json:"telegram_handle"`
}
