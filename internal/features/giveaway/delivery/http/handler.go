package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	apperrors "giveaway-engine-backend/internal/common/errors"
	"giveaway-engine-backend/internal/common/logger"
	"giveaway-engine-backend/internal/common/middleware"
	"giveaway-engine-backend/internal/features/giveaway/models"
	"giveaway-engine-backend/internal/features/giveaway/service"
)

type GiveawayHandler struct {
	participation service.ParticipationService
	winners       service.WinnerService
	log           zerolog.Logger
}

func NewGiveawayHandler(participation service.ParticipationService, winners service.WinnerService) *GiveawayHandler {
	return &GiveawayHandler{
		participation: participation,
		winners:       winners,
		log:           logger.With("giveaway_handler"),
	}
}

// RegisterRoutes регистрирует маршруты розыгрышей
func (h *GiveawayHandler) RegisterRoutes(rg *gin.RouterGroup, roles middleware.RoleLookup) {
	giveaways := rg.Group("/giveaways")
	{
		giveaways.GET("/:id", h.GetGiveaway)
		giveaways.POST("/:id/join", h.Join)
		giveaways.POST("/:id/check-participation", h.CheckParticipation)
		giveaways.POST("/:id/winner", middleware.RequireAdmin(roles), h.SelectWinner)
	}
}

type joinRequest struct {
	GuestName      string `json:"guest_name" binding:"required" example:"Alice"`
	TelegramHandle string `json:"telegram_handle" binding:"required" example:"@alice_2024"`
	Fingerprint    string `json:"fingerprint" binding:"required" example:"f3a9c1d24be87a50"`
	CaptchaToken   string `json:"captcha_token" example:"0.AbCdEf..."`
}

type joinResponse struct {
	Success       bool   `json:"success" example:"true"`
	ParticipantID string `json:"participant_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

type checkParticipationRequest struct {
	TelegramHandle string `json:"telegram_handle" example:"@alice_2024"`
	Fingerprint    string `json:"fingerprint" example:"f3a9c1d24be87a50"`
}

type winnerResponse struct {
	Success bool                 `json:"success" example:"true"`
	Winner  *models.WinnerResult `json:"winner"`
}

type giveawayResponse struct {
	Success  bool             `json:"success" example:"true"`
	Giveaway *models.Giveaway `json:"giveaway"`
}

// GetGiveaway godoc
// @Summary Get giveaway
// @Description Returns public giveaway details by id
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Success 200 {object} giveawayResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /giveaways/{id} [get]
func (h *GiveawayHandler) GetGiveaway(c *gin.Context) {
	g, err := h.participation.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, giveawayResponse{Success: true, Giveaway: g})
}

// Join godoc
// @Summary Join a giveaway
// @Description Registers a guest participant. Rate limited per IP and per fingerprint, protected by captcha; one entry per handle and per device.
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Param request body joinRequest true "Participant details"
// @Success 200 {object} joinResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 410 {object} middleware.ErrorResponse
// @Failure 429 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/join [post]
func (h *GiveawayHandler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondError(c, h.log, apperrors.NewValidationError("body", err.Error()))
		return
	}

	result, err := h.participation.Join(c.Request.Context(), &models.JoinInput{
		GiveawayID:     c.Param("id"),
		GuestName:      req.GuestName,
		TelegramHandle: req.TelegramHandle,
		Fingerprint:    req.Fingerprint,
		IPAddress:      c.ClientIP(),
		CaptchaToken:   req.CaptchaToken,
	})
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, joinResponse{Success: true, ParticipantID: result.ParticipantID})
}

// CheckParticipation godoc
// @Summary Check participation
// @Description Advisory duplicate check for the join form. Always returns 200; storage errors are reported as "not participated".
// @Tags giveaways
// @Accept json
// @Produce json
// @Param id path string true "Giveaway ID"
// @Param request body checkParticipationRequest true "Signals to check"
// @Success 200 {object} models.ParticipationCheck
// @Router /giveaways/{id}/check-participation [post]
func (h *GiveawayHandler) CheckParticipation(c *gin.Context) {
	var req checkParticipationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Консультативный эндпоинт не отказывает: битое тело = не участвовал
		c.JSON(http.StatusOK, &models.ParticipationCheck{Participated: false})
		return
	}
	check := h.participation.CheckParticipation(c.Request.Context(), c.Param("id"), req.TelegramHandle, req.Fingerprint)
	c.JSON(http.StatusOK, check)
}

// SelectWinner godoc
// @Summary Select a winner
// @Description Picks a uniformly random participant and finalizes the giveaway. Exactly one winner per giveaway.
// @Tags giveaways
// @Produce json
// @Param id path string true "Giveaway ID"
// @Param X-User-ID header string true "Admin user ID"
// @Success 200 {object} winnerResponse
// @Failure 403 {object} middleware.ErrorResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /giveaways/{id}/winner [post]
func (h *GiveawayHandler) SelectWinner(c *gin.Context) {
	result, err := h.winners.SelectWinner(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.RespondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, winnerResponse{Success: true, Winner: result})
}
