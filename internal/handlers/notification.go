// internal/handlers/notification.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trade-registry/internal/i18n"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
)

type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GET /notifications?unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	notifications, total, err := h.notificationService.List(actor.ID, c.Query("unread") == "true", params)
	if err != nil {
		respondError(c, err)
		return
	}

	unread, err := h.notificationService.UnreadCount(actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(notifications, total, params)
	utils.SetPaginationHeaders(c, result)
	utils.SuccessResponseWithMeta(c, result.Data, gin.H{
		"unread": unread,
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// PUT /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(actor.ID, id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyNotificationRead)})
}

// PUT /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	updated, err := h.notificationService.MarkAllRead(actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyNotificationsAllRead),
		"updated": updated,
	})
}
