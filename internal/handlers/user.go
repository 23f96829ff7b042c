// internal/handlers/user.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/trade-registry/internal/i18n"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /users?role=
func (h *UserHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	users, total, err := h.userService.List(models.Role(c.Query("role")), params)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, utils.CreatePaginationResult(users, total, params))
}

// POST /users
func (h *UserHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.userService.Create(&req)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			utils.ConflictResponse(c, "USER_EXISTS", err.Error(), nil)
			return
		}
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "user"), err.Error())
		return
	}

	utils.CreatedResponse(c, user)
}

// PUT /users/:id/status
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateUserStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.userService.SetStatus(id, req.Status); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.NotFoundResponse(c, "user")
			return
		}
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeySuccess)})
}

// PUT /auth/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.ChangePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(actor.ID, &req); err != nil {
		if errors.Is(err, services.ErrInvalidPassword) {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials), nil)
			return
		}
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeySuccess)})
}
