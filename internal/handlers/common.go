// internal/handlers/common.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trade-registry/internal/i18n"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
	"github.com/javajoker/trade-registry/internal/workflow"
)

// currentActor builds the workflow identity from the token claims set by
// middleware.AuthRequired.
func currentActor(c *gin.Context) (workflow.Actor, bool) {
	userIDStr, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return workflow.Actor{}, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return workflow.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(c)
	name := c.GetString("full_name")
	if name == "" {
		name = c.GetString("username")
	}
	return workflow.Actor{ID: userID, Name: name, Role: models.Role(role)}, true
}

// provinceScope returns the caller's province when the caller is a
// province user; other roles see every province.
func provinceScope(c *gin.Context, actor workflow.Actor) *uint {
	if !actor.Role.IsProvince() {
		return nil
	}
	if id, ok := utils.GetProvinceIDFromContext(c); ok {
		return &id
	}
	// A province user without a province sees nothing.
	none := uint(0)
	return &none
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindAndValidate binds a JSON body and runs struct validation. It writes
// the error response itself and reports whether the handler may continue.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// bindOptional is bindAndValidate for bodies that may be absent. A missing
// body, including an empty chunked one, decodes as the zero value and is
// still validated.
func bindOptional(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// respondError maps workflow and service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var wfErr *workflow.Error
	reason := ""
	if errors.As(err, &wfErr) {
		reason = wfErr.Reason
	}

	switch {
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, services.ErrRequestNotFound):
		utils.NotFoundResponse(c, "request")
	case errors.Is(err, workflow.ErrValidation):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR",
			i18n.T(lang, i18n.KeyValidationInvalid, "input"), reason)
	case errors.Is(err, workflow.ErrAlreadyLocked):
		utils.ConflictResponse(c, "ALREADY_LOCKED", i18n.T(lang, i18n.KeyRequestAlreadyLocked), reason)
	case errors.Is(err, workflow.ErrInvalidStateTransition):
		utils.ConflictResponse(c, "INVALID_STATE_TRANSITION", i18n.T(lang, i18n.KeyRequestInvalidTransition), reason)
	case errors.Is(err, services.ErrInvoiceNotFound):
		utils.NotFoundResponse(c, "invoice")
	case errors.Is(err, services.ErrNotificationNotFound):
		utils.NotFoundResponse(c, "notification")
	case errors.Is(err, services.ErrInvoiceAlreadyPaid):
		utils.ConflictResponse(c, "INVOICE_PAID", i18n.T(lang, i18n.KeyRequestInvalidTransition), err.Error())
	case errors.Is(err, services.ErrPaymentPending):
		utils.ConflictResponse(c, "PAYMENT_PENDING", i18n.T(lang, i18n.KeyPaymentPending), nil)
	case errors.Is(err, services.ErrPaymentMismatch):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyPaymentFailed), err.Error())
	case errors.Is(err, services.ErrPaymentNotConfigured), errors.Is(err, services.ErrStorageNotConfigured):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "NOT_CONFIGURED",
			i18n.T(lang, i18n.KeyPaymentNotConfigured), err.Error())
	case errors.Is(err, services.ErrInvalidDocumentPath):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "path"), nil)
	default:
		_ = c.Error(err)
		utils.InternalErrorResponse(c, "")
	}
}
