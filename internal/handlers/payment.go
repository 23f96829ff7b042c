// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/trade-registry/internal/dto"
	"github.com/javajoker/trade-registry/internal/i18n"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// GET /invoices/:id
func (h *PaymentHandler) GetInvoice(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.paymentService.GetInvoice(id, provinceScope(c, actor))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, invoice)
}

// POST /invoices/:id/payment-intent
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	response, err := h.paymentService.CreatePaymentIntent(id, actor, provinceScope(c, actor))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, response)
}

// POST /invoices/:id/confirm
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
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

	var req services.ConfirmPaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.paymentService.ConfirmPayment(c.Request.Context(), id, actor, provinceScope(c, actor), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentSuccess),
		"request": dto.FromRequest(updated, !actor.Role.IsProvince()),
	})
}

// POST /invoices/:id/receipt
func (h *PaymentHandler) RecordReceipt(c *gin.Context) {
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

	var req services.ReceiptRequest
	if !bindAndValidate(c, &req) {
		return
	}

	updated, err := h.paymentService.RecordReceipt(c.Request.Context(), id, actor, provinceScope(c, actor), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaymentSuccess),
		"request": dto.FromRequest(updated, !actor.Role.IsProvince()),
	})
}
