// internal/handlers/request.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/trade-registry/internal/dto"
	"github.com/javajoker/trade-registry/internal/i18n"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/utils"
	"github.com/javajoker/trade-registry/internal/workflow"
)

type RequestHandler struct {
	engine         *workflow.Engine
	requestService *services.RequestService
	storageService *services.StorageService
}

func NewRequestHandler(engine *workflow.Engine, requestService *services.RequestService, storageService *services.StorageService) *RequestHandler {
	return &RequestHandler{
		engine:         engine,
		requestService: requestService,
		storageService: storageService,
	}
}

// ActionBody is the payload of every workflow action endpoint.
type ActionBody struct {
	Comment        string `json:"comment" validate:"max=4000"`
	RegistryNumber string `json:"registryNumber" validate:"max=100"`
}

type EscalateBody struct {
	Target  string `json:"target" validate:"required,oneof=Director MinisterAssistant"`
	Comment string `json:"comment" validate:"max=4000"`
}

// POST /requests
func (h *RequestHandler) Submit(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.SubmitRequest
	if !bindAndValidate(c, &req) {
		return
	}

	created, err := h.engine.Submit(c.Request.Context(), actor, req.ToModel(provinceScope(c, actor)))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, dto.FromRequest(created, false))
}

// GET /requests
func (h *RequestHandler) List(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	filter := services.RequestFilter{Search: params.Search}
	if v := c.Query("status"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		status := models.StatusCode(n)
		if err != nil || !status.Valid() {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
			return
		}
		filter.StatusID = &status
	}
	if v := c.Query("province"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "province"), nil)
			return
		}
		province := uint(n)
		filter.ProvinceID = &province
	}

	requests, total, err := h.requestService.List(filter, provinceScope(c, actor), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(toDTOs(requests, actor), total, params))
}

// GET /requests/available
func (h *RequestHandler) ListAvailable(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	requests, total, err := h.requestService.ListAvailable(actor.Role, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(toDTOs(requests, actor), total, params))
}

// GET /requests/:id
func (h *RequestHandler) Get(c *gin.Context) {
	actor, req, ok := h.load(c)
	if !ok {
		return
	}
	utils.SuccessResponse(c, dto.FromRequest(req, !actor.Role.IsProvince()))
}

// GET /requests/:id/actions
func (h *RequestHandler) AvailableActions(c *gin.Context) {
	actor, req, ok := h.load(c)
	if !ok {
		return
	}

	actions := workflow.AvailableActions(req, actor)
	if actions == nil {
		actions = []workflow.Action{}
	}
	utils.SuccessResponse(c, gin.H{
		"actions":  actions,
		"canClaim": !req.IsLocked() && workflow.CanClaim(req.StatusID, actor.Role),
	})
}

// GET /requests/:id/name-check?name=
func (h *RequestHandler) NameCheck(c *gin.Context) {
	_, req, ok := h.load(c)
	if !ok {
		return
	}

	name := c.Query("name")
	if name == "" {
		name = req.CompanyName
	}

	result, err := h.requestService.CheckNameAvailability(name, req.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}

// GET /requests/:id/documents/preview?path=
func (h *RequestHandler) PreviewDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	_, req, ok := h.load(c)
	if !ok {
		return
	}

	key := c.Query("path")
	if !services.DocumentBelongs(req, key) {
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", i18n.T(lang, i18n.KeyRequestDocumentNotFound), nil)
		return
	}

	url, err := h.storageService.PreviewURL(key)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"url": url})
}

// POST /uploads?category=documents|receipts
func (h *RequestHandler) Upload(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "file"), nil)
		return
	}
	defer file.Close()

	result, err := h.storageService.UploadFile(file, header, h.storageService.GetDefaultUploadOptions(c.Query("category")))
	if err != nil {
		if errors.Is(err, services.ErrStorageNotConfigured) {
			respondError(c, err)
			return
		}
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}
	utils.CreatedResponse(c, result)
}

// POST /requests/:id/claim
func (h *RequestHandler) Claim(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, _ ActionBody) (*models.Request, error) {
		return h.engine.Claim(c.Request.Context(), actor, id)
	})
}

// POST /requests/:id/release
func (h *RequestHandler) Release(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, _ ActionBody) (*models.Request, error) {
		return h.engine.Release(c.Request.Context(), actor, id)
	})
}

// POST /requests/:id/request-payment
func (h *RequestHandler) RequestPayment(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.RequestPayment(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/forward-ip
func (h *RequestHandler) ForwardToIP(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.ForwardToIP(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/ip-report
func (h *RequestHandler) SubmitIPReport(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.SubmitIPReport(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/forward-director
func (h *RequestHandler) ForwardToDirector(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.ForwardToDirector(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/escalate
func (h *RequestHandler) Escalate(c *gin.Context) {
	var body EscalateBody
	h.act(c, &body, func(actor workflow.Actor, id uuid.UUID) (*models.Request, error) {
		target := workflow.LeadershipTarget(body.Target)
		return h.engine.ForwardToLeadership(c.Request.Context(), actor, id, target, body.Comment)
	})
}

// POST /requests/:id/leadership-response
func (h *RequestHandler) LeadershipResponse(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.RespondAsLeadership(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/accept
func (h *RequestHandler) Accept(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.Accept(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.Reject(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/reservation/grant
func (h *RequestHandler) GrantReservation(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.GrantReservation(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/reservation/finalize
func (h *RequestHandler) FinalizeReservation(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.FinalizeReservation(c.Request.Context(), actor, id, body.RegistryNumber, body.Comment)
	})
}

// POST /requests/:id/reservation/cancel
func (h *RequestHandler) CancelReservation(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.CancelReservation(c.Request.Context(), actor, id, body.Comment)
	})
}

// POST /requests/:id/reservation/strike-off
func (h *RequestHandler) StrikeOff(c *gin.Context) {
	h.run(c, func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error) {
		return h.engine.StrikeOff(c.Request.Context(), actor, id, body.Comment)
	})
}

type actionFunc func(actor workflow.Actor, id uuid.UUID, body ActionBody) (*models.Request, error)

// run decodes the common parts of an action call and renders the result.
// The body is optional; an empty body means no comment.
func (h *RequestHandler) run(c *gin.Context, fn actionFunc) {
	var body ActionBody
	h.act(c, &body, func(actor workflow.Actor, id uuid.UUID) (*models.Request, error) {
		return fn(actor, id, body)
	})
}

// act resolves the actor and request id, fills body and renders whatever
// fn returns.
func (h *RequestHandler) act(c *gin.Context, body interface{}, fn func(actor workflow.Actor, id uuid.UUID) (*models.Request, error)) {
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
	if !bindOptional(c, body) {
		return
	}

	updated, err := fn(actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRequestUpdated),
		"request": dto.FromRequest(updated, !actor.Role.IsProvince()),
	})
}

func (h *RequestHandler) load(c *gin.Context) (workflow.Actor, *models.Request, bool) {
	actor, ok := currentActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return actor, nil, false
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return actor, nil, false
	}

	req, err := h.requestService.Get(id, provinceScope(c, actor))
	if err != nil {
		respondError(c, err)
		return actor, nil, false
	}
	return actor, req, true
}

func toDTOs(requests []models.Request, actor workflow.Actor) []dto.RequestDTO {
	out := make([]dto.RequestDTO, 0, len(requests))
	for i := range requests {
		out = append(out, dto.FromRequest(&requests[i], !actor.Role.IsProvince()))
	}
	return out
}
