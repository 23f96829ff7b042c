package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/trade-registry/internal/middleware"
	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/store/memory"
	"github.com/javajoker/trade-registry/internal/utils"
	"github.com/javajoker/trade-registry/internal/workflow"
)

type testUser struct {
	id    uuid.UUID
	token string
}

type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID      uuid.UUID `json:"id"`
		Request struct {
			ID         uuid.UUID  `json:"id"`
			StatusName string     `json:"statusName"`
			LockedByID *uuid.UUID `json:"lockedById"`
			IsPaid     bool       `json:"isPaid"`
		} `json:"request"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type RequestHandlerTestSuite struct {
	suite.Suite
	store  *memory.Store
	router *gin.Engine

	clerk    testUser
	auditor  testUser
	auditor2 testUser
	ipExpert testUser
}

func (suite *RequestHandlerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("request-suite-secret")
}

func (suite *RequestHandlerTestSuite) user(role models.Role, province *uint) testUser {
	id := uuid.New()
	token, err := utils.GenerateJWT(id, string(role), string(role)+" user", string(role), province, 1)
	suite.Require().NoError(err)
	return testUser{id: id, token: token}
}

func (suite *RequestHandlerTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.store.AddCompanyType(models.CompanyType{ID: 1, Name: "LLC", Fee: 100000})
	engine := workflow.NewEngine(suite.store)
	h := NewRequestHandler(engine, nil, nil)

	suite.router = gin.New()
	suite.router.Use(middleware.I18nMiddleware())
	requests := suite.router.Group("/v1/requests", middleware.AuthRequired())
	{
		requests.POST("", middleware.RolesRequired(models.RoleAdmin, models.RoleProvinceAdmin, models.RoleProvinceEmployee), h.Submit)
		requests.POST("/:id/claim", h.Claim)
		requests.POST("/:id/release", h.Release)
		requests.POST("/:id/request-payment", h.RequestPayment)
		requests.POST("/:id/forward-ip", h.ForwardToIP)
		requests.POST("/:id/escalate", h.Escalate)
		requests.POST("/:id/accept", h.Accept)
		requests.POST("/:id/reservation/finalize", h.FinalizeReservation)
	}

	province := uint(3)
	suite.clerk = suite.user(models.RoleProvinceEmployee, &province)
	suite.auditor = suite.user(models.RoleCentralAuditor, nil)
	suite.auditor2 = suite.user(models.RoleCentralAuditor, nil)
	suite.ipExpert = suite.user(models.RoleIpExpert, nil)
}

func (suite *RequestHandlerTestSuite) do(u testUser, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.token)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (suite *RequestHandlerTestSuite) submit() uuid.UUID {
	w, env := suite.do(suite.clerk, "/v1/requests", map[string]interface{}{
		"companyName":   "شركة الرافدين للتجارة",
		"companyTypeId": 1,
		"provinceId":    9,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Require().NotEqual(uuid.Nil, env.Data.ID)

	stored, err := suite.store.GetRequest(context.Background(), env.Data.ID)
	suite.Require().NoError(err)
	suite.Equal(uint(3), stored.ProvinceID, "province users file for their own province")
	return env.Data.ID
}

func (suite *RequestHandlerTestSuite) path(id uuid.UUID, action string) string {
	return "/v1/requests/" + id.String() + "/" + action
}

func (suite *RequestHandlerTestSuite) TestSubmit_StaffForbidden() {
	w, _ := suite.do(suite.auditor, "/v1/requests", map[string]interface{}{
		"companyName": "Alpha", "companyTypeId": 1,
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *RequestHandlerTestSuite) TestSubmit_InvalidName() {
	w, env := suite.do(suite.clerk, "/v1/requests", map[string]interface{}{
		"companyName": "Co. Ltd", "companyTypeId": 1,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", env.Error.Code)
}

func (suite *RequestHandlerTestSuite) TestClaimConflict() {
	id := suite.submit()

	w, env := suite.do(suite.auditor, suite.path(id, "claim"), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Require().NotNil(env.Data.Request.LockedByID)
	assert.Equal(suite.T(), suite.auditor.id, *env.Data.Request.LockedByID)

	w, env = suite.do(suite.auditor2, suite.path(id, "claim"), nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "ALREADY_LOCKED", env.Error.Code)

	w, _ = suite.do(suite.auditor, suite.path(id, "claim"), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code, "re-claiming is a no-op")

	w, env = suite.do(suite.auditor, suite.path(id, "release"), nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Nil(suite.T(), env.Data.Request.LockedByID)
}

func (suite *RequestHandlerTestSuite) TestClaim_EmptyChunkedBody() {
	id := suite.submit()

	req, _ := http.NewRequest(http.MethodPost, suite.path(id, "claim"), bytes.NewReader(nil))
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+suite.auditor.token)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *RequestHandlerTestSuite) TestAcceptErrors() {
	id := suite.submit()
	suite.do(suite.auditor, suite.path(id, "claim"), nil)

	w, env := suite.do(suite.auditor, suite.path(id, "accept"), map[string]string{"comment": "  "})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", env.Error.Code)

	w, env = suite.do(suite.auditor, suite.path(id, "accept"), map[string]string{"comment": "موافق"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "INVALID_STATE_TRANSITION", env.Error.Code)

	w, _ = suite.do(suite.auditor, suite.path(uuid.New(), "accept"), map[string]string{"comment": "ok"})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w, _ = suite.do(suite.auditor, "/v1/requests/not-a-uuid/accept", map[string]string{"comment": "ok"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *RequestHandlerTestSuite) TestEscalateTarget() {
	id := suite.submit()
	suite.do(suite.auditor, suite.path(id, "claim"), nil)

	w, env := suite.do(suite.auditor, suite.path(id, "escalate"), map[string]string{"comment": "needs a ruling"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code, "the target must be chosen explicitly")
	assert.Equal(suite.T(), "VALIDATION_ERROR", env.Error.Code)

	w, _ = suite.do(suite.auditor, suite.path(id, "escalate"), nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, _ = suite.do(suite.auditor, suite.path(id, "escalate"), map[string]string{"target": "Mayor", "comment": "x"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w, env = suite.do(suite.auditor, suite.path(id, "escalate"), map[string]string{
		"target": "MinisterAssistant", "comment": "needs a ruling",
	})
	assert.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "PendingMinisterReview", env.Data.Request.StatusName)
}

func (suite *RequestHandlerTestSuite) TestRequestPaymentAndForward() {
	id := suite.submit()
	suite.do(suite.auditor, suite.path(id, "claim"), nil)

	w, env := suite.do(suite.auditor, suite.path(id, "request-payment"), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), "PendingPayment", env.Data.Request.StatusName)

	// Unpaid requests cannot go to the IP office.
	w, _ = suite.do(suite.auditor, suite.path(id, "forward-ip"), nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w, env = suite.do(suite.ipExpert, suite.path(id, "reservation/finalize"), map[string]string{"registryNumber": "R-1"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "INVALID_STATE_TRANSITION", env.Error.Code)
}

func TestRequestHandlerSuite(t *testing.T) {
	suite.Run(t, new(RequestHandlerTestSuite))
}
