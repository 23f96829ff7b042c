// internal/services/request_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/javajoker/trade-registry/internal/models"
	"github.com/javajoker/trade-registry/internal/store"
	"github.com/javajoker/trade-registry/internal/utils"
	"github.com/javajoker/trade-registry/internal/workflow"
)

var ErrRequestNotFound = errors.New("request not found")

// RequestService serves the read side of the workflow. All writes go
// through workflow.Engine.
type RequestService struct {
	db *gorm.DB
}

type SubmitPurpose struct {
	BusinessPurposeID uint   `json:"businessPurposeId" validate:"required"`
	Complement        string `json:"complement" validate:"max=1000"`
}

type SubmitChecklistItem struct {
	Name     string `json:"name" validate:"required,max=255"`
	FilePath string `json:"filePath" validate:"max=512"`
}

type SubmitRequest struct {
	CompanyName      string                `json:"companyName" validate:"required,max=255,company_name"`
	CompanyTypeID    uint                  `json:"companyTypeId" validate:"required"`
	ProvinceID       uint                  `json:"provinceId"`
	SelectedPurposes []SubmitPurpose       `json:"selectedPurposes" validate:"dive"`
	ChecklistItems   []SubmitChecklistItem `json:"checklistItems" validate:"dive"`
	DocumentPaths    []string              `json:"documentPaths" validate:"dive,max=512"`
}

// ToModel builds the request row. Province users always file for their
// own province.
func (r *SubmitRequest) ToModel(ownProvince *uint) *models.Request {
	req := &models.Request{
		CompanyName:   strings.TrimSpace(r.CompanyName),
		CompanyTypeID: r.CompanyTypeID,
		ProvinceID:    r.ProvinceID,
		DocumentPaths: pq.StringArray(r.DocumentPaths),
	}
	if ownProvince != nil {
		req.ProvinceID = *ownProvince
	}
	for _, p := range r.SelectedPurposes {
		req.BusinessPurposes = append(req.BusinessPurposes, models.RequestBusinessPurpose{
			BusinessPurposeID: p.BusinessPurposeID,
			Complement:        strings.TrimSpace(p.Complement),
		})
	}
	for _, item := range r.ChecklistItems {
		req.ChecklistItems = append(req.ChecklistItems, models.ChecklistItem{
			Name:     strings.TrimSpace(item.Name),
			FilePath: item.FilePath,
			Provided: item.FilePath != "",
		})
	}
	return req
}

type RequestFilter struct {
	StatusID   *models.StatusCode
	ProvinceID *uint
	Search     string
}

type NameMatch struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Province string    `json:"province"`
}

type NameCheckResult struct {
	IsAvailable bool        `json:"isAvailable"`
	Count       int         `json:"count"`
	Matches     []NameMatch `json:"matches"`
}

var requestSortFields = []string{"created_at", "updated_at", "company_name", "status_id"}

func NewRequestService(db *gorm.DB) *RequestService {
	return &RequestService{db: db}
}

// List returns requests matching filter. A non-nil scope restricts the
// result to one province.
func (s *RequestService) List(filter RequestFilter, scope *uint, params utils.PaginationParams) ([]models.Request, int64, error) {
	query := s.db.Model(&models.Request{})
	if scope != nil {
		query = query.Where("province_id = ?", *scope)
	} else if filter.ProvinceID != nil {
		query = query.Where("province_id = ?", *filter.ProvinceID)
	}
	if filter.StatusID != nil {
		query = query.Where("status_id = ?", *filter.StatusID)
	}
	if search := models.NormalizeCompanyName(filter.Search); search != "" {
		query = query.Where("normalized_name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	var requests []models.Request
	query = utils.ApplySort(query, params, requestSortFields)
	err := utils.ApplyPagination(query, params).
		Preload("Province").
		Preload("CompanyType").
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, total, nil
}

// ListAvailable returns unclaimed requests waiting on role, oldest first.
func (s *RequestService) ListAvailable(role models.Role, params utils.PaginationParams) ([]models.Request, int64, error) {
	statuses := workflow.ClaimableStatuses(role)
	if len(statuses) == 0 {
		return []models.Request{}, 0, nil
	}

	query := s.db.Model(&models.Request{}).
		Where("status_id IN ? AND locked_by_id IS NULL", statuses)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count requests: %w", err)
	}

	var requests []models.Request
	err := utils.ApplyPagination(query.Order("created_at ASC"), params).
		Preload("Province").
		Preload("CompanyType").
		Find(&requests).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list available requests: %w", err)
	}
	return requests, total, nil
}

// Get loads a request with everything the detail view shows.
func (s *RequestService) Get(id uuid.UUID, scope *uint) (*models.Request, error) {
	var req models.Request
	err := store.WithDetail(s.db).First(&req, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if scope != nil && req.ProvinceID != *scope {
		return nil, ErrRequestNotFound
	}
	return &req, nil
}

// CheckNameAvailability looks for existing requests whose normalized name
// equals, contains or is contained in the candidate. It never changes state
// and does not block any decision.
func (s *RequestService) CheckNameAvailability(name string, excludeID uuid.UUID) (*NameCheckResult, error) {
	normalized := models.NormalizeCompanyName(name)
	result := &NameCheckResult{IsAvailable: true, Matches: []NameMatch{}}
	if normalized == "" {
		return result, nil
	}

	var rows []struct {
		ID           uuid.UUID
		CompanyName  string
		ProvinceName string
	}
	err := s.db.Table("requests").
		Select("requests.id, requests.company_name, provinces.name AS province_name").
		Joins("LEFT JOIN provinces ON provinces.id = requests.province_id").
		Where("requests.deleted_at IS NULL AND requests.id <> ? AND requests.normalized_name <> ''", excludeID).
		Where("requests.normalized_name = ? OR requests.normalized_name LIKE ? OR ? LIKE '%' || requests.normalized_name || '%'",
			normalized, "%"+normalized+"%", normalized).
		Order("requests.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check name availability: %w", err)
	}

	for _, row := range rows {
		result.Matches = append(result.Matches, NameMatch{
			ID:       row.ID,
			Name:     row.CompanyName,
			Province: row.ProvinceName,
		})
	}
	result.Count = len(result.Matches)
	result.IsAvailable = result.Count == 0
	return result, nil
}

// DocumentBelongs reports whether key is one of the files attached to req.
func DocumentBelongs(req *models.Request, key string) bool {
	key, err := CleanDocumentPath(key)
	if err != nil {
		return false
	}
	candidates := append([]string{req.ReceiptPath}, req.DocumentPaths...)
	for _, item := range req.ChecklistItems {
		candidates = append(candidates, item.FilePath)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if cleaned, err := CleanDocumentPath(c); err == nil && cleaned == key {
			return true
		}
	}
	return false
}
