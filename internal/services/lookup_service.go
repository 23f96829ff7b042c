// internal/services/lookup_service.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/trade-registry/internal/models"
)

type LookupService struct {
	db *gorm.DB
}

func NewLookupService(db *gorm.DB) *LookupService {
	return &LookupService{db: db}
}

func (s *LookupService) Statuses() ([]models.RequestStatus, error) {
	var statuses []models.RequestStatus
	if err := s.db.Where("is_deleted = ?", false).Order("id").Find(&statuses).Error; err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	return statuses, nil
}

func (s *LookupService) Provinces() ([]models.Province, error) {
	var provinces []models.Province
	if err := s.db.Order("id").Find(&provinces).Error; err != nil {
		return nil, fmt.Errorf("failed to load provinces: %w", err)
	}
	return provinces, nil
}

func (s *LookupService) CompanyTypes() ([]models.CompanyType, error) {
	var types []models.CompanyType
	if err := s.db.Order("id").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to load company types: %w", err)
	}
	return types, nil
}

func (s *LookupService) BusinessPurposes() ([]models.BusinessPurpose, error) {
	var purposes []models.BusinessPurpose
	if err := s.db.Where("is_deleted = ?", false).Order("code").Find(&purposes).Error; err != nil {
		return nil, fmt.Errorf("failed to load business purposes: %w", err)
	}
	return purposes, nil
}
