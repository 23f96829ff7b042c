// Package dto holds the shapes served to the administrative front-end.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/trade-registry/internal/models"
)

type SelectedPurpose struct {
	BusinessPurposeID uint   `json:"businessPurposeId"`
	Code              string `json:"code,omitempty"`
	Name              string `json:"name,omitempty"`
	Complement        string `json:"complement,omitempty"`
}

type ChecklistItem struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	FilePath string    `json:"filePath,omitempty"`
	Provided bool      `json:"provided"`
}

type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	ActionType string    `json:"actionType"`
	ActorID    uuid.UUID `json:"actorId"`
	ActorName  string    `json:"actorName"`
	ActorRole  string    `json:"actorRole"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	Note       string    `json:"note,omitempty"`
	IsInternal bool      `json:"isInternal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RequestDTO is the full request record, also used as the push payload.
type RequestDTO struct {
	ID                    uuid.UUID         `json:"id"`
	CompanyName           string            `json:"companyName"`
	StatusID              uint              `json:"statusId"`
	StatusName            string            `json:"statusName"`
	StatusColor           string            `json:"statusColor"`
	ProvinceID            uint              `json:"provinceId"`
	ProvinceName          string            `json:"provinceName,omitempty"`
	CompanyTypeID         uint              `json:"companyTypeId"`
	CompanyTypeName       string            `json:"companyTypeName,omitempty"`
	LockedByID            *uuid.UUID        `json:"lockedById"`
	LockedByName          string            `json:"lockedByName,omitempty"`
	IsPaid                bool              `json:"isPaid"`
	IpExpertID            *uuid.UUID        `json:"ipExpertId"`
	IpExpertFeedback      string            `json:"ipExpertFeedback,omitempty"`
	IpExpertUserName      string            `json:"ipExpertUserName,omitempty"`
	ReceiptNum            string            `json:"receiptNum,omitempty"`
	ReceiptPath           string            `json:"receiptPath,omitempty"`
	RegistryNumber        string            `json:"registryNumber,omitempty"`
	RegistryDate          *time.Time        `json:"registryDate,omitempty"`
	ReservationExpiryDate *time.Time        `json:"reservationExpiryDate,omitempty"`
	SelectedPurposes      []SelectedPurpose `json:"selectedPurposes"`
	ChecklistItems        []ChecklistItem   `json:"checklistItems"`
	History               []HistoryEntry    `json:"history"`
	AuditorFeedback       string            `json:"auditorFeedback,omitempty"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// FromRequest maps a request and whatever associations were loaded with it.
// Internal history entries are dropped unless includeInternal is set.
func FromRequest(req *models.Request, includeInternal bool) RequestDTO {
	out := RequestDTO{
		ID:                    req.ID,
		CompanyName:           req.CompanyName,
		StatusID:              uint(req.StatusID),
		StatusName:            req.StatusID.String(),
		StatusColor:           req.StatusID.Color(),
		ProvinceID:            req.ProvinceID,
		ProvinceName:          req.Province.Name,
		CompanyTypeID:         req.CompanyTypeID,
		CompanyTypeName:       req.CompanyType.Name,
		LockedByID:            req.LockedByID,
		LockedByName:          req.LockedByName,
		IsPaid:                req.IsPaid,
		IpExpertID:            req.IpExpertID,
		IpExpertFeedback:      req.IpFeedback,
		IpExpertUserName:      req.IpExpertName,
		ReceiptNum:            req.ReceiptNum,
		ReceiptPath:           req.ReceiptPath,
		RegistryNumber:        req.RegistryNumber,
		RegistryDate:          req.RegistryDate,
		ReservationExpiryDate: req.ReservationExpiryDate,
		SelectedPurposes:      make([]SelectedPurpose, 0, len(req.BusinessPurposes)),
		ChecklistItems:        make([]ChecklistItem, 0, len(req.ChecklistItems)),
		History:               make([]HistoryEntry, 0, len(req.Actions)),
		AuditorFeedback:       req.AuditorFeedback,
		UpdatedAt:             req.UpdatedAt,
	}

	for _, p := range req.BusinessPurposes {
		out.SelectedPurposes = append(out.SelectedPurposes, SelectedPurpose{
			BusinessPurposeID: p.BusinessPurposeID,
			Code:              p.BusinessPurpose.Code,
			Name:              p.BusinessPurpose.Name,
			Complement:        p.Complement,
		})
	}
	for _, item := range req.ChecklistItems {
		out.ChecklistItems = append(out.ChecklistItems, ChecklistItem{
			ID:       item.ID,
			Name:     item.Name,
			FilePath: item.FilePath,
			Provided: item.Provided,
		})
	}
	for _, a := range req.Actions {
		if a.IsInternal && !includeInternal {
			continue
		}
		entry := HistoryEntry{
			ID:         a.ID,
			ActionType: string(a.ActionType),
			ActorID:    a.ActorID,
			ActorName:  a.ActorName,
			ActorRole:  string(a.ActorRole),
			ToStatus:   a.ToStatus.String(),
			Note:       a.Note,
			IsInternal: a.IsInternal,
			CreatedAt:  a.CreatedAt,
		}
		if a.FromStatus != 0 {
			entry.FromStatus = a.FromStatus.String()
		}
		out.History = append(out.History, entry)
	}
	return out
}
