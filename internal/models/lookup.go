// internal/models/lookup.go
package models

type Province struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:100;not null;uniqueIndex"`
}

type CompanyType struct {
	ID   uint    `json:"id" gorm:"primaryKey"`
	Name string  `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Fee  float64 `json:"fee" gorm:"type:decimal(12,2);default:0"`
}

// BusinessPurpose is one permitted business activity.
type BusinessPurpose struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Code      string `json:"code" gorm:"size:20;not null;uniqueIndex"`
	Name      string `json:"name" gorm:"size:255;not null"`
	IsDeleted bool   `json:"is_deleted" gorm:"default:false"`
}
