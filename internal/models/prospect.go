package models

import (
	"time"

	"gorm.io/datatypes"
)

// Prospect is a saved profitability projection ("prospetto"). DatiJSON holds
// the opaque payload sent by the calculator: the computed model, the raw form
// state and denormalized copies of the assigned property's slug and name.
type Prospect struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Slug       string         `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Titolo     string         `gorm:"not null;default:''" json:"titolo"`
	Indirizzo1 string         `gorm:"column:indirizzo1;not null;default:''" json:"indirizzo1"`
	Indirizzo2 string         `gorm:"column:indirizzo2;not null;default:''" json:"indirizzo2"`
	DatiJSON   datatypes.JSON `gorm:"column:dati_json" json:"datiJson"`
	PdfPath    string         `gorm:"not null;default:''" json:"pdfPath"`
	PropertyID *uint          `gorm:"index" json:"propertyId"`
	Property   *Property      `gorm:"foreignKey:PropertyID" json:"property"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// HasPDF reports whether an uploaded document is attached.
func (p *Prospect) HasPDF() bool {
	return p.PdfPath != ""
}
