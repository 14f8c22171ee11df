package models

import "time"

// Property is an owner-facing real-estate record. Prospects reference it
// through Prospect.PropertyID; deleting a property detaches them.
type Property struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Slug          string     `gorm:"size:191;uniqueIndex;not null" json:"slug"`
	Nome          string     `gorm:"not null;default:''" json:"nome"`
	Indirizzo     string     `gorm:"not null;default:''" json:"indirizzo"`
	Citta         string     `gorm:"not null;default:''" json:"citta"`
	OwnerNome     string     `gorm:"not null;default:''" json:"ownerNome"`
	OwnerEmail    string     `gorm:"not null;default:''" json:"ownerEmail"`
	OwnerTelefono string     `gorm:"not null;default:''" json:"ownerTelefono"`
	Note          string     `gorm:"type:text;not null;default:''" json:"note"`
	Prospects     []Prospect `gorm:"foreignKey:PropertyID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"prospects,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// DisplayName returns the name shown in lists, falling back to the slug.
func (p *Property) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.Nome != "" {
		return p.Nome
	}
	return p.Slug
}
