package model

import "github.com/shopspring/decimal"

// Product is one row of the price-board catalog. Products are created the
// first time a scale export mentions their code and updated forever after;
// the import engine never deletes them.
type Product struct {
	BaseModel
	Code     string          `gorm:"type:varchar(10);uniqueIndex;not null" json:"code" validate:"required"`
	Name     string          `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	Price    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Position int             `gorm:"not null" json:"position"` // slot on the board grid
	Active   bool            `gorm:"default:true" json:"active"`
}
