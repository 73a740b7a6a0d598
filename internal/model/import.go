package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConflictType classifies a rejected change.
type ConflictType string

const (
	ConflictPrice ConflictType = "price"
	ConflictName  ConflictType = "name"
)

// ImportJob records one batch run, whatever its source (api, txt, monitor).
type ImportJob struct {
	BaseModel
	Source          string `gorm:"type:varchar(50)" json:"source"`
	Filename        string `gorm:"type:varchar(255)" json:"filename"`
	TotalLines      int    `json:"total_lines"`
	ValidCount      int    `json:"valid_count"`
	QuarantineCount int    `json:"quarantine_count"`
}

// PriceHistory is an immutable audit row, appended whenever a price change
// is actually applied to the catalog.
type PriceHistory struct {
	BaseModel
	Code     string              `gorm:"type:varchar(10);not null;index" json:"code"`
	Name     string              `gorm:"type:varchar(100)" json:"name"`
	OldPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"old_price"`
	NewPrice decimal.Decimal     `gorm:"type:decimal(10,2)" json:"new_price"`
	DeltaPct float64             `gorm:"type:decimal(10,4)" json:"delta_pct"`
	JobID    *uuid.UUID          `gorm:"type:uuid;index" json:"job_id"`
}

// ImportConflict is an immutable audit row, appended whenever a change is
// rejected or flagged: quarantined price jumps and refused name updates.
type ImportConflict struct {
	BaseModel
	JobID    *uuid.UUID          `gorm:"type:uuid;index" json:"job_id"`
	Code     string              `gorm:"type:varchar(10);index" json:"code"`
	Type     ConflictType        `gorm:"type:varchar(20)" json:"type"`
	OldName  string              `gorm:"type:varchar(255)" json:"old_name"`
	NewName  string              `gorm:"type:varchar(255)" json:"new_name"`
	OldPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"old_price"`
	NewPrice decimal.Decimal     `gorm:"type:decimal(10,2)" json:"new_price"`
	DeltaPct float64             `gorm:"type:decimal(10,4)" json:"delta_pct"`
}
