package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Department groups panels and carries the keyword set used for automatic
// product categorization.
type Department struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name" validate:"required"`
	Code        string `gorm:"type:varchar(20);uniqueIndex;not null" json:"code" validate:"required"`
	Description string `gorm:"type:text" json:"description"`
	Color       string `gorm:"type:varchar(7);default:#3B82F6" json:"color"`
	Icon        string `gorm:"type:varchar(50);default:Package" json:"icon"`
	Keywords    string `gorm:"type:text" json:"keywords"` // JSON array, comma list tolerated
	Active      bool   `gorm:"default:true" json:"active"`

	Panels []DepartmentPanel `json:"panels,omitempty"`
}

// defaultKeywords is the built-in fallback table, keyed by department code,
// for departments that never configured their own keyword set.
var defaultKeywords = map[string][]string{
	"ACG": {"carne", "boi", "porco", "frango", "linguiça", "costela", "picanha", "alcatra", "maminha", "patinho", "acém", "músculo"},
	"PAD": {"pão", "bolo", "torta", "biscoito", "doce", "salgado", "croissant", "sonho", "rosquinha", "broa"},
	"HRT": {"alface", "tomate", "cebola", "batata", "cenoura", "abobrinha", "pepino", "pimentão", "banana", "maçã", "laranja", "limão"},
}

// KeywordList parses the configured keywords (JSON array, or a comma list as
// legacy fallback). An empty configuration falls back to the built-in table.
func (d *Department) KeywordList() []string {
	raw := strings.TrimSpace(d.Keywords)
	var out []string
	if raw != "" {
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			for _, k := range parsed {
				if k = strings.TrimSpace(k); k != "" {
					out = append(out, k)
				}
			}
		} else {
			for _, k := range strings.Split(raw, ",") {
				if k = strings.TrimSpace(k); k != "" {
					out = append(out, k)
				}
			}
		}
	}
	if len(out) == 0 {
		out = defaultKeywords[d.Code]
	}
	return out
}

// DepartmentPanel is one display surface of a department. Every department
// has at most one default panel, which the monitor keeps in sync.
type DepartmentPanel struct {
	BaseModel
	Name         string    `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	Description  string    `gorm:"type:text" json:"description"`
	DepartmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"department_id"`

	// Visual configuration forwarded to the TV player
	Title           string `gorm:"type:varchar(100)" json:"title"`
	Subtitle        string `gorm:"type:varchar(100)" json:"subtitle"`
	FooterText      string `gorm:"type:varchar(255)" json:"footer_text"`
	PollingInterval int    `gorm:"default:10" json:"polling_interval"` // seconds

	Active       bool `gorm:"default:true" json:"active"`
	IsDefault    bool `gorm:"default:false" json:"is_default"`
	DisplayOrder int  `gorm:"default:0" json:"display_order"`

	Department *Department `json:"department,omitempty"`
}

// ProductPanelAssociation links a catalog product to a panel. Unique per
// (product_id, panel_id).
type ProductPanelAssociation struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_product_panel" json:"product_id"`
	PanelID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_product_panel" json:"panel_id"`

	PositionOverride *int `json:"position_override"` // nil: product base position
	ActiveInPanel    bool `gorm:"default:true" json:"active_in_panel"`

	Product *Product `json:"product,omitempty"`
}

// DisplayPosition resolves the slot the association renders at.
func (a *ProductPanelAssociation) DisplayPosition() int {
	if a.PositionOverride != nil {
		return *a.PositionOverride
	}
	if a.Product != nil {
		return a.Product.Position
	}
	return 0
}
