package repository

import (
	"go-paineltv/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PanelRepository interface {
	CreateDepartment(department *model.Department) error
	FindDepartment(id uuid.UUID) (*model.Department, error)
	FindDepartmentByCode(code string) (*model.Department, error)
	ListActiveDepartments() ([]model.Department, error)

	CreatePanel(panel *model.DepartmentPanel) error
	FindPanel(id, departmentID uuid.UUID) (*model.DepartmentPanel, error)
	FindDefaultPanel(departmentID uuid.UUID) (*model.DepartmentPanel, error)

	ListAssociations(panelID uuid.UUID) ([]model.ProductPanelAssociation, error)
	CreateAssociation(assoc *model.ProductPanelAssociation) error
	DeleteAssociation(id uuid.UUID) error
}

type panelRepo struct {
	db *gorm.DB
}

func NewPanelRepo(db *gorm.DB) PanelRepository {
	return &panelRepo{db}
}

func (r *panelRepo) CreateDepartment(department *model.Department) error {
	return r.db.Create(department).Error
}

func (r *panelRepo) FindDepartment(id uuid.UUID) (*model.Department, error) {
	var department model.Department
	err := r.db.First(&department, "id = ?", id).Error
	return &department, err
}

func (r *panelRepo) FindDepartmentByCode(code string) (*model.Department, error) {
	var department model.Department
	err := r.db.First(&department, "code = ?", code).Error
	return &department, err
}

func (r *panelRepo) ListActiveDepartments() ([]model.Department, error) {
	var departments []model.Department
	err := r.db.Where("active = ?", true).Find(&departments).Error
	return departments, err
}

func (r *panelRepo) CreatePanel(panel *model.DepartmentPanel) error {
	return r.db.Create(panel).Error
}

func (r *panelRepo) FindPanel(id, departmentID uuid.UUID) (*model.DepartmentPanel, error) {
	var panel model.DepartmentPanel
	err := r.db.First(&panel, "id = ? AND department_id = ? AND active = ?", id, departmentID, true).Error
	return &panel, err
}

func (r *panelRepo) FindDefaultPanel(departmentID uuid.UUID) (*model.DepartmentPanel, error) {
	var panel model.DepartmentPanel
	err := r.db.First(&panel, "department_id = ? AND is_default = ? AND active = ?", departmentID, true, true).Error
	return &panel, err
}

// ListAssociations returns every association of the panel, the referenced
// product preloaded. Orphans come back with a nil Product.
func (r *panelRepo) ListAssociations(panelID uuid.UUID) ([]model.ProductPanelAssociation, error) {
	var assocs []model.ProductPanelAssociation
	err := r.db.Preload("Product").Where("panel_id = ?", panelID).Find(&assocs).Error
	return assocs, err
}

func (r *panelRepo) CreateAssociation(assoc *model.ProductPanelAssociation) error {
	return r.db.Create(assoc).Error
}

func (r *panelRepo) DeleteAssociation(id uuid.UUID) error {
	return r.db.Delete(&model.ProductPanelAssociation{}, "id = ?", id).Error
}
