package repository

import (
	"go-paineltv/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ImportRepository interface {
	CreateJob(job *model.ImportJob) error
	UpdateJobCounts(id uuid.UUID, valid, quarantine int) error
	AddPriceHistory(entry *model.PriceHistory) error
	AddConflict(conflict *model.ImportConflict) error
	ListConflicts(jobID uuid.UUID) ([]model.ImportConflict, error)
	ListPriceHistory(code string) ([]model.PriceHistory, error)
}

type importRepo struct {
	db *gorm.DB
}

func NewImportRepo(db *gorm.DB) ImportRepository {
	return &importRepo{db}
}

func (r *importRepo) CreateJob(job *model.ImportJob) error {
	return r.db.Create(job).Error
}

func (r *importRepo) UpdateJobCounts(id uuid.UUID, valid, quarantine int) error {
	return r.db.Model(&model.ImportJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"valid_count":      valid,
			"quarantine_count": quarantine,
		}).Error
}

func (r *importRepo) AddPriceHistory(entry *model.PriceHistory) error {
	return r.db.Create(entry).Error
}

func (r *importRepo) AddConflict(conflict *model.ImportConflict) error {
	return r.db.Create(conflict).Error
}

func (r *importRepo) ListConflicts(jobID uuid.UUID) ([]model.ImportConflict, error) {
	var conflicts []model.ImportConflict
	err := r.db.Where("job_id = ?", jobID).Order("created_at").Find(&conflicts).Error
	return conflicts, err
}

func (r *importRepo) ListPriceHistory(code string) ([]model.PriceHistory, error) {
	var entries []model.PriceHistory
	err := r.db.Where("code = ?", code).Order("created_at").Find(&entries).Error
	return entries, err
}
