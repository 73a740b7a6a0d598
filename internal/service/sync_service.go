package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-paineltv/internal/model"
	"go-paineltv/internal/repository"
	"go-paineltv/pkg/textnorm"
)

// SyncResult reports one panel synchronization.
type SyncResult struct {
	RemovedCount int    `json:"removed_count"`
	AddedCount   int    `json:"added_count"`
	Panel        string `json:"panel"`
	Department   string `json:"department"`
}

// PanelProduct is a catalog product as rendered on a panel: the association's
// position override, when set, replaces the product's base position.
type PanelProduct struct {
	model.Product
	DisplayPosition int `json:"display_position"`
}

type SyncService interface {
	SyncPanel(departmentID, panelID uuid.UUID, exactMatch bool) (SyncResult, error)
	PanelProducts(departmentID, panelID uuid.UUID) ([]PanelProduct, error)
}

type syncService struct {
	mu          *sync.Mutex // shared with the import service
	productRepo repository.ProductRepository
	panelRepo   repository.PanelRepository
	log         zerolog.Logger

	// products created within this window may still be auto-added to a
	// panel that already has content
	freshness time.Duration

	now func() time.Time // clock, replaceable in tests
}

func NewSyncService(mu *sync.Mutex, pRepo repository.ProductRepository, panelRepo repository.PanelRepository, log zerolog.Logger, freshness time.Duration) SyncService {
	return &syncService{
		mu:          mu,
		productRepo: pRepo,
		panelRepo:   panelRepo,
		log:         log,
		freshness:   freshness,
		now:         time.Now,
	}
}

// visualKey identifies rows that would render identically on a panel.
type visualKey struct {
	name string
	code string
}

func matchesKeywords(keywords []string, name string, exactMatch bool) bool {
	n := textnorm.Normalize(name)
	if exactMatch {
		for _, k := range keywords {
			if n == k {
				return true
			}
		}
		return false
	}
	for _, k := range keywords {
		if k != "" && strings.Contains(n, k) {
			return true
		}
	}
	return false
}

// SyncPanel reconciles which catalog products appear on a department panel:
// orphaned links go, visual duplicates collapse to the highest price, and
// newly matching products come in (gated by the freshness window once the
// panel has content).
func (s *syncService) SyncPanel(departmentID, panelID uuid.UUID, exactMatch bool) (SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	panel, err := s.panelRepo.FindPanel(panelID, departmentID)
	if err != nil {
		return SyncResult{}, err
	}
	department, err := s.panelRepo.FindDepartment(departmentID)
	if err != nil {
		return SyncResult{}, err
	}

	keywords := make([]string, 0)
	for _, k := range department.KeywordList() {
		keywords = append(keywords, textnorm.Normalize(k))
	}

	assocs, err := s.panelRepo.ListAssociations(panel.ID)
	if err != nil {
		return SyncResult{}, err
	}

	res := SyncResult{Panel: panel.Name, Department: department.Name}

	// pass 1: orphans out, visual duplicates collapsed to the highest price
	keep := make(map[visualKey]model.ProductPanelAssociation)
	for _, assoc := range assocs {
		if assoc.Product == nil {
			if err := s.panelRepo.DeleteAssociation(assoc.ID); err != nil {
				return res, err
			}
			res.RemovedCount++
			continue
		}
		k := visualKey{textnorm.Normalize(assoc.Product.Name), assoc.Product.Code}
		prev, dup := keep[k]
		if !dup {
			keep[k] = assoc
			continue
		}
		loser := assoc
		if assoc.Product.Price.GreaterThan(prev.Product.Price) {
			loser = prev
			keep[k] = assoc
		}
		if err := s.panelRepo.DeleteAssociation(loser.ID); err != nil {
			return res, err
		}
		res.RemovedCount++
	}

	associated := make(map[uuid.UUID]bool, len(keep))
	for _, assoc := range keep {
		associated[assoc.ProductID] = true
	}

	// pass 2: candidate pool of matching, not-yet-associated products
	products, err := s.productRepo.FindActive()
	if err != nil {
		return res, err
	}

	firstPopulation := len(keep) == 0
	cutoff := s.now().Add(-s.freshness)

	pool := make(map[visualKey]model.Product)
	var order []visualKey
	for _, p := range products {
		if associated[p.ID] || !matchesKeywords(keywords, p.Name, exactMatch) {
			continue
		}
		// an already-populated panel may have been curated by hand: only
		// recently created products may reappear on their own
		if !firstPopulation && s.freshness > 0 && p.CreatedAt.Before(cutoff) {
			continue
		}
		k := visualKey{textnorm.Normalize(p.Name), p.Code}
		if _, rendered := keep[k]; rendered {
			continue
		}
		prev, dup := pool[k]
		if !dup {
			pool[k] = p
			order = append(order, k)
			continue
		}
		if p.Price.GreaterThan(prev.Price) {
			pool[k] = p
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return order[i].name < order[j].name || (order[i].name == order[j].name && order[i].code < order[j].code)
	})

	for _, k := range order {
		p := pool[k]
		if err := s.panelRepo.CreateAssociation(&model.ProductPanelAssociation{
			ProductID:     p.ID,
			PanelID:       panel.ID,
			ActiveInPanel: true,
		}); err != nil {
			return res, err
		}
		res.AddedCount++
	}

	s.log.Info().
		Str("department", department.Name).
		Str("panel", panel.Name).
		Int("removed", res.RemovedCount).
		Int("added", res.AddedCount).
		Msg("panel synchronized")
	return res, nil
}

// PanelProducts resolves the panel's renderable product list, position
// overrides applied, inactive products and links filtered out.
func (s *syncService) PanelProducts(departmentID, panelID uuid.UUID) ([]PanelProduct, error) {
	panel, err := s.panelRepo.FindPanel(panelID, departmentID)
	if err != nil {
		return nil, err
	}
	assocs, err := s.panelRepo.ListAssociations(panel.ID)
	if err != nil {
		return nil, err
	}
	out := make([]PanelProduct, 0, len(assocs))
	for _, assoc := range assocs {
		if !assoc.ActiveInPanel || assoc.Product == nil || !assoc.Product.Active {
			continue
		}
		out = append(out, PanelProduct{
			Product:         *assoc.Product,
			DisplayPosition: assoc.DisplayPosition(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayPosition < out[j].DisplayPosition })
	return out, nil
}
