package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-paineltv/internal/model"
	"go-paineltv/internal/repository"
	"go-paineltv/pkg/toledo"
)

// ImportRecord is one typed candidate handed to the reconciler. Price is a
// NullDecimal so boundary callers can forward values that failed numeric
// parsing and have them land in the batch errors instead of vanishing.
type ImportRecord struct {
	Code   string              `json:"code"`
	Name   string              `json:"name"`
	Price  decimal.NullDecimal `json:"price"`
	Active bool                `json:"active"`
}

// ImportOptions parameterize one batch run.
type ImportOptions struct {
	// OfficialCodes carries the majority-vote name→code table supplied by
	// the text-import entry points. Accepted for auditability; reconciling
	// still trusts each record's own code.
	OfficialCodes      map[string]string
	Preview            bool
	JobID              *uuid.UUID
	PriceDeltaLimitPct float64
	NameSimilarityMin  float64
}

// ImportResult is the outcome of a batch, identical in shape for live and
// preview runs. ImportedCount counts processed records, including ones whose
// price change was quarantined.
type ImportResult struct {
	ImportedCount   int      `json:"imported_count"`
	Errors          []string `json:"errors"`
	QuarantineCount int      `json:"quarantine_count"`
	Preview         bool     `json:"preview"`
}

type ImportService interface {
	ImportBatch(records []ImportRecord, opts ImportOptions) ImportResult
	ImportFromFile(path, source string) (ImportResult, *model.ImportJob, error)
}

type importService struct {
	mu          *sync.Mutex // shared single-writer lock, see NewImportService
	productRepo repository.ProductRepository
	importRepo  repository.ImportRepository
	log         zerolog.Logger

	priceDeltaLimitPct float64
	nameSimilarityMin  float64
}

// NewImportService wires the reconciler. The mutex must be the same instance
// handed to the sync service: every mutating entry point of the engine
// serializes through it.
func NewImportService(mu *sync.Mutex, pRepo repository.ProductRepository, iRepo repository.ImportRepository, log zerolog.Logger, priceDeltaLimitPct, nameSimilarityMin float64) ImportService {
	return &importService{
		mu:                 mu,
		productRepo:        pRepo,
		importRepo:         iRepo,
		log:                log,
		priceDeltaLimitPct: priceDeltaLimitPct,
		nameSimilarityMin:  nameSimilarityMin,
	}
}

// butcherVocab is the fixed domain vocabulary used by the name-update
// heuristic: an incoming name containing a cut term may replace a stored
// name that has none, whatever their similarity.
var butcherVocab = regexp.MustCompile(`(?i)\b(alcatra|picanha|patinho|lagarto|maminha|cox[aã]o|ac[eé]m|paleta|contra\s*fil[eé]|fil[eé]|bisteca|costela|pernil|miolo|fraldinha|cupim|carne|su[ií]na|bovina|frango|coxa|sobrecoxa|asa|peito|lingui[çc]a|salsicha|toucinho|bacon)\b`)

// ParsePrice parses a price that may use Brazilian locale formatting
// ("1.234,56"). Plain decimal strings pass through unchanged.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, errors.New("empty price")
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

// RecordsFromCandidates adapts parser output to reconciler input.
func RecordsFromCandidates(cands []toledo.Candidate) []ImportRecord {
	out := make([]ImportRecord, len(cands))
	for i, c := range cands {
		out[i] = ImportRecord{
			Code:   c.Code,
			Name:   c.Name,
			Price:  decimal.NewNullDecimal(c.Price),
			Active: c.Active,
		}
	}
	return out
}

// ImportBatch merges one batch into the catalog. A malformed record is
// recorded and skipped; a storage failure is recorded and the batch goes on.
// With Preview set every decision is computed but nothing is written.
func (s *importService) ImportBatch(records []ImportRecord, opts ImportOptions) ImportResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := ImportResult{Errors: []string{}, Preview: opts.Preview}

	aggregated := s.aggregate(records, &res)

	for _, rec := range aggregated {
		existing, err := s.productRepo.FindByCode(rec.Code)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !opts.Preview {
				if err := s.createProduct(rec); err != nil {
					res.Errors = append(res.Errors, fmt.Sprintf("failed to create product %s: %v", rec.Name, err))
					continue
				}
			}
			res.ImportedCount++

		case err != nil:
			res.Errors = append(res.Errors, fmt.Sprintf("failed to load product %s: %v", rec.Code, err))

		default:
			if err := s.reconcile(existing, rec, opts, &res); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("failed to import product %s: %v", rec.Name, err))
				continue
			}
			res.ImportedCount++
		}
	}

	s.log.Info().
		Bool("preview", opts.Preview).
		Int("records", len(records)).
		Int("imported", res.ImportedCount).
		Int("quarantined", res.QuarantineCount).
		Int("errors", len(res.Errors)).
		Int("official_codes", len(opts.OfficialCodes)).
		Msg("batch reconciled")
	return res
}

// aggregate validates records and collapses duplicate codes, highest price
// winning, first seen winning ties.
func (s *importService) aggregate(records []ImportRecord, res *ImportResult) []ImportRecord {
	idx := make(map[string]int, len(records))
	out := make([]ImportRecord, 0, len(records))
	for _, rec := range records {
		if rec.Code == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("product %s has no code - skipped", rec.Name))
			continue
		}
		if !rec.Price.Valid {
			res.Errors = append(res.Errors, fmt.Sprintf("product %s has an invalid price - skipped", rec.Name))
			continue
		}
		if i, ok := idx[rec.Code]; ok {
			if rec.Price.Decimal.GreaterThan(out[i].Price.Decimal) {
				out[i] = rec
			}
			continue
		}
		idx[rec.Code] = len(out)
		out = append(out, rec)
	}
	return out
}

// reconcile applies one aggregated record to an existing product.
func (s *importService) reconcile(existing *model.Product, rec ImportRecord, opts ImportOptions, res *ImportResult) error {
	newPrice := rec.Price.Decimal

	deltaPct := 0.0
	if existing.Price.IsPositive() {
		deltaPct, _ = newPrice.Sub(existing.Price).Abs().
			Div(existing.Price).Mul(decimal.NewFromInt(100)).Float64()
	}

	if opts.PriceDeltaLimitPct > 0 && deltaPct > opts.PriceDeltaLimitPct {
		// suspicious jump: leave the stored price alone, flag for review
		if !opts.Preview {
			if err := s.importRepo.AddConflict(&model.ImportConflict{
				JobID:    opts.JobID,
				Code:     rec.Code,
				Type:     model.ConflictPrice,
				OldName:  existing.Name,
				NewName:  rec.Name,
				OldPrice: decimal.NewNullDecimal(existing.Price),
				NewPrice: newPrice,
				DeltaPct: deltaPct,
			}); err != nil {
				return err
			}
		}
		res.QuarantineCount++
		s.log.Warn().Str("code", rec.Code).Float64("delta_pct", deltaPct).Msg("price change quarantined")
		return nil
	}

	if opts.Preview {
		return nil
	}

	if err := s.importRepo.AddPriceHistory(&model.PriceHistory{
		Code:     rec.Code,
		Name:     existing.Name,
		OldPrice: decimal.NewNullDecimal(existing.Price),
		NewPrice: newPrice,
		DeltaPct: deltaPct,
		JobID:    opts.JobID,
	}); err != nil {
		return err
	}

	oldName, oldPrice := existing.Name, existing.Price
	existing.Price = newPrice

	incomingButcher := butcherVocab.MatchString(rec.Name)
	existingButcher := butcherVocab.MatchString(oldName)
	ratio := similarityRatio(strings.ToLower(oldName), strings.ToLower(rec.Name))

	if (incomingButcher && !existingButcher) || opts.NameSimilarityMin == 0 || ratio >= opts.NameSimilarityMin {
		existing.Name = rec.Name
	} else {
		if err := s.importRepo.AddConflict(&model.ImportConflict{
			JobID:    opts.JobID,
			Code:     rec.Code,
			Type:     model.ConflictName,
			OldName:  oldName,
			NewName:  rec.Name,
			OldPrice: decimal.NewNullDecimal(oldPrice),
			NewPrice: newPrice,
			DeltaPct: deltaPct,
		}); err != nil {
			return err
		}
	}

	existing.Active = rec.Active
	return s.productRepo.Update(existing)
}

// createProduct inserts a first-sighted code at the smallest free position.
func (s *importService) createProduct(rec ImportRecord) error {
	products, err := s.productRepo.FindAll()
	if err != nil {
		return err
	}
	used := make(map[int]bool, len(products))
	for _, p := range products {
		used[p.Position] = true
	}
	position := 1
	for used[position] {
		position++
	}
	return s.productRepo.Create(&model.Product{
		Code:     rec.Code,
		Name:     rec.Name,
		Price:    rec.Price.Decimal,
		Position: position,
		Active:   rec.Active,
	})
}

// ImportFromFile runs the manual text-import path: parse the export, derive
// the majority-vote code table, reconcile live under a fresh job.
func (s *importService) ImportFromFile(path, source string) (ImportResult, *model.ImportJob, error) {
	cands, err := toledo.ParseFile(path)
	if err != nil {
		return ImportResult{}, nil, err
	}

	job := &model.ImportJob{
		Source:     source,
		Filename:   filepath.Base(path),
		TotalLines: len(cands),
	}
	if err := s.importRepo.CreateJob(job); err != nil {
		return ImportResult{}, nil, err
	}

	res := s.ImportBatch(RecordsFromCandidates(cands), ImportOptions{
		OfficialCodes:      toledo.OfficialCodes(cands),
		JobID:              &job.ID,
		PriceDeltaLimitPct: s.priceDeltaLimitPct,
		NameSimilarityMin:  s.nameSimilarityMin,
	})

	job.ValidCount = res.ImportedCount
	job.QuarantineCount = res.QuarantineCount
	if err := s.importRepo.UpdateJobCounts(job.ID, res.ImportedCount, res.QuarantineCount); err != nil {
		return res, job, err
	}
	return res, job, nil
}

// similarityRatio is the classic difflib ratio over characters: 2*M/T for M
// matching characters out of T total.
func similarityRatio(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
