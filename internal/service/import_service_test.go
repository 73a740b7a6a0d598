package service

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"go-paineltv/internal/model"
	"go-paineltv/internal/repository"
)

func newImportFixture(t *testing.T) (ImportService, repository.ProductRepository, repository.ImportRepository, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	productRepo := repository.NewProductRepo(db)
	importRepo := repository.NewImportRepo(db)
	var mu sync.Mutex
	svc := NewImportService(&mu, productRepo, importRepo, zerolog.Nop(), 40, 0.6)
	return svc, productRepo, importRepo, db
}

func rec(code, name, price string) ImportRecord {
	return ImportRecord{
		Code:   code,
		Name:   name,
		Price:  decimal.NewNullDecimal(decimal.RequireFromString(price)),
		Active: true,
	}
}

func defaultOpts() ImportOptions {
	return ImportOptions{PriceDeltaLimitPct: 40, NameSimilarityMin: 0.6}
}

func seedProduct(t *testing.T, repo repository.ProductRepository, code, name, price string, position int) *model.Product {
	t.Helper()
	p := &model.Product{
		Code:     code,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Position: position,
		Active:   true,
	}
	if err := repo.Create(p); err != nil {
		t.Fatalf("seed product %s: %v", code, err)
	}
	return p
}

func TestImportBatchCreatesProducts(t *testing.T) {
	svc, productRepo, _, _ := newImportFixture(t)

	res := svc.ImportBatch([]ImportRecord{
		rec("100", "Picanha Kg", "59.90"),
		rec("200", "Alcatra Kg", "39.90"),
	}, defaultOpts())

	if res.ImportedCount != 2 {
		t.Fatalf("imported_count = %d, want 2", res.ImportedCount)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	p, err := productRepo.FindByCode("100")
	if err != nil {
		t.Fatalf("product 100 not created: %v", err)
	}
	if !p.Price.Equal(decimal.RequireFromString("59.90")) {
		t.Fatalf("price = %s, want 59.90", p.Price)
	}
	if p.Position != 1 {
		t.Fatalf("position = %d, want 1", p.Position)
	}
	p2, err := productRepo.FindByCode("200")
	if err != nil {
		t.Fatalf("product 200 not created: %v", err)
	}
	if p2.Position != 2 {
		t.Fatalf("position = %d, want 2", p2.Position)
	}
}

func TestImportBatchFillsPositionGap(t *testing.T) {
	svc, productRepo, _, _ := newImportFixture(t)
	seedProduct(t, productRepo, "1", "Produto Um", "1.00", 1)
	seedProduct(t, productRepo, "3", "Produto Tres", "3.00", 3)

	res := svc.ImportBatch([]ImportRecord{rec("9", "Produto Novo", "9.00")}, defaultOpts())
	if res.ImportedCount != 1 {
		t.Fatalf("imported_count = %d, want 1", res.ImportedCount)
	}
	p, err := productRepo.FindByCode("9")
	if err != nil {
		t.Fatalf("product not created: %v", err)
	}
	if p.Position != 2 {
		t.Fatalf("position = %d, want the gap at 2", p.Position)
	}
}

func TestImportBatchAppliesModestPriceChange(t *testing.T) {
	svc, productRepo, importRepo, _ := newImportFixture(t)
	seedProduct(t, productRepo, "175", "ACEM", "30.00", 1)

	res := svc.ImportBatch([]ImportRecord{rec("175", "ACEM", "32.90")}, defaultOpts())

	if res.QuarantineCount != 0 {
		t.Fatalf("quarantine_count = %d, want 0", res.QuarantineCount)
	}
	if res.ImportedCount != 1 {
		t.Fatalf("imported_count = %d, want 1", res.ImportedCount)
	}
	p, _ := productRepo.FindByCode("175")
	if !p.Price.Equal(decimal.RequireFromString("32.90")) {
		t.Fatalf("price = %s, want 32.90", p.Price)
	}

	history, err := importRepo.ListPriceHistory("175")
	if err != nil {
		t.Fatalf("listing price history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("price history rows = %d, want 1", len(history))
	}
	h := history[0]
	if !h.OldPrice.Decimal.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("old price = %s, want 30.00", h.OldPrice.Decimal)
	}
	if !h.NewPrice.Equal(decimal.RequireFromString("32.90")) {
		t.Fatalf("new price = %s, want 32.90", h.NewPrice)
	}
	if math.Abs(h.DeltaPct-9.6667) > 0.01 {
		t.Fatalf("delta_pct = %f, want ~9.67", h.DeltaPct)
	}
}

func TestImportBatchQuarantinesPriceJump(t *testing.T) {
	svc, productRepo, importRepo, _ := newImportFixture(t)
	seedProduct(t, productRepo, "175", "ACEM", "10.00", 1)

	job := &model.ImportJob{Source: "test", Filename: "batch.txt"}
	if err := importRepo.CreateJob(job); err != nil {
		t.Fatalf("creating job: %v", err)
	}
	opts := defaultOpts()
	opts.JobID = &job.ID

	res := svc.ImportBatch([]ImportRecord{rec("175", "ACEM", "32.90")}, opts)

	if res.QuarantineCount != 1 {
		t.Fatalf("quarantine_count = %d, want 1", res.QuarantineCount)
	}
	if res.ImportedCount != 1 {
		t.Fatalf("imported_count counts attempts; got %d, want 1", res.ImportedCount)
	}

	p, _ := productRepo.FindByCode("175")
	if !p.Price.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("quarantined price must stay 10.00, got %s", p.Price)
	}

	conflicts, err := importRepo.ListConflicts(job.ID)
	if err != nil {
		t.Fatalf("listing conflicts: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("conflict rows = %d, want 1", len(conflicts))
	}
	if conflicts[0].Type != model.ConflictPrice {
		t.Fatalf("conflict type = %s, want %s", conflicts[0].Type, model.ConflictPrice)
	}
	if math.Abs(conflicts[0].DeltaPct-229) > 0.01 {
		t.Fatalf("delta_pct = %f, want 229", conflicts[0].DeltaPct)
	}

	history, _ := importRepo.ListPriceHistory("175")
	if len(history) != 0 {
		t.Fatalf("quarantined change must not log price history, got %d rows", len(history))
	}
}

func TestImportBatchPreviewWritesNothing(t *testing.T) {
	svc, productRepo, _, db := newImportFixture(t)
	seedProduct(t, productRepo, "175", "ACEM", "10.00", 1)

	opts := defaultOpts()
	opts.Preview = true
	res := svc.ImportBatch([]ImportRecord{
		rec("175", "ACEM", "32.90"), // would be quarantined live
		rec("999", "Produto Novo", "5.00"),
	}, opts)

	if !res.Preview {
		t.Fatal("result must carry the preview flag")
	}
	if res.ImportedCount != 2 {
		t.Fatalf("imported_count = %d, want 2", res.ImportedCount)
	}
	if res.QuarantineCount != 1 {
		t.Fatalf("preview still counts quarantines; got %d, want 1", res.QuarantineCount)
	}

	if _, err := productRepo.FindByCode("999"); err == nil {
		t.Fatal("preview must not create products")
	}
	p, _ := productRepo.FindByCode("175")
	if !p.Price.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("preview must not change prices, got %s", p.Price)
	}
	var conflicts, history int64
	db.Model(&model.ImportConflict{}).Count(&conflicts)
	db.Model(&model.PriceHistory{}).Count(&history)
	if conflicts != 0 || history != 0 {
		t.Fatalf("preview wrote audit rows: %d conflicts, %d history", conflicts, history)
	}
}

func TestImportBatchSkipsMalformedRecords(t *testing.T) {
	svc, productRepo, _, _ := newImportFixture(t)

	res := svc.ImportBatch([]ImportRecord{
		{Code: "", Name: "Sem Codigo", Price: decimal.NewNullDecimal(decimal.RequireFromString("1.00")), Active: true},
		{Code: "500", Name: "Preco Invalido", Active: true}, // Price not Valid
		rec("600", "Produto Ok", "6.00"),
	}, defaultOpts())

	if res.ImportedCount != 1 {
		t.Fatalf("imported_count = %d, want 1", res.ImportedCount)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("errors = %v, want 2 entries", res.Errors)
	}
	if _, err := productRepo.FindByCode("600"); err != nil {
		t.Fatalf("valid record was not imported: %v", err)
	}
	if _, err := productRepo.FindByCode("500"); err == nil {
		t.Fatal("record with invalid price must be skipped")
	}
}

func TestImportBatchCollapsesDuplicateCodes(t *testing.T) {
	svc, productRepo, _, _ := newImportFixture(t)

	res := svc.ImportBatch([]ImportRecord{
		rec("300", "Costela Kg", "10.00"),
		rec("300", "Costela Kg", "12.00"),
		rec("300", "Costela Kg", "11.00"),
	}, defaultOpts())

	if res.ImportedCount != 1 {
		t.Fatalf("imported_count = %d, want 1", res.ImportedCount)
	}
	p, err := productRepo.FindByCode("300")
	if err != nil {
		t.Fatalf("product not created: %v", err)
	}
	if !p.Price.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("price = %s, highest of the batch (12.00) must win", p.Price)
	}
}

func TestImportBatchKeepsDissimilarName(t *testing.T) {
	svc, productRepo, importRepo, _ := newImportFixture(t)
	seedProduct(t, productRepo, "400", "Refrigerante Cola 2l", "8.00", 1)

	job := &model.ImportJob{Source: "test", Filename: "batch.txt"}
	if err := importRepo.CreateJob(job); err != nil {
		t.Fatalf("creating job: %v", err)
	}
	opts := defaultOpts()
	opts.JobID = &job.ID

	svc.ImportBatch([]ImportRecord{rec("400", "Sabao Em Po", "8.50")}, opts)

	p, _ := productRepo.FindByCode("400")
	if p.Name != "Refrigerante Cola 2l" {
		t.Fatalf("name = %q, a dissimilar name must not overwrite", p.Name)
	}
	if !p.Price.Equal(decimal.RequireFromString("8.50")) {
		t.Fatalf("price = %s, the modest price change still applies", p.Price)
	}
	conflicts, _ := importRepo.ListConflicts(job.ID)
	if len(conflicts) != 1 || conflicts[0].Type != model.ConflictName {
		t.Fatalf("want one name conflict, got %+v", conflicts)
	}
}

func TestImportBatchButcherNameOverrides(t *testing.T) {
	svc, productRepo, _, _ := newImportFixture(t)
	seedProduct(t, productRepo, "700", "Produto 0700", "20.00", 1)

	svc.ImportBatch([]ImportRecord{rec("700", "Picanha Bovina", "21.00")}, defaultOpts())

	p, _ := productRepo.FindByCode("700")
	if p.Name != "Picanha Bovina" {
		t.Fatalf("name = %q, a cut-vocabulary name must replace a generic one", p.Name)
	}
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"32.90", "32.90", true},
		{"32,90", "32.90", true},
		{"1.234,56", "1234.56", true},
		{" 10 ", "10", true},
		{"", "", false},
		{"abc", "", false},
	}
	for _, c := range cases {
		got, err := ParsePrice(c.in)
		if c.ok != (err == nil) {
			t.Fatalf("ParsePrice(%q) error = %v, want ok=%v", c.in, err, c.ok)
		}
		if c.ok && !got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("ParsePrice(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestImportFromFile(t *testing.T) {
	svc, productRepo, _, db := newImportFixture(t)

	path := filepath.Join(t.TempDir(), "MGV5.txt")
	content := strings.Join([]string{
		"010001234001090003QUEIJO MINAS",
		"0143175003290003PEITO DE FRANGO KG 00175",
		"short",
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing export file: %v", err)
	}

	res, job, err := svc.ImportFromFile(path, "manual")
	if err != nil {
		t.Fatalf("ImportFromFile: %v", err)
	}
	if res.ImportedCount != 2 {
		t.Fatalf("imported_count = %d, want 2", res.ImportedCount)
	}
	if job.TotalLines != 2 {
		t.Fatalf("job total_lines = %d, want 2 parsed candidates", job.TotalLines)
	}

	var stored model.ImportJob
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if stored.ValidCount != 2 || stored.QuarantineCount != 0 {
		t.Fatalf("job counts = %d/%d, want 2/0", stored.ValidCount, stored.QuarantineCount)
	}

	p, err := productRepo.FindByCode("175")
	if err != nil {
		t.Fatalf("product 175 not created: %v", err)
	}
	if p.Name != "Peito De Frango" {
		t.Fatalf("name = %q, want %q", p.Name, "Peito De Frango")
	}
	if !p.Price.Equal(decimal.RequireFromString("32.90")) {
		t.Fatalf("price = %s, want 32.90", p.Price)
	}
	if _, err := productRepo.FindByCode("1234"); err != nil {
		t.Fatalf("product 1234 not created: %v", err)
	}
}

func TestSimilarityRatio(t *testing.T) {
	if r := similarityRatio("acem", "acem"); r != 1 {
		t.Fatalf("identical strings ratio = %f, want 1", r)
	}
	if r := similarityRatio("acem", "xyzw"); r != 0 {
		t.Fatalf("disjoint strings ratio = %f, want 0", r)
	}
	a, b := "acem bovino", "acem moido"
	if r := similarityRatio(a, b); r <= 0.5 || r >= 1 {
		t.Fatalf("related strings ratio = %f, want in (0.5, 1)", r)
	}
}
