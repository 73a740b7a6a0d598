package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-paineltv/internal/config"
	"go-paineltv/internal/model"
	"go-paineltv/internal/monitor"
	"go-paineltv/internal/repository"
	"go-paineltv/internal/service"
	"go-paineltv/pkg/database"
	"go-paineltv/pkg/logs"
)

func main() {
	// 1. Load Env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logs.New("", true)
		bootLog.Fatal().Err(err).Msg("configuration invalid")
	}
	log := logs.New(cfg.LogFile, cfg.LogConsole)

	// 2. Setup Database
	db, err := openDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// 3. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	panelRepo := repository.NewPanelRepo(db)
	importRepo := repository.NewImportRepo(db)

	// 4. Seed default departments and their default panels
	seedDefaultDepartments(panelRepo, log)

	// one writer lock for every reconcile/sync entry point
	var writerMu sync.Mutex
	importSvc := service.NewImportService(&writerMu, productRepo, importRepo, log,
		cfg.PriceDeltaLimitPct, cfg.NameSimilarityMin)
	syncSvc := service.NewSyncService(&writerMu, productRepo, panelRepo, log,
		time.Duration(cfg.PanelFreshnessMin)*time.Minute)

	// 5. File Monitor
	mon := monitor.New(log, cfg.WatchPath,
		time.Duration(cfg.WatchIntervalMin)*time.Minute, importSvc, syncSvc, panelRepo)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.WatchPath == "" {
		log.Warn().Msg("TOLEDO_WATCH_PATH not set, file monitor disabled")
	} else if err := mon.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("monitor failed to start")
	}

	// 6. Wait for interrupt signal to shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")
	mon.Stop()
}

// openDB picks the driver from the DSN: "sqlite:<path>" for embedded
// single-host deployments, anything else is a Postgres DSN.
func openDB(dsn string) (*gorm.DB, error) {
	if path, ok := strings.CutPrefix(dsn, "sqlite:"); ok {
		return database.ConnectSQLite(path)
	}
	return database.Connect(dsn)
}

// seedDefaultDepartments creates the standard departments and their default
// panels if they don't exist yet.
func seedDefaultDepartments(repo repository.PanelRepository, log zerolog.Logger) {
	seeds := []model.Department{
		{Name: "Açougue", Code: "ACG", Description: "Departamento de carnes e derivados", Color: "#DC2626", Icon: "Beef", Active: true},
		{Name: "Padaria", Code: "PAD", Description: "Departamento de pães e confeitaria", Color: "#D97706", Icon: "Croissant", Active: true},
		{Name: "Hortifrúti", Code: "HRT", Description: "Departamento de frutas, verduras e legumes", Color: "#059669", Icon: "Apple", Active: true},
	}

	for i := range seeds {
		dept := seeds[i]
		if _, err := repo.FindDepartmentByCode(dept.Code); err == nil {
			continue
		}
		if err := repo.CreateDepartment(&dept); err != nil {
			log.Warn().Err(err).Str("department", dept.Name).Msg("failed to seed department")
			continue
		}
		panel := model.DepartmentPanel{
			Name:         "Painel Principal " + dept.Name,
			Description:  "Painel principal do departamento " + dept.Name,
			DepartmentID: dept.ID,
			Title:        strings.ToUpper(dept.Name),
			Subtitle:     "Produtos Selecionados",
			FooterText:   "Horário de funcionamento: Segunda a Sábado das 7h às 19h",
			IsDefault:    true,
			Active:       true,
			DisplayOrder: 1,
		}
		if err := repo.CreatePanel(&panel); err != nil {
			log.Warn().Err(err).Str("department", dept.Name).Msg("failed to seed default panel")
			continue
		}
		log.Info().Str("department", dept.Name).Msg("department seeded with default panel")
	}
}
