// Package monitor polls the scale export file and drives the whole
// parse → reconcile → panel-sync pipeline whenever it changes.
package monitor

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-paineltv/internal/repository"
	"go-paineltv/internal/service"
)

type Monitor struct {
	log       zerolog.Logger
	path      string
	interval  time.Duration
	importSvc service.ImportService
	syncSvc   service.SyncService
	panelRepo repository.PanelRepository

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// last observed modification time; touched only by the loop goroutine
	lastMtime time.Time
	hasMtime  bool
}

func New(log zerolog.Logger, path string, interval time.Duration, importSvc service.ImportService, syncSvc service.SyncService, panelRepo repository.PanelRepository) *Monitor {
	return &Monitor{
		log:       log,
		path:      path,
		interval:  interval,
		importSvc: importSvc,
		syncSvc:   syncSvc,
		panelRepo: panelRepo,
	}
}

// Start launches the polling loop. Calling Start on a running monitor is a
// no-op. The loop stops when ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	if m.path == "" {
		return errors.New("monitor: no watch path configured")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	go m.loop(ctx)
	m.log.Info().Str("path", m.path).Dur("interval", m.interval).Msg("monitor started")
	return nil
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.log.Info().Msg("monitor stopped")
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	// first pass right away, then on the ticker
	m.tick()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// tick runs one poll. Every failure is logged and swallowed: the loop must
// survive any single bad pass. The observed mtime advances only after a
// successful import, so a failed pass is retried on the next interval.
func (m *Monitor) tick() {
	fi, err := os.Stat(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Error().Err(err).Str("path", m.path).Msg("monitor: stat failed")
		}
		return
	}
	mtime := fi.ModTime()
	if m.hasMtime && mtime.Equal(m.lastMtime) {
		return
	}

	res, job, err := m.importSvc.ImportFromFile(m.path, "monitor")
	if err != nil {
		m.log.Error().Err(err).Str("path", m.path).Msg("monitor: import failed")
		return
	}
	m.log.Info().
		Str("path", m.path).
		Int("imported", res.ImportedCount).
		Int("quarantined", res.QuarantineCount).
		Int("errors", len(res.Errors)).
		Str("job_id", job.ID.String()).
		Msg("monitor: export imported")

	m.syncDefaultPanels()

	m.lastMtime = mtime
	m.hasMtime = true
}

// syncDefaultPanels refreshes the default panel of every active department.
// A department without one is skipped; a sync failure only affects that
// department.
func (m *Monitor) syncDefaultPanels() {
	departments, err := m.panelRepo.ListActiveDepartments()
	if err != nil {
		m.log.Error().Err(err).Msg("monitor: listing departments failed")
		return
	}
	for _, dept := range departments {
		panel, err := m.panelRepo.FindDefaultPanel(dept.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			m.log.Error().Err(err).Str("department", dept.Name).Msg("monitor: default panel lookup failed")
			continue
		}
		res, err := m.syncSvc.SyncPanel(dept.ID, panel.ID, true)
		if err != nil {
			m.log.Error().Err(err).Str("department", dept.Name).Msg("monitor: panel sync failed")
			continue
		}
		m.log.Info().
			Str("department", dept.Name).
			Int("removed", res.RemovedCount).
			Int("added", res.AddedCount).
			Msg("monitor: panel synced")
	}
}
