package app

import (
	"fmt"
	"log"

	"sevaflow/internal/config"
	"sevaflow/internal/extract"
	"sevaflow/internal/httpx"
	"sevaflow/internal/integrations/llm"
	"sevaflow/internal/intake"
	"sevaflow/internal/lifecycle"
	"sevaflow/internal/metrics"
	"sevaflow/internal/routing"
	"sevaflow/internal/storage/sqlite"
)

// runtime is the wired pipeline every command works through.
type runtime struct {
	cfg     config.Config
	store   *sqlite.Store
	metrics *metrics.Metrics
	svc     *intake.Service
}

func openRuntime() (*runtime, error) {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	backends, err := llm.FromConfig(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := metrics.New()
	extractor := extract.New(cfg.Catalog, backends,
		extract.WithTimeout(cfg.ClassifierTimeout()),
		extract.WithFallbackConfidence(cfg.FallbackConfidence),
		extract.WithRecorder(m),
	)
	svc := intake.NewService(cfg.Catalog, extractor, routing.New(cfg.Catalog), lifecycle.New(store), store).
		WithRecorder(m)

	log.Printf(
		"Config loaded. DB=%s Backends=%v ClassifierTimeout=%s Departments=%d DefaultDepartment=%s Managers=%d Timezone=%s ExternalHTTPTimeout=%s",
		cfg.DBPath,
		cfg.ClassifierBackends,
		cfg.ClassifierTimeout(),
		len(cfg.Catalog.Departments()),
		cfg.Catalog.DefaultUnit(),
		len(cfg.ManagerSlackIDs),
		cfg.Timezone,
		appliedHTTPTimeout,
	)
	return &runtime{cfg: cfg, store: store, metrics: m, svc: svc}, nil
}

func (r *runtime) Close() error {
	return r.store.Close()
}
