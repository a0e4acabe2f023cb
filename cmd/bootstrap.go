package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/meetsight/attendance/internal/attendance"
	"github.com/meetsight/attendance/internal/bot"
	"github.com/meetsight/attendance/internal/config"
	"github.com/meetsight/attendance/internal/database"
	"github.com/meetsight/attendance/internal/database/postgres"
	"github.com/meetsight/attendance/internal/detector"
	"github.com/meetsight/attendance/internal/matcher"
	"github.com/meetsight/attendance/internal/roster"
	"github.com/meetsight/attendance/internal/vector"
)

// app holds the wired services shared by all commands. The vector backend
// is chosen once here and never changes for the lifetime of the process.
type app struct {
	cfg  *config.Config
	pool *postgres.Pool

	students database.StudentStore
	sessions database.SessionStore
	pings    database.PingStore
	vectors  vector.Store

	roster    *roster.Service
	processor *attendance.Processor
	reporter  *attendance.Reporter

	// saveIndex persists the vector index on shutdown, nil when the
	// backend has nothing to save.
	saveIndex func() error
}

// buildApp connects storage and wires the attendance services.
// needDetector commands fail fast when DETECTOR_URL is not configured.
func buildApp(needDetector bool) (*app, error) {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Connect(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	a := &app{
		cfg:      cfg,
		pool:     pool,
		students: postgres.NewStudentRepository(pool),
		sessions: postgres.NewSessionRepository(pool),
		pings:    postgres.NewPingRepository(pool),
	}

	if err := a.openVectorStore(); err != nil {
		pool.Close()
		return nil, err
	}

	var det detector.Detector
	if cfg.Detector.URL != "" {
		det = detector.NewClient(cfg.Detector.URL, time.Duration(cfg.Detector.TimeoutSeconds)*time.Second)
	} else if needDetector {
		pool.Close()
		return nil, errors.New("DETECTOR_URL environment variable is required")
	}

	resolver := matcher.NewResolver(a.vectors, cfg.Matching.MatchThreshold)
	a.roster = roster.NewService(a.students, a.vectors, det, cfg.Uploads.Dir)
	a.processor = attendance.NewProcessor(det, resolver, a.students, a.sessions, a.pings,
		cfg.Matching.RejectClosedSessions)
	a.reporter = attendance.NewReporter(a.students, a.pings, cfg.Matching.PresenceThreshold)

	return a, nil
}

// openVectorStore selects the embedding backend from VECTOR_BACKEND.
func (a *app) openVectorStore() error {
	switch a.cfg.Vector.Backend {
	case config.BackendMemory:
		a.vectors = vector.NewMemoryStore()
	case config.BackendHNSW:
		store, err := vector.NewHNSWStore(a.cfg.Vector.IndexPath)
		if err != nil {
			return fmt.Errorf("opening HNSW index: %w", err)
		}
		a.vectors = store
		a.saveIndex = store.Save
	case config.BackendPostgres:
		a.vectors = postgres.NewEmbeddingRepository(a.pool)
	default:
		return fmt.Errorf("unknown vector backend %q", a.cfg.Vector.Backend)
	}
	fmt.Printf("Using %s vector backend\n", a.cfg.Vector.Backend)
	return nil
}

// dispatcher picks the bot client: Recall when an API key is configured,
// the local frame-directory simulator otherwise.
func (a *app) dispatcher() bot.Dispatcher {
	if a.cfg.Recall.APIKey != "" {
		return bot.NewRecallClient(a.cfg.Recall.URL, a.cfg.Recall.APIKey)
	}
	return bot.NewSimClient()
}

// close releases storage and persists the vector index if needed.
func (a *app) close() {
	if a.saveIndex != nil {
		if err := a.saveIndex(); err != nil {
			fmt.Printf("Warning: failed to save vector index: %v\n", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
