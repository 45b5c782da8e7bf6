package handlers

import (
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/sundayrunners/attendapi/calendar"
	"github.com/sundayrunners/attendapi/config"
	"github.com/sundayrunners/attendapi/history"
	"github.com/sundayrunners/attendapi/notify"
	"github.com/sundayrunners/attendapi/override"
	"github.com/sundayrunners/attendapi/registration"
	"github.com/sundayrunners/attendapi/registry"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db       *bun.DB
	cfg      *config.Config
	logger   *zap.Logger
	engine   *registration.Engine
	calendar *calendar.Service
	history  *history.Service
	override *override.Service
	runs     registry.RunStore
	hub      *notify.Hub
}

// New wires a Handler and the services behind it. The hub receives
// registration events alongside the log sink and feeds the SSE stream.
func New(db *bun.DB, cfg *config.Config, logger *zap.Logger) *Handler {
	runs := registry.NewRunStore(db)
	atts := registry.NewAttendanceStore(db)
	hub := notify.NewHub()
	sink := notify.Multi{&notify.LogNotifier{Logger: logger}, hub}

	return &Handler{
		db:       db,
		cfg:      cfg,
		logger:   logger,
		engine:   registration.NewEngine(runs, atts, sink, logger),
		calendar: calendar.New(db, logger),
		history:  history.New(db, logger),
		override: override.New(db, logger),
		runs:     runs,
		hub:      hub,
	}
}

// JWTKey exposes the signing key for route wiring.
func (h *Handler) JWTKey() []byte {
	return h.cfg.JWTKey()
}
