package admin

import (
	"github.com/ZJUSCT/DailyBoard/internal/config"
	"github.com/ZJUSCT/DailyBoard/internal/league"
)

// Handler holds all dependencies for the admin API handlers.
type Handler struct {
	cfg *config.Config
	svc *league.Service
}

// NewHandler creates a new admin handler with its dependencies.
func NewHandler(cfg *config.Config, svc *league.Service) *Handler {
	return &Handler{
		cfg: cfg,
		svc: svc,
	}
}
