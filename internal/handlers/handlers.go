package handlers

import (
	"database/sql"

	"github.com/Kevin-webdesign/smart-farm/internal/ai"
	"github.com/Kevin-webdesign/smart-farm/internal/notify"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB        *sql.DB
	AIService *ai.AIService
	Notify    *notify.Service
}
