package repository

import (
	"context"

	"github.com/RMahshie/smbv/pkg/models"
)

// EventRepository defines the interface for the output event journal
type EventRepository interface {
	Record(ctx context.Context, event *models.OutputEvent) error
	ListRecent(ctx context.Context, limit int) ([]*models.OutputEvent, error)
}
