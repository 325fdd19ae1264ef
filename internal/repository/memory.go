package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/deposit-service/internal/models"
)

// MemoryRepository is an in-memory implementation of CalculationRepository
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   []models.Calculation
	now    func() time.Time
}

// NewMemoryRepository creates a new in-memory calculation repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

// SaveCalculation stores the calculation in memory
func (r *MemoryRepository) SaveCalculation(_ context.Context, calc *models.Calculation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	calc.ID = r.nextID
	calc.CreatedAt = r.now()
	r.data = append(r.data, *calc)
	return nil
}

// ListCalculations returns the owner's most recent calculations, newest first
func (r *MemoryRepository) ListCalculations(_ context.Context, owner string, limit int) ([]models.Calculation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Calculation{}
	for i := len(r.data) - 1; i >= 0 && len(out) < limit; i-- {
		if r.data[i].Owner == owner {
			out = append(out, r.data[i])
		}
	}
	return out, nil
}
