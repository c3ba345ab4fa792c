package repositories

import (
	"context"
	"fmt"

	"hospital-web-server/internal/models"
	"hospital-web-server/internal/services"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MedicationRepository is the gorm-backed StockLedger.
type MedicationRepository struct {
	DB *gorm.DB
}

// NewMedicationRepository creates a new MedicationRepository.
func NewMedicationRepository(db *gorm.DB) *MedicationRepository {
	return &MedicationRepository{DB: db}
}

// GetMedications fetches the medications for the given ids, keyed by id.
// Unknown ids are simply absent from the result.
func (r *MedicationRepository) GetMedications(ctx context.Context, ids []string) (map[string]*models.Medication, error) {
	var medications []models.Medication
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&medications).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*models.Medication, len(medications))
	for i := range medications {
		out[medications[i].ID] = &medications[i]
	}
	return out, nil
}

// ReduceStock applies the batch inside a single transaction. The involved
// rows are locked and read up front, every reduction is evaluated against
// that reading, and the decrements are written only when the whole batch
// fits. A shortage therefore reports the availability the caller will still
// find on the shelf, even when duplicate lines target the same medication.
func (r *MedicationRepository) ReduceStock(ctx context.Context, reductions []services.StockReduction) error {
	ids := make([]string, 0, len(reductions))
	seen := make(map[string]bool, len(reductions))
	for _, reduction := range reductions {
		if !seen[reduction.MedicationID] {
			seen[reduction.MedicationID] = true
			ids = append(ids, reduction.MedicationID)
		}
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var medications []models.Medication
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).Find(&medications).Error; err != nil {
			return err
		}

		stock := make(map[string]int, len(medications))
		for _, medication := range medications {
			stock[medication.ID] = medication.StockQuantity
		}
		for _, id := range ids {
			if _, ok := stock[id]; !ok {
				return fmt.Errorf("medication %s: %w", id, services.ErrNotFound)
			}
		}

		remaining := make(map[string]int, len(stock))
		for id, qty := range stock {
			remaining[id] = qty
		}
		var shortages []services.StockShortage
		for _, reduction := range reductions {
			if remaining[reduction.MedicationID] < reduction.Quantity {
				shortages = append(shortages, services.StockShortage{
					MedicationID: reduction.MedicationID,
					Requested:    reduction.Quantity,
					Available:    stock[reduction.MedicationID],
				})
				continue
			}
			remaining[reduction.MedicationID] -= reduction.Quantity
		}
		if len(shortages) > 0 {
			return &services.InsufficientStockError{Shortages: shortages}
		}

		for _, id := range ids {
			consumed := stock[id] - remaining[id]
			if consumed == 0 {
				continue
			}
			result := tx.Model(&models.Medication{}).
				Where("id = ? AND stock_quantity >= ?", id, consumed).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", consumed))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				// The row lock makes this unreachable; bail out rather
				// than commit a partial batch.
				return fmt.Errorf("medication %s: %w", id, services.ErrNotFound)
			}
		}
		return nil
	})
}
