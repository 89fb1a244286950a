package poi

import (
	"fmt"

	"github.com/acetools/acemap/internal/model"
	"github.com/acetools/acemap/internal/model/convert"
	"github.com/acetools/acemap/pkg/core"
	"gorm.io/gorm"
)

// SQLStore keeps POIs in the pois table of a gorm database.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps db.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the pois table if needed.
func (s *SQLStore) Migrate() error {
	if err := s.db.AutoMigrate(&model.POI{}); err != nil {
		return fmt.Errorf("migrate pois: %w", err)
	}
	return nil
}

// Replace swaps the table contents for pois in one transaction.
func (s *SQLStore) Replace(pois []core.PointOfInterest) error {
	rows := convert.CoreToPOIs(pois)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.POI{}).Error; err != nil {
			return fmt.Errorf("clear pois: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("insert pois: %w", err)
		}
		return nil
	})
}

// All returns every stored POI ordered by name.
func (s *SQLStore) All() ([]core.PointOfInterest, error) {
	var rows []model.POI
	if err := s.db.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load pois: %w", err)
	}
	return convert.POIsToCore(rows), nil
}

// Count returns the number of stored POIs.
func (s *SQLStore) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&model.POI{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count pois: %w", err)
	}
	return n, nil
}

// LoadIndex reads all stored POIs into an Index.
func (s *SQLStore) LoadIndex() (*Index, error) {
	pois, err := s.All()
	if err != nil {
		return nil, err
	}
	return NewIndex(pois), nil
}
