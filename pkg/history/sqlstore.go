package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dynosched/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const sqlBatchSize = 200

// SQLStore keeps records in a SQLite table ordered by insertion sequence.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore opens (or creates) the SQLite database at path.
func NewSQLStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.AutoMigrate(&models.ActionRecord{}); err != nil {
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(ctx context.Context) ([]ActionRecord, error) {
	var rows []models.ActionRecord
	if err := s.db.WithContext(ctx).Order("seq DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]ActionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromModel(row))
	}
	return records, nil
}

// Save replaces the table contents inside one transaction. Rows are inserted
// oldest first so the sequence column preserves the order.
func (s *SQLStore) Save(ctx context.Context, records []ActionRecord) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM action_records").Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		rows := make([]models.ActionRecord, 0, len(records))
		for i := len(records) - 1; i >= 0; i-- {
			rows = append(rows, toModel(records[i]))
		}
		return tx.CreateInBatches(rows, sqlBatchSize).Error
	})
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toModel(r ActionRecord) models.ActionRecord {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return models.ActionRecord{
		ID:            r.ID,
		Timestamp:     r.Timestamp,
		AppName:       r.AppName,
		Action:        string(r.Action),
		Success:       r.Success,
		Error:         r.Error,
		PreviousState: string(r.PreviousState),
		NewState:      string(r.NewState),
		Trigger:       string(r.Trigger),
	}
}

func fromModel(m models.ActionRecord) ActionRecord {
	return ActionRecord{
		ID:            m.ID,
		Timestamp:     m.Timestamp,
		AppName:       m.AppName,
		Action:        Action(m.Action),
		Success:       m.Success,
		Error:         m.Error,
		PreviousState: AppState(m.PreviousState),
		NewState:      AppState(m.NewState),
		Trigger:       Trigger(m.Trigger),
	}
}
