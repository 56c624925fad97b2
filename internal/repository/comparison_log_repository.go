package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComparisonLogModel is the GORM model for the comparison_logs table.
type ComparisonLogModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	StartAddress      string    `gorm:"not null;size:500"`
	EndAddress        string    `gorm:"not null;size:500"`
	Status            string    `gorm:"not null;size:20;index"`
	VariantsRequested int       `gorm:"not null"`
	RoutesSucceeded   int       `gorm:"not null;default:0"`
	ErrorCode         string    `gorm:"size:40"`
	ErrorCause        string    `gorm:"size:100"`
	ElapsedMs         int64     `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (ComparisonLogModel) TableName() string {
	return "comparison_logs"
}

// GormComparisonLogRepository is the GORM-based implementation of ComparisonLogRepository.
type GormComparisonLogRepository struct {
	db *gorm.DB
}

// NewGormComparisonLogRepository creates a new GormComparisonLogRepository.
func NewGormComparisonLogRepository(db *gorm.DB) *GormComparisonLogRepository {
	return &GormComparisonLogRepository{db: db}
}

// Save persists a new log entry.
func (r *GormComparisonLogRepository) Save(ctx context.Context, entry *route.ComparisonLogEntry) error {
	if err := r.db.WithContext(ctx).Create(toComparisonLogModel(entry)).Error; err != nil {
		return fmt.Errorf("failed to save comparison log: %w", err)
	}
	return nil
}

// FindByID retrieves a log entry by its unique identifier.
func (r *GormComparisonLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*route.ComparisonLogEntry, error) {
	var model ComparisonLogModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", route.ErrComparisonNotFound, id)
		}
		return nil, fmt.Errorf("failed to find comparison log by ID: %w", err)
	}
	return toDomainComparisonLog(&model)
}

// ListRecent retrieves log entries, newest first, with pagination.
func (r *GormComparisonLogRepository) ListRecent(ctx context.Context, page, limit int) ([]*route.ComparisonLogEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ComparisonLogModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count comparison logs: %w", err)
	}

	var models []ComparisonLogModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list comparison logs: %w", err)
	}

	entries := make([]*route.ComparisonLogEntry, len(models))
	for i := range models {
		entry, err := toDomainComparisonLog(&models[i])
		if err != nil {
			return nil, 0, err
		}
		entries[i] = entry
	}

	return entries, total, nil
}

// CountByStatus returns log entry counts grouped by status.
func (r *GormComparisonLogRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&ComparisonLogModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toComparisonLogModel(e *route.ComparisonLogEntry) *ComparisonLogModel {
	return &ComparisonLogModel{
		ID:                e.ID,
		StartAddress:      e.StartAddress,
		EndAddress:        e.EndAddress,
		Status:            e.Status.String(),
		VariantsRequested: e.VariantsRequested,
		RoutesSucceeded:   e.RoutesSucceeded,
		ErrorCode:         e.ErrorCode,
		ErrorCause:        e.ErrorCause,
		ElapsedMs:         e.ElapsedMs,
		CreatedAt:         e.CreatedAt,
	}
}

func toDomainComparisonLog(m *ComparisonLogModel) (*route.ComparisonLogEntry, error) {
	status, err := route.ParseComparisonStatus(m.Status)
	if err != nil {
		return nil, fmt.Errorf("comparison log %s: %w", m.ID, err)
	}
	return &route.ComparisonLogEntry{
		ID:                m.ID,
		StartAddress:      m.StartAddress,
		EndAddress:        m.EndAddress,
		Status:            status,
		VariantsRequested: m.VariantsRequested,
		RoutesSucceeded:   m.RoutesSucceeded,
		ErrorCode:         m.ErrorCode,
		ErrorCause:        m.ErrorCause,
		ElapsedMs:         m.ElapsedMs,
		CreatedAt:         m.CreatedAt,
	}, nil
}
