package repository

import (
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparisonLogConversion(t *testing.T) {
	entry := &route.ComparisonLogEntry{
		ID:                uuid.New(),
		StartAddress:      "Leverkusen",
		EndAddress:        "Solingen",
		Status:            route.StatusDone,
		VariantsRequested: 4,
		RoutesSucceeded:   3,
		ElapsedMs:         812,
		CreatedAt:         time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
	}

	model := toComparisonLogModel(entry)
	assert.Equal(t, "done", model.Status)
	assert.Equal(t, "comparison_logs", model.TableName())

	back, err := toDomainComparisonLog(model)
	require.NoError(t, err)
	assert.Equal(t, entry, back)
}

func TestComparisonLogConversion_InvalidStatus(t *testing.T) {
	_, err := toDomainComparisonLog(&ComparisonLogModel{ID: uuid.New(), Status: "exploded"})
	assert.Error(t, err)
}
