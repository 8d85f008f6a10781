package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderHierarchy(t *testing.T) {
	assert.Equal(t, "02-320", CostCenterOf("02-320_PLANT_DET"))
	assert.Equal(t, "PLANT", TaskOf("02-320_PLANT_DET"))
	assert.Equal(t, "02-320_PLANT", GroupKey("02-320_PLANT_DET"))

	// Flat headers carry no hierarchy.
	assert.Equal(t, "", CostCenterOf("START"))
	assert.Equal(t, "", TaskOf("02-320_PLANT"))
	assert.Equal(t, "", GroupKey("START"))

	// Underscored non-job headers are not cost-center coded.
	assert.Equal(t, "", CostCenterOf("EMPLOYEE_NAME"))
	assert.Equal(t, "", TaskOf("TOTAL_REG_HRS"))
}

func TestHeaderClassification(t *testing.T) {
	assert.True(t, IsTimeHeader("LUNCH OUT"))
	assert.True(t, IsTimeHeader("start"))
	assert.False(t, IsTimeHeader("TOTAL HRS"))
	assert.True(t, IsHoursHeader("TOTAL HRS"))
	assert.True(t, IsPieceHeader("PCS PICKED"))
	assert.True(t, IsNameHeader("EMPLOYEE_NAME"))
	assert.False(t, IsNameHeader("JOB"))
}
