package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileVocabularyAppend(t *testing.T) {
	p := &CompanyProfile{}
	assert.True(t, p.AddCostCenter("02-320"))
	assert.False(t, p.AddCostCenter("02-320"))
	assert.False(t, p.AddCostCenter(""))
	assert.True(t, p.AddTask("PLANT"))
	assert.True(t, p.AddCrewName("John Smith"))
	p.SetTimeFormat("prefers_colon_format", true)
	assert.True(t, p.TimeFormats["prefers_colon_format"])
	assert.Len(t, p.CostCenters, 1)
}
