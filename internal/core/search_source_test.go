package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHumanizeField(t *testing.T) {
	tests := map[string]string{
		"business_continuity_plan": "Business Continuity Plan",
		"project-scope":            "Project Scope",
		"économie_plan":            "Économie Plan",
		"__x__":                    "X",
		"":                         "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HumanizeField(in), in)
	}
}

func TestRowItem(t *testing.T) {
	def := riskDefinition()
	item := RowItem(def, Row{ID: "r1", Data: Record{"risk_id": "4", "description": "Supplier delay", "status": "open"}})

	assert.Equal(t, "M9/risk_register/r1", item.ID)
	assert.Equal(t, "#4 Supplier delay", item.Label)
	assert.Equal(t, "Risk Register", item.GroupLabel)
	assert.Contains(t, item.SearchText, "Supplier delay")
	assert.Contains(t, item.SearchText, "Open")
	assert.NotContains(t, item.SearchText, "Risk Register", "the table label must not make every row match")
}
