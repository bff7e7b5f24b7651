package store

import (
	"testing"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder(DialectPostgres)

	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}

	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	whereClause, args := NewWhereBuilder(DialectPostgres).Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}

	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Add_MultipleConditions(t *testing.T) {
	wb := NewWhereBuilder(DialectPostgres)
	wb.Add("project_id", "p1").Add("section", "M9")

	whereClause, args := wb.Build()

	expectedClause := " WHERE project_id = $1 AND section = $2"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}

	if len(args) != 2 || args[0] != "p1" || args[1] != "M9" {
		t.Errorf("expected args ['p1', 'M9'], got %v", args)
	}
}

func TestWhereBuilder_Add_EmptyValue_Skipped(t *testing.T) {
	wb := NewWhereBuilder(DialectPostgres)
	wb.Add("section", "")
	wb.Add("table_key", "risk")

	whereClause, args := wb.Build()

	// Empty value should be skipped, so only "table_key" condition should exist
	expectedClause := " WHERE table_key = $1"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}

	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
}

func TestWhereBuilder_SQLitePlaceholders(t *testing.T) {
	wb := NewWhereBuilder(DialectSQLite)
	wb.Add("project_id", "p1").AddOp("created_at", "<", "2024-01-01")

	whereClause, _ := wb.Build()

	expectedClause := " WHERE project_id = ? AND created_at < ?"
	if whereClause != expectedClause {
		t.Errorf("expected %q, got %q", expectedClause, whereClause)
	}
}

func TestWhereBuilder_NextArgIndex(t *testing.T) {
	wb := NewWhereBuilder(DialectPostgres)

	if wb.NextArgIndex() != 1 {
		t.Errorf("expected initial NextArgIndex to be 1, got %d", wb.NextArgIndex())
	}

	wb.Add("col1", "val1")
	if wb.NextArgIndex() != 2 {
		t.Errorf("expected NextArgIndex after 1 add to be 2, got %d", wb.NextArgIndex())
	}

	wb.AddOp("col2", ">=", 5)
	wb.AddOp("col3", "<=", nil)
	if wb.NextArgIndex() != 3 {
		t.Errorf("expected nil value to be skipped, got NextArgIndex %d", wb.NextArgIndex())
	}
}

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		dialect Dialect
		query   string
		want    string
	}{
		{DialectSQLite, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = ? AND b = ?"},
		{DialectPostgres, "SELECT 1 WHERE a = ? AND b = ?", "SELECT 1 WHERE a = $1 AND b = $2"},
		{DialectPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String()+"/"+tt.query, func(t *testing.T) {
			if got := tt.dialect.rebind(tt.query); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
