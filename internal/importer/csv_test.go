package importer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/planbook/internal/core"
	_ "github.com/JonMunkholm/planbook/internal/core/tables"
)

type memoryTable struct {
	rows []core.Row
}

func (m *memoryTable) AddRow(_ context.Context, data core.Record) (core.Row, error) {
	row := core.Row{ID: fmt.Sprintf("row-%d", len(m.rows)+1), Data: data.Clone()}
	m.rows = append(m.rows, row)
	return row, nil
}

func (m *memoryTable) EditRow(_ context.Context, rowID string, data core.Record) (core.Row, error) {
	return core.Row{ID: rowID, Data: data}, nil
}

func (m *memoryTable) DeleteRow(context.Context, string) error { return nil }

func riskController(t *testing.T, rows ...core.Row) *core.TableController {
	t.Helper()
	def, err := core.MustGet("M9", "risk_mitigation_and_contingency")
	require.NoError(t, err)
	return core.NewTableController(def, &memoryTable{}, core.WithRows(rows))
}

func TestCleanHeader(t *testing.T) {
	tests := map[string]string{
		"\ufeffRisk ID":  "risk id",
		" risk_id ":      "risk id",
		`="Probability"`: "probability",
		"Risk   Exposure": "risk exposure",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanHeader(in), in)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	ctrl := riskController(t, core.Row{ID: "r1", Data: core.Record{"risk_id": "1"}})

	csv := strings.Join([]string{
		"Risk register export,,,",
		"",
		"Risk ID,Risk Description,probability,Impact,Risk Exposure",
		",Supplier delay,.5,4,999",
		"1,Clashes with existing,0.1,1,",
		",,,,",
		"7,Budget overrun,0.2,5,",
	}, "\n")

	res, err := Import(ctx, ctrl, strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, res.Imported, 2)
	assert.Equal(t, "2", res.Imported[0].Data["risk_id"], "blank sequential id is allocated")
	assert.Equal(t, "2", res.Imported[0].Data["risk_exposure"], "derived value ignores the file")
	assert.Equal(t, "7", res.Imported[1].Data["risk_id"])
	assert.Equal(t, 3, ctrl.RowCount())

	require.Equal(t, 1, res.FailedCount())
	assert.Equal(t, "Status", res.Failed[0][0])
	assert.True(t, strings.HasPrefix(res.Failed[1][0], "line 5: "), res.Failed[1][0])

	var buf bytes.Buffer
	require.NoError(t, WriteFailures(&buf, res))
	assert.Contains(t, buf.String(), "Clashes with existing")
}

func TestImport_RowLimit(t *testing.T) {
	def, err := core.MustGet("M9", "risk_mitigation_and_contingency")
	require.NoError(t, err)
	def.Info.MaxRows = 1
	def.Info.MaxRowsMessage = "Only one risk."
	ctrl := core.NewTableController(def, &memoryTable{})

	res, err := Import(context.Background(), ctrl, strings.NewReader("risk_id\n1\n2\n3\n"))
	require.NoError(t, err)
	assert.Len(t, res.Imported, 1)
	require.Equal(t, 2, res.FailedCount())
	assert.Equal(t, "line 3: Only one risk.", res.Failed[1][0])
	assert.Equal(t, "line 4: not imported", res.Failed[2][0])
}

func TestImport_NoHeader(t *testing.T) {
	_, err := Import(context.Background(), riskController(t), strings.NewReader("a,b\n1,2\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Import(ctx, riskController(t), strings.NewReader("risk_id\n1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
