package core

import "strconv"

// SequentialKeys are identifier columns that auto-increment and are always unique.
var SequentialKeys = []string{"sl_no", "constraint_no", "risk_id", "opportunity_id"}

// IsSequentialKey reports whether key names a sequential identifier column.
func IsSequentialKey(key string) bool {
	for _, k := range SequentialKeys {
		if k == key {
			return true
		}
	}
	return false
}

// NextSequentialID returns max(existing integer values)+1 for the column,
// or "1" when no existing value parses as an integer.
func NextSequentialID(rows []Row, key string) string {
	next := 1
	for _, row := range rows {
		n, err := strconv.Atoi(SanitizeNumeric(ValueString(row.Data[key])))
		if err != nil {
			continue
		}
		if n+1 > next {
			next = n + 1
		}
	}
	return strconv.Itoa(next)
}

// NextSequentialIDs computes the next value for every sequential column
// the table declares. Tables without such columns get an empty record.
func NextSequentialIDs(def TableDefinition, rows []Row) Record {
	out := make(Record)
	for _, col := range def.Columns {
		if IsSequentialKey(col.Key) {
			out[col.Key] = NextSequentialID(rows, col.Key)
		}
	}
	return out
}

// SequentialColumns returns the sequential identifier columns of a table,
// in column order.
func SequentialColumns(def TableDefinition) []string {
	var keys []string
	for _, col := range def.Columns {
		if IsSequentialKey(col.Key) {
			keys = append(keys, col.Key)
		}
	}
	return keys
}
