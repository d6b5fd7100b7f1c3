package query

// Table is a logical table of the measurement store.
type Table string

// Allowed tables.
const (
	// TableObservations holds one row per measured level, joined with its profile position and time.
	TableObservations Table = "argo_observations"
	// TableTrajectories holds one row per float surfacing position.
	TableTrajectories Table = "argo_trajectories"
)

// Base columns shared by both tables.
const (
	ColFloatID    = "float_id"
	ColCycle      = "cycle_number"
	ColLatitude   = "latitude"
	ColLongitude  = "longitude"
	ColObservedAt = "observed_at"
	ColDepth      = "depth"
	ColPressure   = "pressure"
)

// ColumnType is the declared type of a column.
type ColumnType string

// Column types.
const (
	TypeText      ColumnType = "text"
	TypeInteger   ColumnType = "integer"
	TypeDouble    ColumnType = "double"
	TypeTimestamp ColumnType = "timestamp"
)

// BaseColumns are projected for every row-level query.
var BaseColumns = []string{ColFloatID, ColCycle, ColLatitude, ColLongitude, ColObservedAt}

var schema = map[Table]map[string]ColumnType{
	TableTrajectories: {
		ColFloatID:    TypeText,
		ColCycle:      TypeInteger,
		ColLatitude:   TypeDouble,
		ColLongitude:  TypeDouble,
		ColObservedAt: TypeTimestamp,
	},
	TableObservations: {
		ColFloatID:    TypeText,
		ColCycle:      TypeInteger,
		ColLatitude:   TypeDouble,
		ColLongitude:  TypeDouble,
		ColObservedAt: TypeTimestamp,
		ColPressure:   TypeDouble,
		ColDepth:      TypeDouble,
		"temperature": TypeDouble,
		"salinity":    TypeDouble,
		"oxygen":      TypeDouble,
		"chlorophyll": TypeDouble,
		"backscatter": TypeDouble,
		"nitrate":     TypeDouble,
		"ph":          TypeDouble,
	},
}

// AllowedTable reports whether t is in the allow-list.
func AllowedTable(t Table) bool {
	_, ok := schema[t]
	return ok
}

// AllowedColumn reports whether col exists in table t.
func AllowedColumn(t Table, col string) bool {
	_, ok := schema[t][col]
	return ok
}

// TypeOf returns the declared type of col in t.
func TypeOf(t Table, col string) (ColumnType, bool) {
	ct, ok := schema[t][col]
	return ct, ok
}

// IsMeasurement reports whether col is a measured variable of the observations table.
// Position and level columns are coordinates, not measurements.
func IsMeasurement(col string) bool {
	ct, ok := schema[TableObservations][col]
	if !ok || ct != TypeDouble {
		return false
	}
	switch col {
	case ColLatitude, ColLongitude, ColPressure, ColDepth:
		return false
	}
	return true
}

// IsLevel reports whether col is a vertical coordinate (pressure or depth).
func IsLevel(col string) bool {
	return col == ColPressure || col == ColDepth
}
