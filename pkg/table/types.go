package table

// Type is the logical type of a column.
type Type int

const (
	Int64 Type = iota
	Float64
	String
	Bool
	// Timestamp is milliseconds since the Unix epoch, stored as int64.
	Timestamp
)

// String returns the lower-case wire name of the type.
func (t Type) String() string {
	switch t {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case String:
		return "utf8"
	case Bool:
		return "bool"
	case Timestamp:
		return "timestamp"
	default:
		return "unknown"
	}
}

// TypeFromString parses a wire name produced by Type.String.
// Unrecognized names map to String, the widest type.
func TypeFromString(s string) Type {
	switch s {
	case "int64":
		return Int64
	case "float64":
		return Float64
	case "bool":
		return Bool
	case "timestamp":
		return Timestamp
	default:
		return String
	}
}

// Numeric reports whether values of this type participate in arithmetic
// and numeric statistics. Timestamps compare and aggregate as int64.
func (t Type) Numeric() bool {
	return t == Int64 || t == Float64 || t == Timestamp
}

// Field describes one column of a schema.
type Field struct {
	Name     string `json:"name"`
	Type     Type   `json:"-"`
	TypeName string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Schema is an ordered list of fields. Order is significant for projection
// but lookups are by name.
type Schema []Field

// FieldIndex returns the position of the named field, or -1.
func (s Schema) FieldIndex(name string) int {
	for i, f := range s {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// HasField reports whether the schema contains the named field.
func (s Schema) HasField(name string) bool { return s.FieldIndex(name) >= 0 }
