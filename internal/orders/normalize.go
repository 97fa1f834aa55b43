package orders

import "strings"

// Field names a canonical record field.
type Field string

const (
	FieldTimestamp Field = "timestamp"
	FieldCustomer  Field = "customer_name"
	FieldPhone     Field = "phone"
	FieldDetails   Field = "details"
	FieldPriority  Field = "priority"
	FieldStatus    Field = "status"
	FieldAssignee  Field = "assigned_to"
	FieldID        Field = "id"
)

// FieldAliases lists, per field, the header spellings accepted by every
// ingestion path, in lookup order. The first alias of each field is also the
// header used for CSV export.
var FieldAliases = map[Field][]string{
	FieldTimestamp: {"Timestamp", "timestamp"},
	FieldCustomer:  {"Customer Name", "customer_name", "Customer", "customer"},
	FieldPhone:     {"Phone Number", "phone_number", "Phone", "phone"},
	FieldDetails:   {"Order Details", "order_details", "Details", "details"},
	FieldPriority:  {"Priority", "priority"},
	FieldStatus:    {"Status", "status"},
	FieldAssignee:  {"Assigned To", "assigned_to", "Assigned", "assignedTo"},
	FieldID:        {"ID", "id"},
}

// FieldDefaults holds the value used when no alias yields a value.
var FieldDefaults = map[Field]string{
	FieldTimestamp: "N/A",
	FieldCustomer:  "N/A",
	FieldPhone:     "N/A",
	FieldDetails:   "N/A",
	FieldPriority:  "medium",
	FieldStatus:    "pending",
	FieldAssignee:  "Unassigned",
	FieldID:        "",
}

// Normalize maps a raw row onto a Record, tolerating the known header
// spellings. It never fails; absent fields take their defaults.
func Normalize(row RawRow) Record {
	return Record{
		ID:           lookup(row, FieldID),
		Timestamp:    lookup(row, FieldTimestamp),
		CustomerName: lookup(row, FieldCustomer),
		Phone:        lookup(row, FieldPhone),
		Details:      lookup(row, FieldDetails),
		Priority:     lookup(row, FieldPriority),
		Status:       lookup(row, FieldStatus),
		AssignedTo:   lookup(row, FieldAssignee),
	}
}

// NormalizeAll normalizes rows in order.
func NormalizeAll(rows []RawRow) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Normalize(row))
	}
	return out
}

func lookup(row RawRow, f Field) string {
	for _, alias := range FieldAliases[f] {
		if v := strings.TrimSpace(row[alias]); v != "" {
			return v
		}
	}
	return FieldDefaults[f]
}
