package orders

import (
	"strings"
	"time"
)

var exportFields = []Field{
	FieldTimestamp,
	FieldCustomer,
	FieldPhone,
	FieldDetails,
	FieldPriority,
	FieldStatus,
	FieldAssignee,
}

// ToCSV serializes records with one header line and every value wrapped in
// double quotes. Embedded quotes are not escaped. The ID column is present
// when any record carries an ID.
func ToCSV(records []Record) string {
	if len(records) == 0 {
		return ""
	}

	fields := exportFields
	if anyID(records) {
		fields = append(append([]Field(nil), exportFields...), FieldID)
	}

	headers := make([]string, len(fields))
	for i, f := range fields {
		headers[i] = FieldAliases[f][0]
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(headers, ","))
	for _, r := range records {
		cells := make([]string, len(fields))
		for i, f := range fields {
			cells[i] = `"` + r.value(f) + `"`
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

func anyID(records []Record) bool {
	for _, r := range records {
		if r.ID != "" {
			return true
		}
	}
	return false
}

// ExportFilename names a download for the given day (UTC date).
func ExportFilename(now time.Time) string {
	return "customer-orders-" + now.UTC().Format("2006-01-02") + ".csv"
}

func (r Record) value(f Field) string {
	switch f {
	case FieldTimestamp:
		return r.Timestamp
	case FieldCustomer:
		return r.CustomerName
	case FieldPhone:
		return r.Phone
	case FieldDetails:
		return r.Details
	case FieldPriority:
		return r.Priority
	case FieldStatus:
		return r.Status
	case FieldAssignee:
		return r.AssignedTo
	case FieldID:
		return r.ID
	}
	return ""
}
