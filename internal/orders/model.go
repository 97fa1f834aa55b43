package orders

// RawRow maps a column header to the cell value of one CSV line or result row.
type RawRow map[string]string

// Record is a normalized customer request. Every field except ID is
// non-empty once it has passed through Normalize.
type Record struct {
	ID           string `json:"id,omitempty"`
	Timestamp    string `json:"timestamp"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Details      string `json:"details"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	AssignedTo   string `json:"assigned_to"`
}

// Stats summarizes a record set for the dashboard cards.
type Stats struct {
	Total int `json:"total"`
	Today int `json:"today"`
	// AvgProcessingSeconds is a placeholder value drawn at random per record;
	// no duration data exists in the source sheet.
	AvgProcessingSeconds int `json:"avg_processing_seconds"`
	SuccessRate          int `json:"success_rate"`
}

// Row is a table view-model for one record.
type Row struct {
	Record
	DisplayTime   string `json:"display_time"`
	DetailsShort  string `json:"details_short"`
	PriorityClass string `json:"priority_class"`
	StatusClass   string `json:"status_class"`
}
