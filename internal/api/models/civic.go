package models

// CivicReport is a citizen-submitted complaint as returned by the API.
type CivicReport struct {
	ID          string    `json:"id"`
	Location    Location  `json:"location"`
	ReportType  string    `json:"report_type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	ReporterID  *string   `json:"reporter_id,omitempty"`
	Timestamp   Timestamp `json:"timestamp"`
}

// CivicReportCreateRequest is the body of POST /api/civic-reports.
type CivicReportCreateRequest struct {
	Location    LocationRequest `json:"location" validate:"required"`
	ReportType  string          `json:"report_type" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Severity    string          `json:"severity" validate:"required"`
	ReporterID  *string         `json:"reporter_id,omitempty" validate:"omitempty,max=128"`
}
