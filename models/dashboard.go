package models

// DashboardStats is the aggregate view served to the admin dashboard
type DashboardStats struct {
	TotalIncidents     int64          `json:"totalIncidents"`
	PendingIncidents   int64          `json:"pendingIncidents"`
	ProcessedIncidents int64          `json:"processedIncidents"`
	ActiveTransports   int64          `json:"activeTransports"`
	CompletedRuns      int64          `json:"completedRuns"`
	IncomingPatients   int64          `json:"incomingPatients"`
	AdmittedPatients   int64          `json:"admittedPatients"`
	DischargedPatients int64          `json:"dischargedPatients"`
	UsersByRole        map[Role]int64 `json:"usersByRole"`
}
