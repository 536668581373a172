package models

// The grouping helpers below are pure, single-pass and order-preserving:
// every input incident lands in exactly one bucket, and concatenating the
// buckets yields a permutation of the input grouped by axis value.

// DecisionGroups partitions incidents by whether an admin decision is
// still outstanding
type DecisionGroups struct {
	Pending   []Incident `json:"pending"`
	Processed []Incident `json:"processed"`
}

// GroupByDecision splits a collection into pending vs processed incidents
func GroupByDecision(incidents []Incident) DecisionGroups {
	g := DecisionGroups{Pending: []Incident{}, Processed: []Incident{}}
	for _, inc := range incidents {
		if inc.Details.Status == IncidentPending {
			g.Pending = append(g.Pending, inc)
		} else {
			g.Processed = append(g.Processed, inc)
		}
	}
	return g
}

// DriverGroups partitions a driver's queue into work still in flight and
// finished runs
type DriverGroups struct {
	Active    []Incident `json:"active"`
	Completed []Incident `json:"completed"`
}

// GroupByDriverStatus splits a driver queue by workflow completion
func GroupByDriverStatus(incidents []Incident) DriverGroups {
	g := DriverGroups{Active: []Incident{}, Completed: []Incident{}}
	for _, inc := range incidents {
		if inc.Details.DriverStatus == DriverCompleted {
			g.Completed = append(g.Completed, inc)
		} else {
			g.Active = append(g.Active, inc)
		}
	}
	return g
}

// HospitalGroups partitions a hospital queue by stay stage
type HospitalGroups struct {
	Incoming   []Incident `json:"incoming"`
	Admitted   []Incident `json:"admitted"`
	Discharged []Incident `json:"discharged"`
}

// GroupByHospitalStatus splits a hospital queue into incoming, admitted
// and discharged patients. Incidents without a hospital axis land in
// Incoming only if the axis is explicitly set; otherwise they are skipped
// by the caller's query, so an unknown value defaults to Incoming to keep
// the partition exhaustive.
func GroupByHospitalStatus(incidents []Incident) HospitalGroups {
	g := HospitalGroups{Incoming: []Incident{}, Admitted: []Incident{}, Discharged: []Incident{}}
	for _, inc := range incidents {
		switch inc.Details.HospitalStatus {
		case HospitalAdmitted:
			g.Admitted = append(g.Admitted, inc)
		case HospitalDischarged:
			g.Discharged = append(g.Discharged, inc)
		default:
			g.Incoming = append(g.Incoming, inc)
		}
	}
	return g
}
