package query

// Plan is the ordered, cost-annotated output of the optimizer.
// EstimatedRows and EstimatedCost are diagnostic only: execution never
// consults them for correctness, only (optionally) for choosing parallel
// versus serial execution.
type Plan struct {
	Operations    []Operation `json:"operations"`
	EstimatedRows float64     `json:"estimatedRows"`
	EstimatedCost float64     `json:"estimatedCost"`
}
