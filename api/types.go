package api

// Run represents one convert invocation recorded in the journal
type Run struct {
	RunID             string   `json:"run_id"`
	StartedAt         int64    `json:"started_at"`
	FinishedAt        *int64   `json:"finished_at,omitempty"`
	Arguments         []string `json:"arguments"`
	Recursive         bool     `json:"recursive"`
	Streams           bool     `json:"streams"`
	Converted         int64    `json:"converted"`
	NotSparse         int64    `json:"not_sparse"`
	NotFullyAllocated int64    `json:"not_fully_allocated"`
	Failed            int64    `json:"failed"`
}

// Result represents the outcome of one conversion attempt
type Result struct {
	ResultID      int64   `json:"result_id"`
	RunID         string  `json:"run_id"`
	Path          string  `json:"path"`
	Outcome       string  `json:"outcome"`
	Error         *string `json:"error,omitempty"`
	LogicalSize   *int64  `json:"logical_size,omitempty"`
	AllocatedSize *int64  `json:"allocated_size,omitempty"`
	RecordedAt    int64   `json:"recorded_at"`
}

// PaginatedResponse represents a paginated response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
	HasNext    bool        `json:"has_next"`
}
