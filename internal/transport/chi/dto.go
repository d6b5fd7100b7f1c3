package chi

// Error codes produced by the transport itself. Pipeline failures use their kind as code.
const (
	CodeInvalidRequest = "InvalidRequest"
	CodeUnauthorized   = "Unauthorized"
	CodeNotFound       = "NotFound"
	CodeInternal       = "Internal"
)

// QuestionRequest is the body of POST /v1/sessions/{sessionID}/questions.
type QuestionRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TurnDigest is the short form of a remembered turn.
type TurnDigest struct {
	TurnID    string   `json:"turn_id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Query     string   `json:"query"`
	Verdict   string   `json:"verdict"`
	RowCount  int      `json:"row_count"`
	Degraded  bool     `json:"degraded"`
	FollowUps []string `json:"follow_ups,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// TurnListResponse is the body of GET /v1/sessions/{sessionID}/turns.
type TurnListResponse struct {
	SessionID string       `json:"session_id"`
	Turns     []TurnDigest `json:"turns"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SummaryResponse is the body of GET /v1/summary.
type SummaryResponse struct {
	Floats       int64         `json:"total_floats"`
	Profiles     int64         `json:"total_profiles"`
	Observations int64         `json:"total_measurements"`
	Bounds       *BoundsDTO    `json:"geographic_bounds,omitempty"`
	DateRange    *DateRangeDTO `json:"date_range,omitempty"`
	Corpus       *CorpusDTO    `json:"corpus,omitempty"`
	Degraded     bool          `json:"degraded"`
	GeneratedAt  string        `json:"generated_at"`
}

// BoundsDTO is the area covered by the loaded profiles.
type BoundsDTO struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// DateRangeDTO spans the first and last observation.
type DateRangeDTO struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CorpusDTO describes the retrieval index.
type CorpusDTO struct {
	Index      string         `json:"index"`
	Present    bool           `json:"present"`
	Documents  int            `json:"documents"`
	Categories map[string]int `json:"categories,omitempty"`
}
