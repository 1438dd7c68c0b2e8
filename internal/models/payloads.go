package models

// These structs define the JSON payloads exchanged between HTTP clients and
// the service. The derivation endpoints all return a full DocumentRecord.

// MergeRequest is the input for POST /documents/merge.
type MergeRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

// SplitRequest is the input for POST /documents/{id}/split.
// Start and End form a 0-based, half-open page range.
type SplitRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// RotateRequest is the input for POST /documents/{id}/rotate.
type RotateRequest struct {
	Degrees int `json:"degrees"`
}

// AnnotateRequest is the input for POST /documents/{id}/annotate.
// Page is 1-based; X and Y are offsets in points from the lower-left corner.
type AnnotateRequest struct {
	Page int     `json:"page"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// TextResponse is the output of GET /documents/{id}/text.
type TextResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
