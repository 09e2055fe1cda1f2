package models

// ScoredItem is a single recommendation in a response.
type ScoredItem struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Category string  `json:"category,omitempty"`
	Price    *int    `json:"price,omitempty"`
}

// RecommendResponse is the response for a recommend request.
type RecommendResponse struct {
	Results []*ScoredItem `json:"results"`
}

// PrecomputeResponse reports a finished precompute run.
type PrecomputeResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}
