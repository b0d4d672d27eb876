package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	// Filter is a raw FT.SEARCH pre-filter; empty means "*".
	Filter       string
	VectorField  string // defaults to "vector"
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key string
	// Score is cosine similarity clamped to [0,1].
	Score  float64
	Fields map[string]string
}
