package coursefind

// Course is a catalog entry. An empty ID is derived from the link's last path
// segment, or from the position when the link is missing.
type Course struct {
	ID          string
	Title       string
	Description string
	ImageURL    string
	Link        string
}

// Result is a ranked course.
type Result struct {
	Rank        int // 1-based
	ID          string
	Title       string
	Description string
	ImageURL    string
	Link        string
	Score       float64 // cosine similarity in [-1, 1]
	Relevance   float64 // Score as a percentage, two decimals
}

// IndexInfo describes the index a Refresh produced.
type IndexInfo struct {
	Courses     int
	Encoder     string
	Dimension   int
	Fingerprint string
}
