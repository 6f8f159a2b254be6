package domain

// Paragraph is a unit of submitted text keyed by a caller-assigned reference
// (typically the source URL).
type Paragraph struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`
}

// Record is the persisted form of a paragraph: reference, the original text
// and the embedding derived from its summary.
type Record struct {
	Reference string
	Text      string
	Embedding []float32
}

// Paragraph projects a record back to its visible fields. Embeddings are
// never exposed outside the store and the similarity engine.
func (r Record) Paragraph() Paragraph {
	return Paragraph{Reference: r.Reference, Text: r.Text}
}

// SimilarityResult scores one stored paragraph against a query sentence.
type SimilarityResult struct {
	Paragraph  Paragraph `json:"paragraph"`
	Similarity float32   `json:"similarity"`
}

// ResultSet is the ordered outcome of a similarity query, sorted by
// similarity descending.
type ResultSet struct {
	Sentence string             `json:"sentence"`
	Results  []SimilarityResult `json:"results"`
}
