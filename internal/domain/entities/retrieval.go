package entities

// ScoredDocument is one retrieved document with its 1-based rank.
type ScoredDocument struct {
	Document   EmbeddableDocument `json:"document"`
	Rank       int                `json:"rank"`
	Similarity float64            `json:"similarity"`
}

// RetrievalResult is ordered by descending similarity.
type RetrievalResult []ScoredDocument

// Documents returns the retrieved documents in rank order.
func (r RetrievalResult) Documents() []EmbeddableDocument {
	docs := make([]EmbeddableDocument, len(r))
	for i, sd := range r {
		docs[i] = sd.Document
	}
	return docs
}

// CaseIDs returns the case ids of the retrieved documents in rank order.
func (r RetrievalResult) CaseIDs() []string {
	ids := make([]string, len(r))
	for i, sd := range r {
		ids[i] = sd.Document.CaseID
	}
	return ids
}

// QueryResult is the answer to one diagnosis query plus the cases it was
// grounded on, in retrieval order.
type QueryResult struct {
	Answer  string               `json:"answer"`
	Sources []EmbeddableDocument `json:"sources"`
}

// SourceCaseIDs returns the case ids of the sources in order.
func (q QueryResult) SourceCaseIDs() []string {
	ids := make([]string, len(q.Sources))
	for i, d := range q.Sources {
		ids[i] = d.CaseID
	}
	return ids
}
