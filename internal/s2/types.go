// Package s2 fetches papers and their references from the Semantic Scholar
// Academic Graph API and maps them onto corpus papers.
package s2

// Paper is a paper record from the Graph API.
type Paper struct {
	PaperID     string      `json:"paperId"`
	ExternalIDs ExternalIDs `json:"externalIds,omitempty"`
	Title       string      `json:"title"`
	Abstract    string      `json:"abstract,omitempty"`
	Authors     []Author    `json:"authors,omitempty"`
	Year        int         `json:"year,omitempty"`
	Venue       string      `json:"venue,omitempty"`
}

// ExternalIDs contains the external identifiers S2 knows for a paper.
type ExternalIDs struct {
	DOI      string `json:"DOI,omitempty"`
	ArXiv    string `json:"ArXiv,omitempty"`
	PubMed   string `json:"PubMed,omitempty"`
	CorpusID int    `json:"CorpusId,omitempty"`
}

// Author is an author entry from the Graph API.
type Author struct {
	AuthorID string `json:"authorId,omitempty"`
	Name     string `json:"name"`
}

// PaperIdentifier is a parsed paper identifier.
type PaperIdentifier struct {
	Type  string // DOI, ARXIV, PMID, PMCID, CorpusId, URL, S2
	Value string
}

// String returns the identifier in the form the API accepts.
func (p PaperIdentifier) String() string {
	if p.Type == "S2" {
		return p.Value
	}
	return p.Type + ":" + p.Value
}

type referenceEntry struct {
	CitedPaper *Paper `json:"citedPaper"`
}

type referencesPage struct {
	Offset int              `json:"offset"`
	Next   int              `json:"next,omitempty"`
	Data   []referenceEntry `json:"data"`
}
