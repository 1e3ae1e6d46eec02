// Package paper defines the core domain types for the citation corpus.
package paper

import (
	"errors"
	"strings"
)

// Validation errors.
var (
	ErrMissingID = errors.New("paper id is required")
	ErrSelfCite  = errors.New("paper references itself")
)

// Paper is one document of the corpus plus its outgoing references.
//
// References are kept in the order they were recorded. A reference to an id
// that is not part of the corpus is valid and simply leads nowhere.
type Paper struct {
	// Identity
	ID  string `json:"id"`
	DOI string `json:"doi,omitempty"`

	// Metadata
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Authors  []Author `json:"authors,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Year     int      `json:"year,omitempty"`

	// Relationships
	References []string `json:"references,omitempty"`
}

// HasAbstract reports whether the abstract carries any non-blank text.
func (p Paper) HasAbstract() bool {
	return strings.TrimSpace(p.Abstract) != ""
}

// Validate checks the fields required for import.
func (p Paper) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrMissingID
	}
	for _, ref := range p.References {
		if ref == p.ID {
			return ErrSelfCite
		}
	}
	return nil
}

// FirstAuthor returns the display name of the first author, or "".
func (p Paper) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0].Display()
}
