package s2

import (
	"regexp"
	"strings"
)

var identifierPrefixes = []string{
	"DOI:",
	"ARXIV:",
	"PMID:",
	"PMCID:",
	"CorpusId:",
	"URL:",
}

// rawIDPattern matches a 40-character hex S2 paper id.
var rawIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// ParsePaperID parses an identifier such as "DOI:10.1038/nature12373",
// "ARXIV:2106.15928" or a raw 40-character S2 id.
func ParsePaperID(id string) (PaperIdentifier, error) {
	id = strings.TrimSpace(id)
	for _, prefix := range identifierPrefixes {
		if len(id) > len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
			return PaperIdentifier{
				Type:  strings.TrimSuffix(prefix, ":"),
				Value: id[len(prefix):],
			}, nil
		}
	}
	if rawIDPattern.MatchString(id) {
		return PaperIdentifier{Type: "S2", Value: strings.ToLower(id)}, nil
	}
	return PaperIdentifier{}, ErrInvalidID
}
