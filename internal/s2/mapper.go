package s2

import (
	"strings"

	"github.com/matsen/searchforest/internal/paper"
)

var nameSuffixes = map[string]bool{
	"jr": true, "jr.": true,
	"sr": true, "sr.": true,
	"ii": true, "iii": true, "iv": true,
	"phd": true, "md": true,
}

// ToPaper converts an API paper into a corpus paper keyed by its S2 id.
func ToPaper(p Paper, references []string) paper.Paper {
	return paper.Paper{
		ID:         p.PaperID,
		DOI:        p.ExternalIDs.DOI,
		Title:      p.Title,
		Abstract:   p.Abstract,
		Authors:    mapAuthors(p.Authors),
		Venue:      p.Venue,
		Year:       p.Year,
		References: references,
	}
}

func mapAuthors(in []Author) []paper.Author {
	if len(in) == 0 {
		return nil
	}
	out := make([]paper.Author, 0, len(in))
	for _, a := range in {
		first, last := splitAuthorName(a.Name)
		if last == "" {
			continue
		}
		out = append(out, paper.Author{First: first, Last: last})
	}
	return out
}

// splitAuthorName splits "Given Middle Family" with the last word as the
// family name, keeping a trailing suffix (Jr, III) attached to it.
func splitAuthorName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}
	if nameSuffixes[strings.ToLower(parts[len(parts)-1])] && len(parts) > 2 {
		return strings.Join(parts[:len(parts)-2], " "), parts[len(parts)-2] + " " + parts[len(parts)-1]
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
