package roster

import (
	"fmt"
	"strings"

	"rider-router/internal/models"
)

var directionals = map[string]string{
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"northeast": "ne",
	"northwest": "nw",
	"southeast": "se",
	"southwest": "sw",
}

var suffixes = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"av":        "ave",
	"road":      "rd",
	"drive":     "dr",
	"boulevard": "blvd",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"terrace":   "ter",
	"parkway":   "pkwy",
	"highway":   "hwy",
	"circle":    "cir",
	"apartment": "apt",
	"suite":     "ste",
}

// NormalizeAddress reduces an address line to its duplicate-detection key.
// The result is stable under repeated application.
func NormalizeAddress(address string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '#':
			return ' '
		}
		return r
	}, strings.ToLower(address))

	tokens := strings.Fields(cleaned)
	for i, tok := range tokens {
		if abbr, ok := directionals[tok]; ok {
			tokens[i] = abbr
			continue
		}
		if abbr, ok := suffixes[tok]; ok {
			tokens[i] = abbr
		}
	}

	return strings.Join(tokens, " ")
}

// ParseAddress splits a single-line address of the form "street, city, state zip"
// (or "street, city, state, zip") into its parts
func ParseAddress(line string) (models.Address, error) {
	var parts []string
	for _, p := range strings.Split(line, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	switch len(parts) {
	case 4:
		return models.Address{Street: parts[0], City: parts[1], State: parts[2], Zip: parts[3]}, nil
	case 3:
		fields := strings.Fields(parts[2])
		if len(fields) == 2 {
			return models.Address{Street: parts[0], City: parts[1], State: fields[0], Zip: fields[1]}, nil
		}
	}
	return models.Address{}, fmt.Errorf("address %q is not in \"street, city, state zip\" form", line)
}
