package network

import "regexp"

// markerPattern matches <PREFIX><SEQ>[(NO)], e.g. "X16" or "X16(1)".
var markerPattern = regexp.MustCompile(`([A-Za-z]+\d+)(\(\d+\))?`)

// ExtractMarkers returns the reference labels encoded in a markers string.
// With labelOnly set the optional "(NO)" suffix is dropped.
func ExtractMarkers(markers string, labelOnly bool) []string {
	matches := markerPattern.FindAllStringSubmatch(markers, -1)
	if len(matches) == 0 {
		return nil
	}

	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if labelOnly {
			out = append(out, m[1])
		} else {
			out = append(out, m[1]+m[2])
		}
	}
	return out
}
