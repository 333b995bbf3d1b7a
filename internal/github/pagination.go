package github

import "strings"

// NextPageURL extracts the rel="next" target from a Link response header of
// the form `<url>; rel="prev", <url>; rel="next", ...`. It returns the empty
// string when the header is empty, malformed, or carries no next relation;
// that is the normal last-page signal, not an error.
func NextPageURL(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		sections := strings.Split(part, ";")
		if len(sections) < 2 {
			continue
		}

		target := strings.TrimSpace(sections[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}

		for _, param := range sections[1:] {
			param = strings.TrimSpace(param)
			if param == `rel="next"` || param == "rel=next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
