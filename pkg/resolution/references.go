package resolution

import (
	"regexp"
	"strings"

	"github.com/Gobusters/ectolinq"
	"github.com/jmespath/go-jmespath"
)

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?|file)://[^\s<>"'()\[\]{}]+`)

// directReference is an explicit transcript link found on an event
type directReference struct {
	Text string
	URLs []string
}

// extractReference evaluates the text and URL expressions against metadata and
// scans the description for links. Metadata URLs come before description URLs.
func extractReference(metadata map[string]any, description string, textExprs, urlExprs []*jmespath.JMESPath) directReference {
	var ref directReference

	if len(metadata) > 0 {
		for _, expr := range textExprs {
			if text, ok := searchString(expr, metadata); ok && strings.TrimSpace(text) != "" {
				ref.Text = text
				return ref
			}
		}
		for _, expr := range urlExprs {
			if u, ok := searchString(expr, metadata); ok {
				ref.URLs = appendUnique(ref.URLs, strings.TrimSpace(u))
			}
		}
	}

	for _, u := range urlPattern.FindAllString(description, -1) {
		ref.URLs = appendUnique(ref.URLs, strings.TrimRight(u, ".,;:!?"))
	}

	return ref
}

func searchString(expr *jmespath.JMESPath, data map[string]any) (string, bool) {
	result, err := expr.Search(data)
	if err != nil || result == nil {
		return "", false
	}
	s, ok := result.(string)
	return s, ok && s != ""
}

func appendUnique(list []string, v string) []string {
	if v == "" || ectolinq.Contains(list, v) {
		return list
	}
	return append(list, v)
}
