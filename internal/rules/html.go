// File: internal/rules/html.go
package rules

import (
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/codewarden/warden-cli/api/schemas"
)

// htmlSecurityRule walks HTML documents for inline event handlers and
// scripts loaded over plain HTTP.
type htmlSecurityRule struct{}

func (r *htmlSecurityRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "html-insecure-markup",
		Name:        "Insecure HTML Markup",
		Category:    schemas.CategorySecurity,
		Severity:    schemas.SeverityMedium,
		Description: "Detects inline event handlers and http:// script sources in HTML files.",
		Tags:        []string{"html", "xss"},
	}
}

func (r *htmlSecurityRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	if !hasSuffixAny(rc.FilePath, ".html", ".htm") {
		return nil, nil
	}

	doc, err := html.Parse(strings.NewReader(rc.Content))
	if err != nil {
		// The tolerant parser rarely fails; treat failure as no findings.
		return nil, nil
	}

	var violations []schemas.Violation
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				key := strings.ToLower(attr.Key)
				switch {
				case strings.HasPrefix(key, "on"):
					violations = append(violations, schemas.Violation{
						Snippet:     snippet("<" + n.Data + " " + attr.Key + "=...>"),
						Suggestion:  "Attach the handler with addEventListener from a script file.",
						Explanation: "Inline event handlers defeat Content-Security-Policy and mix markup with executable code.",
					})
				case n.Data == "script" && key == "src" && strings.HasPrefix(strings.ToLower(attr.Val), "http://"):
					violations = append(violations, schemas.Violation{
						Snippet:     snippet("<script src=\"" + attr.Val + "\">"),
						Suggestion:  "Load the script over https:// or from the same origin.",
						Explanation: "A script fetched over plain HTTP can be replaced in transit by any network attacker.",
					})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return violations, nil
}
