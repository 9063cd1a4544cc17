// File: internal/rules/security.go
package rules

import (
	"context"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/codewarden/warden-cli/api/schemas"
)

// -- no-hardcoded-secrets --

// secretPatterns match assignments of credential-looking literals. Each
// pattern requires a quoted value so variable references don't trip it.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|secret|password|passwd|token|credential)s?["']?\s*[:=]\s*["'][^"']{8,}["']`),
	regexp.MustCompile(`(?i)aws[_-]?(access|secret)[_-]?key[_-]?id?\s*[:=]\s*["'][A-Za-z0-9/+=]{16,}["']`),
	regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
}

type secretsRule struct{}

func (r *secretsRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "no-hardcoded-secrets",
		Name:        "No Hardcoded Secrets",
		Category:    schemas.CategorySecurity,
		Severity:    schemas.SeverityCritical,
		Description: "Detects credentials, API keys, and private keys committed to source.",
		Tags:        []string{"secrets", "credentials"},
	}
}

func (r *secretsRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if err := checkCancelled(ctx); err != nil {
			return violations, err
		}
		for _, pattern := range secretPatterns {
			if !pattern.MatchString(line) {
				continue
			}
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "Move the secret to an environment variable or a secrets manager and rotate it.",
				Explanation: "Credentials committed to source are exposed to everyone with repository access and persist in history.",
			})
			break
		}
	}
	return violations, nil
}

// -- no-hardcoded-jwt --

// jwtLiteral matches three dot-separated base64url segments long enough to
// be a real token.
var jwtLiteral = regexp.MustCompile(`eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]*`)

// jwtRule flags JWT literals in source. Its severity hook raises unsigned
// (alg "none") tokens to CRITICAL; everything else keeps the default HIGH.
type jwtRule struct{}

func (r *jwtRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "no-hardcoded-jwt",
		Name:        "No Hardcoded JWT",
		Category:    schemas.CategorySecurity,
		Severity:    schemas.SeverityHigh,
		Description: "Detects JSON Web Tokens embedded in source, inspecting the signing algorithm of each.",
		Tags:        []string{"secrets", "jwt"},
	}
}

var unverifiedParser = new(jwt.Parser)

func (r *jwtRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		for _, match := range jwtLiteral.FindAllString(line, -1) {
			token, _, err := unverifiedParser.ParseUnverified(match, jwt.MapClaims{})
			if err != nil {
				// Looks like a token but doesn't decode; not a finding.
				continue
			}
			alg, _ := token.Header["alg"].(string)
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "Remove the token from source and issue tokens at runtime.",
				Explanation: "An embedded JWT (alg " + alg + ") grants whatever access it encodes to anyone reading the repository.",
			})
		}
	}
	return violations, nil
}

// AdjustSeverity raises violations whose token is unsigned to CRITICAL: an
// alg-none token is accepted verbatim by naive verifiers.
func (r *jwtRule) AdjustSeverity(rc *schemas.RuleContext, v schemas.Violation) schemas.Severity {
	if strings.Contains(v.Explanation, "alg none") || strings.Contains(v.Explanation, "alg None") {
		return schemas.SeverityCritical
	}
	return schemas.SeverityHigh
}

// -- no-dangerous-inner-html --

var innerHTMLPattern = regexp.MustCompile(`dangerouslySetInnerHTML\s*=\s*\{`)

// innerHTMLRule is restricted to React projects.
type innerHTMLRule struct{}

func (r *innerHTMLRule) Meta() schemas.RuleMeta {
	return schemas.RuleMeta{
		ID:          "no-dangerous-inner-html",
		Name:        "No dangerouslySetInnerHTML",
		Category:    schemas.CategorySecurity,
		Severity:    schemas.SeverityHigh,
		Description: "Detects React's dangerouslySetInnerHTML, a common XSS vector.",
		Frameworks:  []string{"react", "next"},
		Tags:        []string{"xss", "react"},
	}
}

func (r *innerHTMLRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	if !hasSuffixAny(rc.FilePath, ".js", ".jsx", ".ts", ".tsx") {
		return nil, nil
	}
	var violations []schemas.Violation
	for i, line := range lines(rc.Content) {
		if innerHTMLPattern.MatchString(line) {
			violations = append(violations, schemas.Violation{
				Line:        i + 1,
				Snippet:     snippet(line),
				Suggestion:  "Render the content as text, or sanitize it with a vetted library before injecting.",
				Explanation: "dangerouslySetInnerHTML bypasses React's escaping and executes attacker-controlled markup.",
			})
		}
	}
	return violations, nil
}
