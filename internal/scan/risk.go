package scan

import "strings"

// riskKeywords mark paths whose code commonly handles sensitive concerns.
// Scoring counts occurrences in the lowercased path string.
var riskKeywords = []string{
	"auth",
	"token",
	"admin",
	"sql",
	"payment",
	"password",
	"secret",
	"login",
	"session",
	"crypto",
	"oauth",
	"billing",
	"checkout",
	"upload",
	"exec",
	"api",
}

// riskScore counts risk-keyword occurrences in the lowercased path.
func riskScore(path string, extra []string) int {
	p := strings.ToLower(path)
	score := 0
	for _, kw := range riskKeywords {
		score += strings.Count(p, kw)
	}
	for _, kw := range extra {
		score += strings.Count(p, strings.ToLower(kw))
	}
	return score
}
