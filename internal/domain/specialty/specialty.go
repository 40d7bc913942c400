// Package specialty classifies tasks into review domains by keyword and
// file-path matching. All functions are pure.
package specialty

import (
	"strings"
)

// Specialty is a review domain from the closed vocabulary.
type Specialty string

const (
	Security      Specialty = "security"
	Performance   Specialty = "performance"
	Architecture  Specialty = "architecture"
	Testing       Specialty = "testing"
	CodeQuality   Specialty = "code-quality"
	Frontend      Specialty = "frontend"
	Backend       Specialty = "backend"
	Database      Specialty = "database"
	DevOps        Specialty = "devops"
	Documentation Specialty = "documentation"
	General       Specialty = "general"
)

// All lists the closed vocabulary in stable order.
var All = []Specialty{
	Security, Performance, Architecture, Testing, CodeQuality,
	Frontend, Backend, Database, DevOps, Documentation, General,
}

// Valid reports whether s is part of the closed vocabulary.
func Valid(s Specialty) bool {
	for _, v := range All {
		if v == s {
			return true
		}
	}
	return false
}

// keywords maps each specialty to the substrings that tag it in task text.
// The first matching keyword per specialty wins; remaining keywords are
// not checked.
var keywords = []struct {
	spec  Specialty
	words []string
}{
	{Security, []string{"security", "auth", "vulnerab", "encrypt", "secret", "injection", "xss", "csrf", "permission"}},
	{Performance, []string{"performance", "optimi", "latency", "throughput", "slow", "cache", "memory leak", "profil"}},
	{Architecture, []string{"architecture", "refactor", "design pattern", "module", "decouple", "migration", "restructur"}},
	{Testing, []string{"test", "coverage", "mock", "assertion", "regression", "e2e"}},
	{CodeQuality, []string{"lint", "readability", "code quality", "cleanup", "naming", "duplication", "tech debt"}},
	{Frontend, []string{"frontend", "ui ", "css", "component", "react", "browser", "accessibility"}},
	{Backend, []string{"backend", "api", "endpoint", "server", "handler", "middleware"}},
	{Database, []string{"database", "sql", "query", "schema", "index", "transaction", "orm"}},
	{DevOps, []string{"deploy", "docker", "kubernetes", "ci/cd", "pipeline", "terraform", "infrastructure"}},
	{Documentation, []string{"document", "readme", "changelog", "comment", "docs"}},
}

// pathPatterns is an ordered list of file-path fragments, each tagging one
// specialty. A single file may tag multiple specialties.
var pathPatterns = []struct {
	fragment string
	spec     Specialty
}{
	{"_test.", Testing},
	{".test.", Testing},
	{".spec.", Testing},
	{"/test", Testing},
	{".sql", Database},
	{"/migrations/", Database},
	{".tsx", Frontend},
	{".jsx", Frontend},
	{".css", Frontend},
	{".scss", Frontend},
	{".html", Frontend},
	{".vue", Frontend},
	{"dockerfile", DevOps},
	{"docker-compose", DevOps},
	{".yml", DevOps},
	{".yaml", DevOps},
	{".tf", DevOps},
	{"/.github/", DevOps},
	{".md", Documentation},
	{"readme", Documentation},
	{"/auth", Security},
	{"/security", Security},
	{"/api/", Backend},
	{"/handlers/", Backend},
	{"/server/", Backend},
	{"/controllers/", Backend},
}

// Analyze maps task text and file paths to the set of specialties relevant
// to reviewing it. Matching is case-insensitive. If nothing matches, the
// result is {general}.
func Analyze(text string, files []string) []Specialty {
	lower := strings.ToLower(text)
	seen := make(map[Specialty]bool)
	var out []Specialty

	add := func(s Specialty) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, entry := range keywords {
		for _, kw := range entry.words {
			if strings.Contains(lower, kw) {
				add(entry.spec)
				break
			}
		}
	}

	for _, f := range files {
		lf := strings.ToLower(f)
		for _, p := range pathPatterns {
			if strings.Contains(lf, p.fragment) {
				add(p.spec)
			}
		}
	}

	if len(out) == 0 {
		return []Specialty{General}
	}
	return out
}

// complexityKeywords each add a fixed increment to the complexity estimate.
var complexityKeywords = []string{
	"refactor", "architecture", "security", "migration",
	"breaking", "performance", "scale", "distributed",
}

// Complexity estimates how demanding a task is on a [0,1] scale from its
// file count, combined text length, and complexity keywords. Deterministic.
func Complexity(text string, files []string) float64 {
	score := 0.0

	fileScore := float64(len(files)) * 0.05
	if fileScore > 0.3 {
		fileScore = 0.3
	}
	score += fileScore

	switch n := len(text); {
	case n > 1000:
		score += 0.3
	case n > 400:
		score += 0.2
	case n > 150:
		score += 0.1
	}

	lower := strings.ToLower(text)
	for _, kw := range complexityKeywords {
		if strings.Contains(lower, kw) {
			score += 0.15
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}
