package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Prompt assembly and response parsing shared across vendors. Model output
// is free-form text unless the vendor supports a JSON response mode, so the
// parsers here are deliberately forgiving: they extract what they can and
// leave the rest zero-valued.

func codeContext(codebase map[string]string, maxFiles, maxChars int) string {
	paths := make([]string, 0, len(codebase))
	for path := range codebase {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	if len(paths) > maxFiles {
		paths = paths[:maxFiles]
	}

	sections := make([]string, 0, len(paths))
	for _, path := range paths {
		content := codebase[path]
		if len(content) > maxChars {
			content = content[:maxChars]
		}
		sections = append(sections, fmt.Sprintf("File: %s\n%s", path, content))
	}

	return strings.Join(sections, "\n\n")
}

func constraintList(constraints []string) string {
	if len(constraints) == 0 {
		return "None"
	}

	lines := make([]string, 0, len(constraints))
	for _, c := range constraints {
		lines = append(lines, "- "+c)
	}

	return strings.Join(lines, "\n")
}

// parseIdeaLines handles "Title: description" output, one idea per line.
func parseIdeaLines(text string, limit int) []Idea {
	var ideas []Idea

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		title, description, _ := strings.Cut(line, ":")
		ideas = append(ideas, Idea{
			Title:       strings.TrimSpace(title),
			Description: strings.TrimSpace(description),
		})

		if len(ideas) >= limit {
			break
		}
	}

	return ideas
}

// parseIdeaBlocks handles numbered, blank-line-separated output where the
// first line of each block is the title.
func parseIdeaBlocks(text string, limit int) []Idea {
	var ideas []Idea

	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}

		title := strings.TrimLeft(strings.TrimSpace(lines[0]), "0123456789.- ")
		description := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		ideas = append(ideas, Idea{Title: title, Description: description})
	}

	if len(ideas) > limit {
		ideas = ideas[:limit]
	}

	return ideas
}

// parseExpansionText extracts TITLE / DESCRIPTION / CONSIDERATIONS /
// NEXT STEPS sections. fallbackTitle is used when the model omits one.
func parseExpansionText(text, fallbackTitle string) *Expansion {
	exp := &Expansion{Title: fallbackTitle}

	section := ""
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		upper := strings.ToUpper(line)

		switch {
		case strings.Contains(upper, "TITLE:"):
			exp.Title = afterColon(line)
		case strings.Contains(upper, "DESCRIPTION:"):
			exp.Description = afterColon(line)
			section = "description"
		case strings.Contains(upper, "CONSIDERATION"):
			section = "considerations"
		case strings.Contains(upper, "NEXT STEP"):
			section = "nextSteps"
		case strings.HasPrefix(line, "- ") && section == "considerations":
			exp.Considerations = append(exp.Considerations, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "- ") && section == "nextSteps":
			exp.NextSteps = append(exp.NextSteps, strings.TrimSpace(line[2:]))
		case section == "description" && line != "" && !numberedPrefix(line):
			exp.Description = strings.TrimSpace(exp.Description + " " + line)
		}
	}

	return exp
}

// parseConnectionText extracts SYNERGY / CONFLICTS / COMPLEMENTARY /
// INTEGRATION / VALID / BRIDGE sections.
func parseConnectionText(text string) *ConnectionAnalysis {
	conn := &ConnectionAnalysis{IsValid: true}

	section := ""
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		upper := strings.ToUpper(line)

		switch {
		case strings.Contains(upper, "SYNERGY:"):
			conn.Synergy = afterColon(line)
			section = ""
		case strings.Contains(upper, "CONFLICT"):
			conn.Conflicts = afterColon(line)
			section = ""
		case strings.Contains(upper, "COMPLEMENTARY"):
			section = "complementary"
		case strings.Contains(upper, "INTEGRATION"):
			conn.IntegrationApproach = afterColon(line)
			section = ""
		case strings.Contains(upper, "VALID:"):
			val := strings.ToLower(afterColon(line))
			conn.IsValid = val == "true" || val == "yes" || val == "1"
		case strings.Contains(upper, "BRIDGE"):
			conn.BridgeConcept = afterColon(line)
		case strings.HasPrefix(line, "- "):
			// Outside an explicit section, list items default to
			// complementary aspects, matching the loosest vendor formats.
			if section == "complementary" || section == "" {
				conn.ComplementaryAspects = append(conn.ComplementaryAspects, strings.TrimSpace(line[2:]))
			}
		}
	}

	return conn
}

// decodeExpansionJSON parses a JSON expansion, falling back to wrapping the
// raw text when the model ignored the format instruction.
func decodeExpansionJSON(text, idea string) *Expansion {
	var exp Expansion
	if err := json.Unmarshal([]byte(text), &exp); err == nil && exp.Description != "" {
		if exp.Title == "" {
			exp.Title = idea
		}
		return &exp
	}

	return &Expansion{
		Title:          idea,
		Description:    text,
		Considerations: []string{"Further analysis recommended"},
		NextSteps:      []string{"Review the detailed analysis above"},
	}
}

// decodeConnectionJSON parses a JSON connection analysis with a best-effort
// fallback when the payload is not valid JSON.
func decodeConnectionJSON(text, ideaA, ideaB string) *ConnectionAnalysis {
	var conn ConnectionAnalysis
	if err := json.Unmarshal([]byte(text), &conn); err == nil {
		return &conn
	}

	return &ConnectionAnalysis{
		Synergy:              "Connection analysis available",
		Conflicts:            "None identified",
		ComplementaryAspects: []string{"Potential synergy"},
		IntegrationApproach:  "Further analysis recommended",
		IsValid:              true,
		BridgeConcept:        fmt.Sprintf("Link between %s... and %s...", truncate(ideaA, 20), truncate(ideaB, 20)),
	}
}

func afterColon(line string) string {
	_, rest, found := strings.Cut(line, ":")
	if !found {
		return strings.TrimSpace(line)
	}
	return strings.TrimSpace(rest)
}

func numberedPrefix(line string) bool {
	for _, prefix := range []string{"1.", "2.", "3.", "4."} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
