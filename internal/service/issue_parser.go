package service

import (
	"regexp"
	"strings"

	"github.com/communitycontent/internal/content"
)

const descriptionPlaceholder = "Aucune description fournie"

var (
	fieldLinePattern = regexp.MustCompile(`^\*\*([^*\n]+?):\*\*[ \t]*(.*)$`)
	titlePattern     = regexp.MustCompile(`^(\w+):\s*(.+)$`)
	ruleLinePattern  = regexp.MustCompile(`^\s*-{3,}\s*$`)
)

// ParsedIssue is the partial entry read from an issue. Fields that were
// not found stay empty.
type ParsedIssue struct {
	Type        string
	DisplayName string
	Content     string
	Description string
	LocationID  string
	EventID     string
	SessionID   string
	Image       *ImageRef
}

// fieldRule maps one or more body labels onto a field. Labels are tried in
// order and the first non-empty value wins.
type fieldRule struct {
	labels    []string
	transform func(string) string
	assign    func(p *ParsedIssue, value string)
}

var issueFieldRules = []fieldRule{
	{labels: []string{"Type"}, transform: firstLine, assign: func(p *ParsedIssue, v string) { p.Type = v }},
	{
		labels:    []string{"Nom d'affichage", "Nom d’affichage", "Nom", "Contributeur"},
		transform: firstLine,
		assign:    func(p *ParsedIssue, v string) { p.DisplayName = v },
	},
	{labels: []string{"Lieu"}, transform: firstLine, assign: func(p *ParsedIssue, v string) { p.LocationID = v }},
	{labels: []string{"Événement"}, transform: firstLine, assign: func(p *ParsedIssue, v string) { p.EventID = v }},
	{
		labels:    []string{"Description"},
		transform: dropDescriptionPlaceholder,
		assign:    func(p *ParsedIssue, v string) { p.Description = v },
	},
	{labels: []string{"Contenu", "Témoignage"}, assign: func(p *ParsedIssue, v string) { p.Content = v }},
	{labels: []string{"Session"}, transform: firstLine, assign: func(p *ParsedIssue, v string) { p.SessionID = v }},
}

// IssueParser turns an issue title and Markdown body into a ParsedIssue.
// It never fails; anything it cannot read is left empty.
type IssueParser struct {
	images *ImageExtractor
}

// NewIssueParser creates a parser recognising images on hostedPrefixes.
func NewIssueParser(hostedPrefixes []string) *IssueParser {
	return &IssueParser{images: NewImageExtractor(hostedPrefixes)}
}

// Parse reads the labelled fields of body, falls back to the untagged text
// for the content and to the title for type and display name.
func (p *IssueParser) Parse(title, body string) ParsedIssue {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	fields := scanFields(lines)

	var parsed ParsedIssue
	for _, rule := range issueFieldRules {
		for _, label := range rule.labels {
			value := fields[label]
			if rule.transform != nil {
				value = rule.transform(value)
			}
			if value != "" {
				rule.assign(&parsed, value)
				break
			}
		}
	}

	if parsed.Content == "" {
		parsed.Content = untaggedContent(lines)
	}

	if parsed.Type == "" || parsed.DisplayName == "" {
		if m := titlePattern.FindStringSubmatch(strings.TrimSpace(title)); m != nil {
			if parsed.Type == "" {
				parsed.Type = content.NormalizeType(m[1])
			}
			if parsed.DisplayName == "" {
				parsed.DisplayName = strings.TrimSpace(m[2])
			}
		}
	}

	if ref, ok := p.images.Extract(body); ok {
		parsed.Image = &ref
	}
	return parsed
}

// scanFields collects "**Label:** value" lines. A value continues on the
// following lines until the next labelled line, a horizontal rule or the
// end of the body. The first occurrence of a label wins.
func scanFields(lines []string) map[string]string {
	fields := make(map[string]string)

	for i := 0; i < len(lines); i++ {
		m := fieldLinePattern.FindStringSubmatch(strings.TrimRight(lines[i], " \t"))
		if m == nil {
			continue
		}
		parts := []string{m[2]}
		j := i + 1
		for ; j < len(lines) && !isFieldBoundary(lines[j]); j++ {
			parts = append(parts, lines[j])
		}

		label := strings.TrimSpace(m[1])
		if _, seen := fields[label]; !seen {
			fields[label] = strings.TrimSpace(strings.Join(parts, "\n"))
		}
		i = j - 1
	}
	return fields
}

func isFieldBoundary(line string) bool {
	return fieldLinePattern.MatchString(strings.TrimSpace(line)) || ruleLinePattern.MatchString(line)
}

// untaggedContent joins every line that does not start with "**",
// skipping rules and image-only lines.
func untaggedContent(lines []string) string {
	kept := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "**") || ruleLinePattern.MatchString(line) || isImageOnlyLine(line) {
			continue
		}
		if trimmed == "" {
			blank = len(kept) > 0
			continue
		}
		if blank {
			kept = append(kept, "")
			blank = false
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// firstLine keeps the first non-blank line of a single-valued field.
func firstLine(value string) string {
	for _, line := range strings.Split(value, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			return line
		}
	}
	return ""
}

func dropDescriptionPlaceholder(value string) string {
	if strings.EqualFold(strings.TrimSpace(value), descriptionPlaceholder) {
		return ""
	}
	return value
}
