package service

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// Image sources, in the order they are tried.
const (
	ImageSourceHosted   = "hosted"
	ImageSourceMarkdown = "markdown"
	ImageSourceHTML     = "html"
	ImageSourceInline   = "inline"
	ImageSourceLinked   = "linked"
)

var (
	markdownImagePattern = regexp.MustCompile(`!\[[^\]]*]\((<[^>]+>|[^)\s]+)([^)]*)\)`)
	htmlDataImagePattern = regexp.MustCompile(`(?i)<img\b[^>]*?\bsrc\s*=\s*["'](data:image/[^"']+)["']`)
	htmlImageTagPattern  = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	bareDataImagePattern = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/=_-]+`)
	dataURIPattern       = regexp.MustCompile(`(?s)^data:(image/[A-Za-z0-9.+-]+);base64,(.+)$`)
	imageLabelPattern    = regexp.MustCompile(`(?m)^\*\*Image:\*\*[ \t]*(https?://[^\s)]+)`)
)

// ImageRef is the image found in an issue body. Hosted and linked images
// carry a URL; inline images carry a base64 payload to decode and store.
type ImageRef struct {
	Source    string
	URL       string
	MediaType string
	Payload   string
}

// IsInline reports whether the image still has to be decoded and stored.
func (r ImageRef) IsInline() bool {
	return r.Payload != ""
}

type imageRule struct {
	source string
	find   func(body string) (ImageRef, bool)
}

// ImageExtractor applies image rules in priority order; the first rule
// that matches wins.
type ImageExtractor struct {
	rules  []imageRule
	parser parser.Parser
}

// NewImageExtractor builds the rule list. hostedPrefixes are URL prefixes
// of image CDNs whose links are used verbatim.
func NewImageExtractor(hostedPrefixes []string) *ImageExtractor {
	x := &ImageExtractor{parser: goldmark.New().Parser()}

	var hosted []*regexp.Regexp
	for _, prefix := range hostedPrefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		hosted = append(hosted, regexp.MustCompile(regexp.QuoteMeta(prefix)+`[^\s)"'<>\]]+`))
	}

	x.rules = []imageRule{
		{source: ImageSourceHosted, find: func(body string) (ImageRef, bool) {
			for _, pattern := range hosted {
				if match := pattern.FindString(body); match != "" {
					return ImageRef{Source: ImageSourceHosted, URL: match}, true
				}
			}
			return ImageRef{}, false
		}},
		{source: ImageSourceMarkdown, find: func(body string) (ImageRef, bool) {
			for _, dest := range x.markdownImageDestinations(body) {
				if ref, ok := parseDataURI(dest); ok {
					ref.Source = ImageSourceMarkdown
					return ref, true
				}
			}
			return ImageRef{}, false
		}},
		{source: ImageSourceHTML, find: func(body string) (ImageRef, bool) {
			if m := htmlDataImagePattern.FindStringSubmatch(body); m != nil {
				if ref, ok := parseDataURI(m[1]); ok {
					ref.Source = ImageSourceHTML
					return ref, true
				}
			}
			return ImageRef{}, false
		}},
		{source: ImageSourceInline, find: func(body string) (ImageRef, bool) {
			if match := bareDataImagePattern.FindString(body); match != "" {
				if ref, ok := parseDataURI(match); ok {
					ref.Source = ImageSourceInline
					return ref, true
				}
			}
			return ImageRef{}, false
		}},
		{source: ImageSourceLinked, find: func(body string) (ImageRef, bool) {
			if m := imageLabelPattern.FindStringSubmatch(body); m != nil {
				return ImageRef{Source: ImageSourceLinked, URL: m[1]}, true
			}
			for _, dest := range x.markdownImageDestinations(body) {
				if strings.HasPrefix(dest, "https://") || strings.HasPrefix(dest, "http://") {
					return ImageRef{Source: ImageSourceLinked, URL: dest}, true
				}
			}
			return ImageRef{}, false
		}},
	}
	return x
}

// Extract returns the first image found in body.
func (x *ImageExtractor) Extract(body string) (ImageRef, bool) {
	if strings.TrimSpace(body) == "" {
		return ImageRef{}, false
	}
	for _, rule := range x.rules {
		if ref, ok := rule.find(body); ok {
			return ref, true
		}
	}
	return ImageRef{}, false
}

// markdownImageDestinations walks the Markdown AST and returns every image
// destination in document order.
func (x *ImageExtractor) markdownImageDestinations(body string) []string {
	source := []byte(body)
	doc := x.parser.Parse(text.NewReader(source))

	var dests []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			dests = append(dests, strings.TrimSpace(string(img.Destination)))
		}
		return ast.WalkContinue, nil
	})
	return dests
}

func parseDataURI(uri string) (ImageRef, bool) {
	m := dataURIPattern.FindStringSubmatch(strings.Trim(strings.TrimSpace(uri), "<>"))
	if m == nil {
		return ImageRef{}, false
	}
	payload := strings.TrimSpace(m[2])
	if payload == "" {
		return ImageRef{}, false
	}
	return ImageRef{URL: "data:" + m[1] + ";base64," + payload, MediaType: strings.ToLower(m[1]), Payload: payload}, true
}

// isImageOnlyLine reports whether a line carries nothing but images.
func isImageOnlyLine(line string) bool {
	stripped := markdownImagePattern.ReplaceAllString(line, "")
	stripped = htmlImageTagPattern.ReplaceAllString(stripped, "")
	stripped = bareDataImagePattern.ReplaceAllString(stripped, "")
	if strings.TrimSpace(stripped) != "" {
		return false
	}
	return strings.TrimSpace(line) != ""
}
