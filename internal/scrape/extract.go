package scrape

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/jasma-ai/recall/internal/knowledge"
)

// Q&A page selectors, matching the Stack Exchange family of sites.
const (
	questionBodySel = ".question .s-prose.js-post-body"
	acceptedBodySel = ".accepted-answer .s-prose.js-post-body"
	topAnswerSel    = ".answercell .s-prose.js-post-body"
	tagSel          = ".post-tag"
)

// Extract turns a fetched HTML page into a store request.
//
// Q&A pages map to bug entries: the question becomes the body, its code
// blocks the code field, and the accepted (or top) answer the
// resolution. Anything else goes through readability extraction and
// becomes a doc entry.
func Extract(html string, pageURL *url.URL) (knowledge.StoreRequest, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return knowledge.StoreRequest{}, fmt.Errorf("parsing html: %w", err)
	}

	if question := doc.Find(questionBodySel).First(); question.Length() > 0 {
		return extractQA(doc, question, pageURL)
	}
	return extractArticle(html, pageURL)
}

func extractQA(doc *goquery.Document, question *goquery.Selection, pageURL *url.URL) (knowledge.StoreRequest, error) {
	title := strings.TrimSpace(doc.Find("h1 a.question-hyperlink").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		return knowledge.StoreRequest{}, fmt.Errorf("question page %s has no title", pageURL)
	}

	var code []string
	question.Find("pre code").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			code = append(code, text)
		}
	})

	answer := doc.Find(acceptedBodySel).First()
	if answer.Length() == 0 {
		answer = doc.Find(topAnswerSel).First()
	}
	resolution := ""
	if answer.Length() > 0 {
		resolution = normalizeText(answer.Text())
	}

	var tags []string
	seen := make(map[string]bool)
	doc.Find(tagSel).Each(func(_ int, s *goquery.Selection) {
		tag := strings.TrimSpace(s.Text())
		if tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	})

	return knowledge.StoreRequest{
		Kind:       knowledge.KindBug,
		Title:      title,
		Body:       sourceLine(pageURL) + normalizeText(question.Text()),
		Code:       strings.Join(code, "\n\n"),
		Resolution: resolution,
		Tags:       tags,
	}, nil
}

func extractArticle(html string, pageURL *url.URL) (knowledge.StoreRequest, error) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return knowledge.StoreRequest{}, fmt.Errorf("readability extraction for %s: %w", pageURL, err)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		return knowledge.StoreRequest{}, fmt.Errorf("page %s has no extractable title", pageURL)
	}
	body := normalizeText(article.TextContent)
	if body == "" {
		return knowledge.StoreRequest{}, fmt.Errorf("page %s has no extractable content", pageURL)
	}

	return knowledge.StoreRequest{
		Kind:  knowledge.KindDoc,
		Title: title,
		Body:  sourceLine(pageURL) + body,
	}, nil
}

// sourceLine records provenance at the top of the body; entries carry
// no dedicated URL field.
func sourceLine(pageURL *url.URL) string {
	if pageURL == nil {
		return ""
	}
	return "Source: " + pageURL.String() + "\n\n"
}

// normalizeText collapses runs of whitespace while preserving paragraph
// breaks.
func normalizeText(s string) string {
	paragraphs := strings.Split(s, "\n\n")
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
