// Package extract parses CPALMS benchmark pages into typed records.
//
// The source markup is not under our control and has shifted shape over
// time, so both the resource-type resolution and the access-point
// detection are deliberate heuristic chains rather than strict parsers.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/flbest/standards-crawler/internal/store"
)

// accessPointMarker appears in the href of access-point links on pages
// using the current markup.
const accessPointMarker = "AccessPoint"

// Result is everything extracted from a single page. Extraction is a
// pure function of the markup; it never deduplicates across calls.
type Result struct {
	Resources    []store.Resource
	AccessPoints []string
	// Discarded counts related-item blocks that resolved to the
	// "Other" type and were dropped.
	Discarded int
}

// Extractor parses pages for one site origin.
type Extractor struct {
	// origin prefixes relative resource URLs, e.g. "https://www.cpalms.org".
	origin string
}

// New returns an Extractor for the given site origin.
func New(origin string) *Extractor {
	return &Extractor{origin: strings.TrimSuffix(origin, "/")}
}

// Extract pulls teaching resources and access-point codes out of one
// benchmark page. Pages without the expected markup yield an empty
// Result rather than an error.
func (e *Extractor) Extract(markup []byte, benchmarkID string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return Result{}, fmt.Errorf("parse page for %s: %w", benchmarkID, err)
	}

	var res Result
	doc.Find("div.classRelatedblock").Each(func(_ int, block *goquery.Selection) {
		r, ok := e.resourceFromBlock(block)
		if !ok {
			return
		}
		if r.Type != store.TypeLessonPlan && r.Type != store.TypeFormativeAssessment {
			res.Discarded++
			return
		}
		res.Resources = append(res.Resources, r)
	})

	res.AccessPoints = accessPoints(doc)
	return res, nil
}

// resourceFromBlock reads one related-item block. The block must carry
// a link with both an href and a title.
func (e *Extractor) resourceFromBlock(block *goquery.Selection) (store.Resource, bool) {
	link := block.Find("a").First()
	if link.Length() == 0 {
		return store.Resource{}, false
	}
	href, _ := link.Attr("href")
	title := strings.TrimSuffix(strings.TrimSpace(link.Text()), ":")
	if href == "" || title == "" {
		return store.Resource{}, false
	}
	if !strings.HasPrefix(href, "http") {
		if !strings.HasPrefix(href, "/") {
			href = "/" + href
		}
		href = e.origin + href
	}

	return store.Resource{
		Title:       title,
		URL:         href,
		Type:        resolveType(block, href, title),
		Description: description(block),
	}, true
}

// resolveType runs the type priority chain: an explicit "Type:" label,
// then URL path keywords, then title keywords, then dedicated
// type-marker elements, then "Other".
func resolveType(block *goquery.Selection, url, title string) store.ResourceType {
	if label, ok := typeLabel(block); ok {
		return typeFromText(label)
	}

	switch {
	case strings.Contains(url, "LessonPlan") || strings.Contains(url, "ResourceLesson"):
		return store.TypeLessonPlan
	case strings.Contains(url, "FormativeAssessment") || strings.Contains(url, "ResourceAssessment"):
		return store.TypeFormativeAssessment
	}

	if t := typeFromText(title); t != store.TypeOther {
		return t
	}

	marker := block.Find("div.resource-type, span.resource-type, div.type").First()
	if marker.Length() > 0 {
		return typeFromText(marker.Text())
	}

	return store.TypeOther
}

// typeLabel finds the explicit "Type: X" paragraph when present.
func typeLabel(block *goquery.Selection) (string, bool) {
	var label string
	block.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if strings.Contains(text, "Type:") {
			label = text
			return false
		}
		return true
	})
	return label, label != ""
}

func typeFromText(text string) store.ResourceType {
	switch {
	case strings.Contains(text, "Lesson Plan"):
		return store.TypeLessonPlan
	case strings.Contains(text, "Formative Assessment"):
		return store.TypeFormativeAssessment
	default:
		return store.TypeOther
	}
}

// description returns the first paragraph that is not the type label.
func description(block *goquery.Selection) string {
	var desc string
	block.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if text != "" && !strings.Contains(text, "Type:") {
			desc = text
			return false
		}
		return true
	})
	return desc
}

// accessPoints collects cross-referenced access-point codes. Links
// whose target path carries the access-point marker are preferred; when
// the page has none, every link is scanned for text with an
// access-point-like shape. The fallback is a loose textual filter, kept
// loose on purpose because the source markup is unreliable.
func accessPoints(doc *goquery.Document) []string {
	links := doc.Find("a").FilterFunction(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		return strings.Contains(href, accessPointMarker)
	})

	if links.Length() == 0 {
		links = doc.Find("a").FilterFunction(func(_ int, link *goquery.Selection) bool {
			text := strings.TrimSpace(link.Text())
			return strings.Contains(text, "AP") && strings.Contains(text, ".") && len(text) > 5
		})
	}

	var codes []string
	links.Each(func(_ int, link *goquery.Selection) {
		code := strings.TrimSpace(link.Text())
		if code == "" || !strings.Contains(code, "AP") {
			return
		}
		codes = append(codes, strings.TrimSuffix(code, ":"))
	})
	return codes
}
