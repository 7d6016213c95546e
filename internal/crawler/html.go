package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kommuneai/crawler/internal/domain"
)

// contentSelectors is the prioritized list of content-container selectors.
// The first match is the extraction region; the full body is the fallback.
const contentSelectors = "main, .content, #content, .main-content"

// extractStructuredData pulls links, contacts, forms, PDF references and the
// primary content out of a rendered document.
func extractStructuredData(doc *goquery.Document, pageURL string) []domain.RawItem {
	region := doc.Find(contentSelectors).First()
	if region.Length() == 0 {
		region = doc.Find("body").First()
	}
	if region.Length() == 0 {
		return nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var items []domain.RawItem
	items = append(items, extractLinks(region, pageURL)...)
	items = append(items, extractContacts(region.Text(), pageURL)...)
	items = append(items, extractForms(region, base, pageURL)...)
	items = append(items, extractPDFLinks(region, base, pageURL)...)
	items = append(items, extractContent(region, pageURL)...)
	return items
}

// extractLinks collects absolute HTTP(S) links with non-empty anchor text.
func extractLinks(region *goquery.Selection, pageURL string) []domain.RawItem {
	var items []domain.RawItem
	region.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())
		if href == "" || text == "" || !strings.HasPrefix(href, "http") {
			return
		}
		items = append(items, domain.RawItem{
			Type:   domain.ItemTypeLink,
			URL:    href,
			Title:  text,
			Source: pageURL,
		})
	})
	return items
}

// extractForms collects every form element's action URL and method. Relative
// actions are resolved against the page URL; a form without an action points
// back at the page itself.
func extractForms(region *goquery.Selection, base *url.URL, pageURL string) []domain.RawItem {
	var items []domain.RawItem
	region.Find("form").Each(func(_ int, sel *goquery.Selection) {
		action, _ := sel.Attr("action")
		method, _ := sel.Attr("method")
		if method == "" {
			method = "GET"
		}
		items = append(items, domain.RawItem{
			Type:   domain.ItemTypeForm,
			URL:    resolveURL(base, action, pageURL),
			Method: strings.ToUpper(method),
			Source: pageURL,
		})
	})
	return items
}

// extractPDFLinks collects links whose href contains ".pdf".
func extractPDFLinks(region *goquery.Selection, base *url.URL, pageURL string) []domain.RawItem {
	var items []domain.RawItem
	region.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || !strings.Contains(strings.ToLower(href), ".pdf") {
			return
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = "PDF-Dokument"
		}
		items = append(items, domain.RawItem{
			Type:   domain.ItemTypePDF,
			URL:    resolveURL(base, href, pageURL),
			Title:  title,
			Source: pageURL,
		})
	})
	return items
}

// extractContent emits the region's visible text as one content item when it
// exceeds the minimum length. The title is the first heading in the region.
func extractContent(region *goquery.Selection, pageURL string) []domain.RawItem {
	text := collapseWhitespace(region.Text())
	if len(text) <= minContentLength {
		return nil
	}

	title := strings.TrimSpace(region.Find("h1, h2, h3").First().Text())
	if title == "" {
		title = "Inhalt"
	}

	return []domain.RawItem{{
		Type:      domain.ItemTypeContent,
		URL:       pageURL,
		Title:     title,
		Content:   text,
		PlainText: text,
		Source:    pageURL,
	}}
}

// resolveURL resolves href against the page base. Unresolvable hrefs fall
// back to the page URL so no item ends up without a target.
func resolveURL(base *url.URL, href, pageURL string) string {
	if href == "" {
		return pageURL
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return pageURL
	}
	return base.ResolveReference(ref).String()
}

// collapseWhitespace folds runs of whitespace into single spaces and trims.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
