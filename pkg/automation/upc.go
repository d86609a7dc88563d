package automation

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// UPCItem is one barcode match from a UPC database results page.
type UPCItem struct {
	Code   string `json:"code"`
	Format string `json:"format"`
	Title  string `json:"title,omitempty"`
	Brand  string `json:"brand,omitempty"`
	Image  string `json:"image,omitempty"`
	Link   string `json:"link,omitempty"`
}

// barcodeFormats maps a digit-run length to its barcode format name.
var barcodeFormats = map[int]string{
	8:  "EAN-8",
	9:  "ISBN",
	10: "ISBN-10",
	11: "UPC-E",
	12: "UPC-A",
	13: "EAN-13",
	14: "GTIN-14",
}

// barcodeRe matches standalone digit runs of plausible barcode length.
var barcodeRe = regexp.MustCompile(`\b[0-9]{8,14}\b`)

// ExtractUPCItems heuristically locates barcode-like digit runs per result
// row, classifies them by length, extracts title/brand/image/link, and
// deduplicates by code. Returns at most maxResults items (0 means no limit).
func ExtractUPCItems(htmlText string, maxResults int) []UPCItem {
	spec := upcSpec()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return []UPCItem{}
	}

	seen := make(map[string]bool)
	items := make([]UPCItem, 0)

	doc.Find(spec.Rows).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		code, format := findBarcode(row.Text())
		if code == "" || seen[code] {
			return true
		}
		seen[code] = true

		item := UPCItem{
			Code:   code,
			Format: format,
			Title:  firstSelectorText(row, spec.Title),
			Brand:  firstSelectorText(row, spec.Brand),
		}
		if src, ok := row.Find(spec.Image).First().Attr("src"); ok {
			item.Image = src
		}
		if href, ok := row.Find(spec.Link).First().Attr("href"); ok {
			item.Link = href
		}

		items = append(items, item)
		return maxResults <= 0 || len(items) < maxResults
	})

	return items
}

// firstSelectorText tries each comma-separated selector in priority order
// rather than document order, so a specific title selector wins over a
// cell-position fallback.
func firstSelectorText(row *goquery.Selection, selectorList string) string {
	for _, sel := range strings.Split(selectorList, ",") {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if found := row.Find(sel).First(); found.Length() > 0 {
			return cleanText(found.Text())
		}
	}
	return ""
}

// findBarcode returns the first digit run in text whose length maps to a
// known barcode format.
func findBarcode(text string) (code, format string) {
	for _, candidate := range barcodeRe.FindAllString(text, -1) {
		if name, ok := barcodeFormats[len(candidate)]; ok {
			return candidate, name
		}
	}
	return "", ""
}
