package automation

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Offer is one structured listing scraped from a retailer's search results.
type Offer struct {
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	PriceText string  `json:"priceText"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Merchant  string  `json:"merchant,omitempty"`
	Link      string  `json:"link,omitempty"`
	Used      bool    `json:"used"`
}

// OfferOptions controls offer extraction.
type OfferOptions struct {
	// IncludeUsed keeps used/refurbished listings instead of dropping them.
	IncludeUsed bool

	// MaxResults truncates the sorted result set; 0 means no limit.
	MaxResults int
}

// priceRe matches a leading currency symbol followed by a numeric amount,
// e.g. "$1,299.99" or "£45".
var priceRe = regexp.MustCompile(`^([$£€¥])\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)

// usedMarkers flag a listing as used/refurbished when present in its
// condition or title text.
var usedMarkers = []string{"used", "refurbished", "pre-owned", "preowned", "renewed", "open box"}

// ParsePrice extracts a currency symbol and amount from the start of a price
// string. Returns ok=false when the text does not begin with a recognizable
// price.
func ParsePrice(text string) (currency string, amount float64, ok bool) {
	m := priceRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", 0, false
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return "", 0, false
	}
	return m[1], amount, true
}

// isUsedListing reports whether condition/title text marks a listing as used
// or refurbished.
func isUsedListing(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range usedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExtractOffers scrapes a retailer's search-results HTML into structured
// offers: parsed prices, used-listing filtering, ascending price sort, and
// MaxResults truncation. An unknown source yields an empty set, not an error.
func ExtractOffers(htmlText, source string, opts OfferOptions) []Offer {
	spec, ok := OfferSource(source)
	if !ok {
		return []Offer{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return []Offer{}
	}

	offers := make([]Offer, 0)
	doc.Find(spec.Result).Each(func(_ int, row *goquery.Selection) {
		title := cleanText(row.Find(spec.Title).First().Text())
		if title == "" {
			return
		}

		priceText := cleanText(row.Find(spec.Price).First().Text())
		currency, amount, ok := ParsePrice(priceText)
		if !ok {
			return
		}

		conditionText := ""
		if spec.Condition != "" {
			conditionText = row.Find(spec.Condition).First().Text()
		}
		used := isUsedListing(conditionText) || isUsedListing(title)
		if used && !opts.IncludeUsed {
			return
		}

		offer := Offer{
			Source:    source,
			Title:     title,
			PriceText: priceText,
			Price:     amount,
			Currency:  currency,
			Used:      used,
		}
		if spec.Merchant != "" {
			offer.Merchant = cleanText(row.Find(spec.Merchant).First().Text())
		}
		if href, exists := row.Find(spec.Link).First().Attr("href"); exists {
			offer.Link = href
		}
		offers = append(offers, offer)
	})

	sort.SliceStable(offers, func(i, j int) bool { return offers[i].Price < offers[j].Price })

	if opts.MaxResults > 0 && len(offers) > opts.MaxResults {
		offers = offers[:opts.MaxResults]
	}
	return offers
}

// ExtractGoogleShoppingOffers scrapes a Google Shopping results page.
func ExtractGoogleShoppingOffers(htmlText string, opts OfferOptions) []Offer {
	return ExtractOffers(htmlText, "google_shopping", opts)
}

// cleanText collapses interior whitespace and trims the result.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
