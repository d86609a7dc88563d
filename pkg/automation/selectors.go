package automation

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var selectorsYAML []byte

// OfferSourceSpec is one retailer's selector set for scraping its search
// results page.
type OfferSourceSpec struct {
	SearchURL string `yaml:"search_url"`
	Result    string `yaml:"result"`
	Title     string `yaml:"title"`
	Price     string `yaml:"price"`
	Link      string `yaml:"link"`
	Merchant  string `yaml:"merchant"`
	Condition string `yaml:"condition"`
}

// EbayFlowSpec holds the step selectors for the ebay_search compound flow.
type EbayFlowSpec struct {
	HomeURL          string `yaml:"home_url"`
	SearchBox        string `yaml:"search_box"`
	SearchButton     string `yaml:"search_button"`
	Results          string `yaml:"results"`
	SoldItemsLabel   string `yaml:"sold_items_label"`
	ConditionMenu    string `yaml:"condition_menu"`
	ConditionOptions string `yaml:"condition_options"`
}

// UPCSpec holds the selectors for the UPC database lookup.
type UPCSpec struct {
	SearchURL  string   `yaml:"search_url"`
	Containers []string `yaml:"containers"`
	Rows       string   `yaml:"rows"`
	Title      string   `yaml:"title"`
	Brand      string   `yaml:"brand"`
	Image      string   `yaml:"image"`
	Link       string   `yaml:"link"`
}

type selectorTables struct {
	OfferSources map[string]OfferSourceSpec `yaml:"offer_sources"`
	Flows        struct {
		Ebay EbayFlowSpec `yaml:"ebay"`
	} `yaml:"flows"`
	UPC UPCSpec `yaml:"upc"`
}

var tables selectorTables

func init() {
	if err := yaml.Unmarshal(selectorsYAML, &tables); err != nil {
		panic(fmt.Sprintf("automation: embedded selectors.yaml is invalid: %v", err))
	}
}

// OfferSource looks up a retailer's selector set by source id.
func OfferSource(source string) (OfferSourceSpec, bool) {
	spec, ok := tables.OfferSources[source]
	return spec, ok
}

// DefaultOfferSources returns all known retailer source ids, sorted for
// deterministic iteration.
func DefaultOfferSources() []string {
	out := make([]string, 0, len(tables.OfferSources))
	for source := range tables.OfferSources {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// ebayFlow returns the ebay_search step selectors.
func ebayFlow() EbayFlowSpec { return tables.Flows.Ebay }

// upcSpec returns the UPC lookup selectors.
func upcSpec() UPCSpec { return tables.UPC }
