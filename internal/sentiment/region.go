package sentiment

import (
	"sort"
	"strings"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

// regionOrder fixes tie-breaking when two regions are mentioned equally often.
var regionOrder = []string{
	models.RegionMiddleEast,
	models.RegionAfrica,
	models.RegionLatinAmerica,
	models.RegionAsia,
	models.RegionEurope,
	models.RegionNorthAmerica,
	models.RegionOceania,
}

type sourceEntry struct {
	name   string
	region string
}

// RegionClassifier infers the region an article is about from its text, and
// the region a source is presumed to publish from via a static outlet table.
type RegionClassifier struct {
	keywords map[string]map[string]struct{}
	// two-word region names, matched before single keywords
	phrases map[string]string
	exact   map[string]string
	// substring matches, longest name first so "mail & guardian" wins over "guardian"
	sources []sourceEntry
}

// NewRegionClassifier creates a classifier with the built-in keyword and outlet tables.
func NewRegionClassifier() *RegionClassifier {
	c := &RegionClassifier{
		keywords: map[string]map[string]struct{}{
			models.RegionMiddleEast: wordSet("iran", "iranian", "iraq", "israel", "israeli", "gaza", "syria",
				"lebanon", "saudi", "yemen", "jordan", "qatar", "dubai", "emirates", "palestinian",
				"tehran", "baghdad", "riyadh", "إيران", "عراق", "سوريا", "لبنان", "غزة", "السعودية", "الخليج"),
			models.RegionAfrica: wordSet("africa", "african", "nigeria", "kenya", "ethiopia", "ghana", "sudan",
				"somalia", "congo", "lagos", "nairobi", "johannesburg", "senegal", "uganda", "afrique"),
			models.RegionLatinAmerica: wordSet("brazil", "brasil", "mexico", "méxico", "argentina", "chile",
				"colombia", "peru", "perú", "venezuela", "bogotá", "caracas", "lima", "latinoamérica"),
			models.RegionAsia: wordSet("china", "chinese", "japan", "japanese", "india", "indian", "korea",
				"beijing", "tokyo", "delhi", "indonesia", "vietnam", "taiwan", "pakistan", "asia", "asian"),
			models.RegionEurope: wordSet("europe", "european", "germany", "german", "france", "french",
				"britain", "british", "london", "paris", "berlin", "italy", "spain", "ukraine", "brussels",
				"deutschland", "europa", "россия", "москва"),
			models.RegionNorthAmerica: wordSet("america", "american", "americans", "washington", "canada",
				"canadian", "california", "texas", "york", "congress", "ottawa", "chicago"),
			models.RegionOceania: wordSet("australia", "australian", "zealand", "sydney", "melbourne", "pacific"),
		},
		phrases: map[string]string{
			"middle east":     models.RegionMiddleEast,
			"oriente medio":   models.RegionMiddleEast,
			"moyen orient":    models.RegionMiddleEast,
			"north africa":    models.RegionAfrica,
			"south africa":    models.RegionAfrica,
			"latin america":   models.RegionLatinAmerica,
			"south america":   models.RegionLatinAmerica,
			"central america": models.RegionLatinAmerica,
			"américa latina":  models.RegionLatinAmerica,
			"amérique latine": models.RegionLatinAmerica,
			"united states":   models.RegionNorthAmerica,
			"north america":   models.RegionNorthAmerica,
			"united kingdom":  models.RegionEurope,
		},
		exact: map[string]string{
			"dw":  models.RegionEurope,
			"ap":  models.RegionNorthAmerica,
			"npr": models.RegionNorthAmerica,
			"cbc": models.RegionNorthAmerica,
			"nhk": models.RegionAsia,
			"abc": models.RegionNorthAmerica,
		},
		sources: []sourceEntry{
			{"al jazeera", models.RegionMiddleEast},
			{"al arabiya", models.RegionMiddleEast},
			{"haaretz", models.RegionMiddleEast},
			{"times of israel", models.RegionMiddleEast},
			{"gulf news", models.RegionMiddleEast},
			{"bbc", models.RegionEurope},
			{"reuters", models.RegionEurope},
			{"guardian", models.RegionEurope},
			{"le monde", models.RegionEurope},
			{"spiegel", models.RegionEurope},
			{"france 24", models.RegionEurope},
			{"euronews", models.RegionEurope},
			{"deutsche welle", models.RegionEurope},
			{"el país", models.RegionEurope},
			{"financial times", models.RegionEurope},
			{"cnn", models.RegionNorthAmerica},
			{"new york times", models.RegionNorthAmerica},
			{"nytimes", models.RegionNorthAmerica},
			{"washington post", models.RegionNorthAmerica},
			{"fox news", models.RegionNorthAmerica},
			{"associated press", models.RegionNorthAmerica},
			{"bloomberg", models.RegionNorthAmerica},
			{"wall street journal", models.RegionNorthAmerica},
			{"usgs", models.RegionNorthAmerica},
			{"noaa", models.RegionNorthAmerica},
			{"xinhua", models.RegionAsia},
			{"times of india", models.RegionAsia},
			{"south china morning post", models.RegionAsia},
			{"the hindu", models.RegionAsia},
			{"straits times", models.RegionAsia},
			{"japan times", models.RegionAsia},
			{"folha", models.RegionLatinAmerica},
			{"clarín", models.RegionLatinAmerica},
			{"el universal", models.RegionLatinAmerica},
			{"globo", models.RegionLatinAmerica},
			{"daily nation", models.RegionAfrica},
			{"mail & guardian", models.RegionAfrica},
			{"premium times", models.RegionAfrica},
			{"allafrica", models.RegionAfrica},
			{"sydney morning herald", models.RegionOceania},
			{"abc australia", models.RegionOceania},
		},
	}

	sort.SliceStable(c.sources, func(i, j int) bool {
		return len(c.sources[i].name) > len(c.sources[j].name)
	})
	return c
}

// ContentRegion returns the region most mentioned in text, or global when none is.
func (c *RegionClassifier) ContentRegion(text string) string {
	return c.contentRegionTokens(tokenize(text))
}

func (c *RegionClassifier) contentRegionTokens(tokens []string) string {
	counts := make(map[string]int)
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) {
			if region, ok := c.phrases[tokens[i]+" "+tokens[i+1]]; ok {
				counts[region]++
				i++
				continue
			}
		}
		for _, region := range regionOrder {
			if countMatches(tokens[i:i+1], c.keywords[region]) > 0 {
				counts[region]++
			}
		}
	}

	best, bestCount := models.RegionGlobal, 0
	for _, region := range regionOrder {
		if n := counts[region]; n > bestCount {
			best, bestCount = region, n
		}
	}
	return best
}

// SourceRegion returns the presumed origin of a named outlet, or unknown.
func (c *RegionClassifier) SourceRegion(source string) string {
	name := strings.ToLower(strings.TrimSpace(source))
	if name == "" {
		return models.RegionUnknown
	}
	if region, ok := c.exact[name]; ok {
		return region
	}
	for _, entry := range c.sources {
		if strings.Contains(name, entry.name) {
			return entry.region
		}
	}
	return models.RegionUnknown
}
