package sentiment

// Language codes recognised by the detector.
const (
	LangEnglish    = "en"
	LangSpanish    = "es"
	LangFrench     = "fr"
	LangGerman     = "de"
	LangPortuguese = "pt"
	LangItalian    = "it"
	LangArabic     = "ar"
	LangRussian    = "ru"
)

// Detection needs at least this many stop-word hits for the winner...
const minLanguageMatches = 3

// ...and the winner must beat the runner-up by more than this margin.
const minLanguageMargin = 1

// detectionOrder fixes tie-breaking between languages with equal counts.
var detectionOrder = []string{
	LangEnglish, LangSpanish, LangFrench, LangGerman,
	LangPortuguese, LangItalian, LangArabic, LangRussian,
}

// LanguageDetector guesses the language of a text from stop-word frequency.
// It is conservative: short or mixed text stays English.
type LanguageDetector struct {
	stopWords map[string]map[string]struct{}
}

// NewLanguageDetector creates a detector with the built-in stop-word sets.
func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{
		stopWords: map[string]map[string]struct{}{
			LangEnglish: wordSet("the", "and", "of", "to", "in", "is", "that", "for", "on", "with",
				"was", "are", "as", "at", "by", "this", "from", "it", "be", "has", "have"),
			LangSpanish: wordSet("el", "la", "los", "las", "de", "que", "y", "en", "del", "por",
				"con", "para", "una", "es", "se", "al", "su", "lo", "como", "más"),
			LangFrench: wordSet("le", "les", "des", "et", "est", "un", "une", "du", "dans", "pour",
				"sur", "au", "pas", "qui", "avec", "ce", "cette", "sont", "été", "ont"),
			LangGerman: wordSet("der", "die", "das", "und", "ist", "nicht", "ein", "eine", "zu", "den",
				"von", "mit", "sich", "auf", "für", "im", "dem", "auch", "wird", "nach"),
			LangPortuguese: wordSet("o", "os", "e", "do", "da", "em", "um", "com", "não", "no",
				"na", "mais", "dos", "foi", "ao", "são", "pelo", "pela", "das", "também"),
			LangItalian: wordSet("il", "gli", "di", "che", "è", "per", "non", "della", "sono", "nel",
				"alla", "anche", "questo", "ha", "dei", "degli", "nella", "più", "tra", "stato"),
			LangArabic: wordSet("في", "من", "على", "إلى", "أن", "عن", "مع", "هذا", "التي", "الذي",
				"هذه", "كان", "بين", "بعد"),
			LangRussian: wordSet("и", "в", "не", "на", "что", "с", "по", "это", "как", "из",
				"к", "за", "от", "для", "его"),
		},
	}
}

// Detect returns the language code of text.
func (d *LanguageDetector) Detect(text string) string {
	return d.detectTokens(tokenize(text))
}

func (d *LanguageDetector) detectTokens(tokens []string) string {
	best, bestCount, runnerUp := LangEnglish, -1, 0

	for _, lang := range detectionOrder {
		n := countMatches(tokens, d.stopWords[lang])
		switch {
		case n > bestCount:
			runnerUp = max(bestCount, 0)
			best, bestCount = lang, n
		case n > runnerUp:
			runnerUp = n
		}
	}

	if bestCount < minLanguageMatches || bestCount-runnerUp <= minLanguageMargin {
		return LangEnglish
	}
	return best
}
