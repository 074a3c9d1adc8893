package sentiment

import "strings"

// Polarity scoring: each matched keyword adds 0.1 on top of a 0.3 base, in the
// direction of whichever side has more matches.
const (
	polarityBase   = 0.3
	polarityPerHit = 0.1
)

type lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// PolarityScorer scores text against per-language keyword lists. Each list is
// curated for its language rather than translated, because news vocabulary
// does not map one to one. Languages without a list use an emoticon heuristic.
type PolarityScorer struct {
	lexicons        map[string]lexicon
	positiveMarkers []string
	negativeMarkers []string
}

// NewPolarityScorer creates a scorer with the built-in lexicons.
func NewPolarityScorer() *PolarityScorer {
	return &PolarityScorer{
		lexicons: map[string]lexicon{
			LangEnglish: {
				positive: wordSet("growth", "gain", "gains", "rise", "rises", "surge", "record", "success",
					"successful", "peace", "agreement", "recovery", "improve", "improved", "strong", "boost",
					"win", "wins", "breakthrough", "optimism", "rally", "stable", "celebrate", "progress"),
				negative: wordSet("crisis", "crash", "war", "attack", "attacks", "death", "deaths", "killed",
					"decline", "fall", "falls", "loss", "losses", "fear", "fears", "collapse", "recession",
					"conflict", "disaster", "earthquake", "flood", "storm", "inflation", "protest", "violence", "threat"),
			},
			LangSpanish: {
				positive: wordSet("crecimiento", "éxito", "acuerdo", "paz", "mejora", "récord", "recuperación",
					"ganancia", "avance", "logro", "estabilidad", "celebra", "aumento", "optimismo", "impulso"),
				negative: wordSet("crisis", "caída", "guerra", "muerte", "muertos", "ataque", "pérdida", "pérdidas",
					"violencia", "inflación", "desastre", "terremoto", "miedo", "colapso", "protesta", "conflicto"),
			},
			LangFrench: {
				positive: wordSet("croissance", "succès", "accord", "paix", "amélioration", "record", "reprise",
					"hausse", "progrès", "victoire", "réussite", "stabilité", "optimisme", "essor"),
				negative: wordSet("crise", "chute", "guerre", "mort", "morts", "attaque", "perte", "pertes",
					"violence", "inflation", "catastrophe", "séisme", "peur", "effondrement", "grève", "conflit", "baisse"),
			},
			LangGerman: {
				positive: wordSet("wachstum", "erfolg", "einigung", "frieden", "verbesserung", "rekord", "erholung",
					"gewinn", "fortschritt", "sieg", "stabilität", "aufschwung", "zuversicht"),
				negative: wordSet("krise", "absturz", "krieg", "tod", "tote", "angriff", "verlust", "verluste",
					"gewalt", "inflation", "katastrophe", "erdbeben", "angst", "zusammenbruch", "streik", "konflikt", "rückgang"),
			},
			LangPortuguese: {
				positive: wordSet("crescimento", "sucesso", "acordo", "paz", "melhora", "recorde", "recuperação",
					"ganho", "avanço", "vitória", "estabilidade", "otimismo"),
				negative: wordSet("crise", "queda", "guerra", "morte", "mortos", "ataque", "perda", "perdas",
					"violência", "inflação", "desastre", "terremoto", "medo", "colapso", "protesto", "conflito"),
			},
			LangArabic: {
				positive: wordSet("نمو", "نجاح", "اتفاق", "سلام", "تحسن", "استقرار", "انتعاش", "تقدم", "فوز", "ازدهار", "أمن"),
				negative: wordSet("أزمة", "حرب", "هجوم", "قتلى", "موت", "انهيار", "خسائر", "عنف", "تضخم", "كارثة",
					"زلزال", "خوف", "صراع", "احتجاج"),
			},
			LangRussian: {
				positive: wordSet("рост", "успех", "соглашение", "мир", "улучшение", "рекорд", "восстановление",
					"прибыль", "прогресс", "победа", "стабильность"),
				negative: wordSet("кризис", "падение", "война", "смерть", "погибли", "атака", "потери", "насилие",
					"инфляция", "катастрофа", "землетрясение", "страх", "обвал", "конфликт", "протест"),
			},
		},
		positiveMarkers: []string{":)", ":-)", ":d", "😊", "😀", "👍", "🎉", "❤"},
		negativeMarkers: []string{":(", ":-(", "😢", "😡", "😠", "👎", "💔"},
	}
}

// Supports reports whether lang has a curated lexicon.
func (s *PolarityScorer) Supports(lang string) bool {
	_, ok := s.lexicons[lang]
	return ok
}

// Score returns the polarity of text in [-1, 1] and the number of keyword or
// marker hits that produced it.
func (s *PolarityScorer) Score(lang, text string) (float64, int) {
	return s.scoreTokens(lang, text, tokenize(text))
}

func (s *PolarityScorer) scoreTokens(lang, text string, tokens []string) (float64, int) {
	lex, ok := s.lexicons[lang]
	if !ok {
		return s.universal(text)
	}
	pos := countMatches(tokens, lex.positive)
	neg := countMatches(tokens, lex.negative)
	return polarity(pos, neg), pos + neg
}

// universal scores text by emoticons when no lexicon exists for its language.
func (s *PolarityScorer) universal(text string) (float64, int) {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, m := range s.positiveMarkers {
		pos += strings.Count(lower, m)
	}
	for _, m := range s.negativeMarkers {
		neg += strings.Count(lower, m)
	}
	return polarity(pos, neg), pos + neg
}

func polarity(pos, neg int) float64 {
	if pos == neg {
		return 0
	}
	sign := 1.0
	hits := pos
	if neg > pos {
		sign = -1.0
		hits = neg
	}
	return clamp(sign*(polarityBase+polarityPerHit*float64(hits)), -1, 1)
}
