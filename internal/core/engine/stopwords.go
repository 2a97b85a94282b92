package engine

// defaultStopwords are function words excluded from keyword extraction.
// The corpus is predominantly French business paperwork with a share of
// English documents, so both lists are carried.
var defaultStopwords = []string{
	"le", "la", "les", "un", "une", "des", "du", "de", "et", "en", "au", "aux",
	"ce", "cette", "ces", "son", "sa", "ses", "leur", "leurs", "mon", "ma", "mes",
	"ton", "ta", "tes", "notre", "nos", "votre", "vos", "qui", "que", "quoi",
	"dont", "où", "pour", "par", "sur", "sous", "avec", "sans", "dans", "entre",
	"vers", "chez", "il", "elle", "on", "nous", "vous", "ils", "elles", "je", "tu",
	"est", "sont", "être", "avoir", "fait", "faire", "dit", "dire", "peut", "pouvoir",
	"tout", "tous", "toute", "toutes", "autre", "autres", "même", "aussi", "plus",
	"moins", "très", "bien", "mal", "peu", "trop", "comme", "mais", "ou", "donc",
	"car", "ni", "si", "non", "oui", "pas", "ne", "se", "lui", "y", "ci", "là",
	"ici", "cela", "ceci", "celui", "celle", "ceux", "celles", "quelque", "chaque",
	"quel", "quelle", "quels", "quelles", "ainsi", "alors", "après", "avant",
	"encore", "déjà", "toujours", "jamais", "souvent", "parfois", "depuis", "jusqu",
	"the", "a", "an", "and", "or", "but", "is", "are", "was", "were", "be", "been",
	"being", "have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "may", "might", "must", "shall", "can", "need", "to", "of", "in",
	"for", "on", "with", "at", "by", "from", "as", "into", "through", "during",
	"before", "after", "above", "below", "between", "under", "again", "further",
	"then", "once", "here", "there", "when", "where", "why", "how", "all", "each",
	"few", "more", "most", "other", "some", "such", "no", "not", "only", "own",
	"same", "so", "than", "too", "very", "just", "this", "that", "these", "those",
}

func buildStopwordSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultStopwords)+len(extra))
	for _, w := range defaultStopwords {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		set[w] = struct{}{}
	}
	return set
}
