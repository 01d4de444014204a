package tokenizer

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

var englishStopwords = set(
	"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your",
	"yours", "yourself", "yourselves", "he", "him", "his", "himself", "she",
	"her", "hers", "herself", "it", "its", "itself", "they", "them", "their",
	"theirs", "themselves", "what", "which", "who", "whom", "this", "that",
	"these", "those", "am", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
	"the", "and", "but", "if", "or", "because", "as", "until", "while", "of",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to", "from",
	"up", "down", "in", "out", "on", "off", "over", "under", "again",
	"further", "then", "once", "here", "there", "when", "where", "why", "how",
	"all", "any", "both", "each", "few", "more", "most", "other", "some",
	"such", "no", "nor", "not", "only", "own", "same", "so", "than", "too",
	"very", "can", "will", "just", "should", "now", "don", "doesn", "didn",
	"isn", "aren", "wasn", "weren", "won", "wouldn", "couldn", "shouldn",
)

// arabicStopwords is keyed by normalised form; see init.
var arabicStopwords map[string]struct{}

func init() {
	raw := []string{
		"في", "من", "على", "إلى", "عن", "مع", "هذا", "هذه", "ذلك", "تلك",
		"التي", "الذي", "الذين", "اللذان", "أن", "إن", "كان", "كانت", "يكون",
		"لا", "ما", "هو", "هي", "هم", "هن", "نحن", "أنت", "أنا", "أو", "ثم",
		"قد", "لقد", "كل", "بين", "بعد", "قبل", "حتى", "عند", "لم", "لن",
		"كما", "إذا", "أيضا", "غير", "منذ", "فيه", "فيها", "عليه", "عليها",
		"له", "لها", "به", "بها", "هناك", "هنا", "وهو", "وهي", "التى", "ولا",
		"أي", "إلا", "بل", "لكن", "ليس", "مثل", "عندما", "حيث", "كيف", "هل",
		"يا", "وقد", "ومن", "وفي", "والتي", "الى", "او",
	}
	arabicStopwords = make(map[string]struct{}, len(raw))
	for _, w := range raw {
		arabicStopwords[normalizeArabic(w)] = struct{}{}
	}
}
