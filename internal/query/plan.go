package query

// Plan decides which retrieval channels to open (spec section 4.2 step 2).
type Plan struct {
	Keyword  bool
	Semantic bool
	Relation bool
}

// stopWords are common English function words; a search query consisting
// only of these short-circuits straight to the pure-filter path (spec
// section 4.2 step 3: "Empty or stop-word-only queries short-circuit").
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true,
	"to": true, "in": true, "on": true, "is": true, "it": true, "for": true,
}

// Build decides the channel plan for a normalized Request. semanticAvailable
// reflects whether the embedding + vector services are actually configured
// (spec section 4.2: "enabled only when embedding + vector services are
// available").
func Build(req Request, semanticAvailable bool) Plan {
	var plan Plan
	if req.Search != "" && !isStopWordOnly(req.Search) {
		plan.Keyword = true
	}
	if req.SemanticSearch && semanticAvailable && req.Search != "" {
		plan.Semantic = true
	}
	if req.RelatedTo != nil {
		plan.Relation = true
	}
	return plan
}

func isStopWordOnly(s string) bool {
	words := splitWords(s)
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if !stopWords[w] {
			return false
		}
	}
	return true
}

func splitWords(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		isWord := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if isWord && start == -1 {
			start = i
		} else if !isWord && start != -1 {
			out = append(out, toLower(s[start:i]))
			start = -1
		}
	}
	if start != -1 {
		out = append(out, toLower(s[start:]))
	}
	return out
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
