package novelty

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// vectorSpace is a sparse TF-IDF bag-of-terms model over the corpus:
// unigrams and bigrams, English stop words removed, vocabulary capped by
// document frequency.
type vectorSpace struct {
	vocab   map[string]int // term -> index
	idf     []float64
	docVecs []map[int]float64 // l2-normalized
}

// englishStopWords is the filter applied before term counting.
var englishStopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"all": true, "also": true, "an": true, "and": true, "any": true,
	"are": true, "as": true, "at": true, "be": true, "because": true,
	"been": true, "being": true, "between": true, "both": true, "but": true,
	"by": true, "can": true, "could": true, "did": true, "do": true,
	"does": true, "doing": true, "down": true, "during": true, "each": true,
	"few": true, "for": true, "from": true, "further": true, "had": true,
	"has": true, "have": true, "having": true, "here": true, "how": true,
	"if": true, "in": true, "into": true, "is": true, "it": true,
	"its": true, "itself": true, "more": true, "most": true, "no": true,
	"nor": true, "not": true, "of": true, "off": true, "on": true,
	"once": true, "only": true, "or": true, "other": true, "our": true,
	"out": true, "over": true, "own": true, "same": true, "should": true,
	"so": true, "some": true, "such": true, "than": true, "that": true,
	"the": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"to": true, "under": true, "until": true, "up": true, "very": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "who": true, "why": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
}

// tokenize lowercases, splits on non-alphanumeric runs, and drops stop
// words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if !englishStopWords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// terms returns unigrams plus bigrams for a text.
func terms(text string) []string {
	tokens := tokenize(text)
	out := make([]string, 0, len(tokens)*2)
	out = append(out, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		out = append(out, tokens[i]+" "+tokens[i+1])
	}
	return out
}

// newVectorSpace fits the model over the corpus texts. Returns nil when no
// text yields any terms.
func newVectorSpace(texts []string, maxVocabulary int) *vectorSpace {
	docTerms := make([][]string, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		docTerms[i] = terms(text)
		seen := make(map[string]bool)
		for _, t := range docTerms[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	if len(df) == 0 {
		return nil
	}

	// Cap vocabulary by document frequency, ties broken alphabetically.
	allTerms := make([]string, 0, len(df))
	for t := range df {
		allTerms = append(allTerms, t)
	}
	sort.Slice(allTerms, func(i, j int) bool {
		if df[allTerms[i]] != df[allTerms[j]] {
			return df[allTerms[i]] > df[allTerms[j]]
		}
		return allTerms[i] < allTerms[j]
	})
	if maxVocabulary > 0 && len(allTerms) > maxVocabulary {
		allTerms = allTerms[:maxVocabulary]
	}

	vs := &vectorSpace{vocab: make(map[string]int, len(allTerms))}
	for i, t := range allTerms {
		vs.vocab[t] = i
	}

	// Smoothed idf, as in standard TF-IDF weighting.
	n := float64(len(texts))
	vs.idf = make([]float64, len(allTerms))
	for i, t := range allTerms {
		vs.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	vs.docVecs = make([]map[int]float64, len(texts))
	for i, dt := range docTerms {
		vs.docVecs[i] = vs.vectorize(dt)
	}
	return vs
}

// vectorize maps a term list to a normalized sparse TF-IDF vector.
func (vs *vectorSpace) vectorize(termList []string) map[int]float64 {
	vec := make(map[int]float64)
	for _, t := range termList {
		if idx, ok := vs.vocab[t]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for idx := range vec {
		vec[idx] *= vs.idf[idx]
		norm += vec[idx] * vec[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

// similarities computes cosine similarity of the text against every corpus
// document.
func (vs *vectorSpace) similarities(text string) []float64 {
	query := vs.vectorize(terms(text))
	sims := make([]float64, len(vs.docVecs))
	for i, doc := range vs.docVecs {
		sims[i] = dot(query, doc)
	}
	return sims
}

// dot of two normalized sparse vectors is their cosine similarity.
func dot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for idx, v := range a {
		sum += v * b[idx]
	}
	return sum
}
