// Package textfeatures computes the pure, deterministic per-window text
// signals of spec §4.E: keyphrase extraction, coverage, density, filler
// ratio, and scene-cut penalty. Grounded on
// original_source/backend/app/services/rank_text.py's KeyphraseExtractor
// and InformationDensityCalculator for the formulas, reimplemented
// without KeyBERT/YAKE/sklearn (no embedding or TF-IDF library exists
// anywhere in the retrieved pack) as two deterministic CPU extractors —
// see DESIGN.md for the Open Question resolution.
package textfeatures

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/forPelevin/clipcut/internal/types"
)

var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "it": {}, "its": {}, "i": {}, "you": {}, "we": {}, "they": {},
}

var fillerPhrases = []string{
	"you know", "i mean", "sort of", "kind of", "um", "uh", "like", "basically", "literally",
}

var wordRE = regexp.MustCompile(`[a-z0-9']+`)

// Corpus carries the per-job statistics fit once over every window's
// text (spec §4.E: "IDF over all window texts in the job").
type Corpus struct {
	idf          map[string]float64
	top5pctTerms map[string]struct{}
}

// FitCorpus builds the job-wide IDF table and top-5% vocabulary used by
// CoverageScore, mirroring rank_text.py's InformationDensityCalculator
// .fit_corpus role (there expressed via sklearn's TfidfVectorizer).
func FitCorpus(texts []string) Corpus {
	df := map[string]int{}
	n := len(texts)
	for _, text := range texts {
		seen := map[string]struct{}{}
		for _, w := range tokenizeWords(text) {
			seen[w] = struct{}{}
		}
		for w := range seen {
			df[w]++
		}
	}

	idf := make(map[string]float64, len(df))
	for w, count := range df {
		idf[w] = math.Log(float64(n+1) / float64(count+1))
	}

	type termScore struct {
		term  string
		score float64
	}
	ranked := make([]termScore, 0, len(idf))
	for w, score := range idf {
		ranked = append(ranked, termScore{w, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].term < ranked[j].term
	})

	top := int(math.Ceil(float64(len(ranked)) * 0.05))
	if top < 1 && len(ranked) > 0 {
		top = 1
	}
	topSet := make(map[string]struct{}, top)
	for i := 0; i < top && i < len(ranked); i++ {
		topSet[ranked[i].term] = struct{}{}
	}

	return Corpus{idf: idf, top5pctTerms: topSet}
}

// Compute derives the full TextFeatures for a single window's text.
func Compute(text string, containsSceneCuts int, corpus Corpus) types.TextFeatures {
	words := tokenizeWords(text)
	if len(words) == 0 {
		return types.TextFeatures{}
	}

	phrases := extractKeyphrases(words)
	return types.TextFeatures{
		KeyPhrases:      phrases,
		CoverageScore:   rawCoverageSum(phrases, corpus),
		DensityScore:    densityScore(words),
		FillerRatio:     fillerRatio(text, words),
		SceneCutPenalty: math.Min(1.0, float64(containsSceneCuts)/3.0),
	}
}

// NormalizeCoverage rescales every window's CoverageScore from the raw,
// unbounded sum Compute leaves in place to [0,1] via min-max normalization
// across the whole job's windows (spec §4.E.2: "clipped to [0,1] after
// per-job min-max normalization"). Callers must invoke this once, after
// Compute has run for every window in the job, before CoverageScore is
// used anywhere else. Windows with no spread (every raw sum equal,
// including the all-zero case) normalize to 0, since an equal raw sum
// carries no relative information within the job.
func NormalizeCoverage(features []types.TextFeatures) {
	if len(features) == 0 {
		return
	}
	lo, hi := features[0].CoverageScore, features[0].CoverageScore
	for _, f := range features[1:] {
		if f.CoverageScore < lo {
			lo = f.CoverageScore
		}
		if f.CoverageScore > hi {
			hi = f.CoverageScore
		}
	}
	spread := hi - lo
	for i := range features {
		if spread == 0 {
			features[i].CoverageScore = 0
			continue
		}
		features[i].CoverageScore = clamp01((features[i].CoverageScore - lo) / spread)
	}
}

func tokenizeWords(text string) []string {
	return wordRE.FindAllString(strings.ToLower(text), -1)
}

func contentWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// extractKeyphrases unions two extractors' output by taking, per
// phrase, the max normalized score across both (spec §4.E.1). Extractor
// 1 is a statistical n-gram frequency/length scorer (the TF-IDF-style
// role of rank_text.py's KeyBERT call); extractor 2 is a word
// co-occurrence centrality ranker standing in for the embedding-based
// extractor (DESIGN.md Open Question).
func extractKeyphrases(words []string) []types.KeyPhrase {
	statistical := statisticalPhrases(words)
	centrality := centralityPhrases(words)

	merged := make(map[string]float64, len(statistical)+len(centrality))
	for p, w := range statistical {
		merged[p] = w
	}
	for p, w := range centrality {
		if existing, ok := merged[p]; !ok || w > existing {
			merged[p] = w
		}
	}

	out := make([]types.KeyPhrase, 0, len(merged))
	for p, w := range merged {
		out = append(out, types.KeyPhrase{Phrase: p, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Phrase < out[j].Phrase
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// statisticalPhrases scores 1-3 grams by frequency weighted toward
// longer, non-stopword-led phrases, normalized to [0,1].
func statisticalPhrases(words []string) map[string]float64 {
	counts := map[string]int{}
	for n := 1; n <= 3; n++ {
		for i := 0; i+n <= len(words); i++ {
			gram := words[i : i+n]
			if _, stop := stopwords[gram[0]]; stop {
				continue
			}
			if _, stop := stopwords[gram[n-1]]; stop {
				continue
			}
			phrase := strings.Join(gram, " ")
			counts[phrase] += n // longer n-grams weighted up
		}
	}
	return normalizeScores(counts)
}

// centralityPhrases ranks unigrams by a PageRank-style centrality over
// the window's word-adjacency graph (co-occurrence within a 4-word
// window), the CPU-only substitute for an embedding-clustering
// extractor.
func centralityPhrases(words []string) map[string]float64 {
	const radius = 4
	adj := map[string]map[string]float64{}
	addEdge := func(a, b string) {
		if a == b {
			return
		}
		if adj[a] == nil {
			adj[a] = map[string]float64{}
		}
		adj[a][b]++
	}

	content := contentWords(words)
	for i, w := range content {
		for j := i + 1; j < len(content) && j-i <= radius; j++ {
			addEdge(w, content[j])
			addEdge(content[j], w)
		}
	}
	if len(adj) == 0 {
		return nil
	}

	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	score := make(map[string]float64, len(nodes))
	for _, n := range nodes {
		score[n] = 1.0 / float64(len(nodes))
	}

	const damping = 0.85
	const iterations = 20
	for iter := 0; iter < iterations; iter++ {
		next := make(map[string]float64, len(nodes))
		base := (1 - damping) / float64(len(nodes))
		for _, n := range nodes {
			next[n] = base
		}
		for _, n := range nodes {
			total := 0.0
			for _, w := range adj[n] {
				total += w
			}
			if total == 0 {
				continue
			}
			for neighbor, w := range adj[n] {
				next[neighbor] += damping * score[n] * (w / total)
			}
		}
		score = next
	}

	return normalizeScoresFloat(score)
}

func normalizeScores(counts map[string]int) map[string]float64 {
	if len(counts) == 0 {
		return nil
	}
	maxV := 0
	for _, c := range counts {
		if c > maxV {
			maxV = c
		}
	}
	out := make(map[string]float64, len(counts))
	for p, c := range counts {
		out[p] = float64(c) / float64(maxV)
	}
	return out
}

func normalizeScoresFloat(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}
	maxV := 0.0
	for _, s := range scores {
		if s > maxV {
			maxV = s
		}
	}
	if maxV == 0 {
		return nil
	}
	out := make(map[string]float64, len(scores))
	for p, s := range scores {
		out[p] = s / maxV
	}
	return out
}

// rawCoverageSum sums phrase weights whose phrase appears in the job's
// top-5% IDF vocabulary. The result is deliberately left unbounded and
// un-normalized: NormalizeCoverage rescales it to [0,1] across the whole
// job's windows in a second pass (spec §4.E.2).
func rawCoverageSum(phrases []types.KeyPhrase, corpus Corpus) float64 {
	if len(phrases) == 0 || len(corpus.top5pctTerms) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range phrases {
		for _, w := range strings.Fields(p.Phrase) {
			if _, ok := corpus.top5pctTerms[w]; ok {
				sum += p.Weight
				break
			}
		}
	}
	return sum
}

// densityScore weights lexical diversity, normalized Shannon entropy,
// and content-word ratio 0.4/0.3/0.3 (spec §4.E.3).
func densityScore(words []string) float64 {
	n := len(words)
	if n == 0 {
		return 0
	}

	unique := map[string]struct{}{}
	counts := map[string]int{}
	for _, w := range words {
		unique[w] = struct{}{}
		counts[w]++
	}
	lexicalDiversity := float64(len(unique)) / float64(n)

	entropy := 0.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		entropy -= p * math.Log2(p)
	}
	normEntropy := 0.0
	if n > 1 {
		normEntropy = entropy / math.Log2(float64(n))
	}

	contentRatio := float64(len(contentWords(words))) / float64(n)

	score := 0.4*lexicalDiversity + 0.3*normEntropy + 0.3*contentRatio
	return clamp01(score)
}

// fillerRatio is the fraction of tokens matched by a filler phrase,
// case-insensitive and phrase-aware (spec §4.E.4).
func fillerRatio(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	matched := 0
	for i := 0; i < len(words); {
		step := 1
		for _, phrase := range fillerPhrases {
			parts := strings.Fields(phrase)
			if i+len(parts) <= len(words) && strings.Join(words[i:i+len(parts)], " ") == phrase {
				matched += len(parts)
				step = len(parts)
				break
			}
		}
		i += step
	}
	return clamp01(float64(matched) / float64(len(words)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
