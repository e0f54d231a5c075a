// Package normalizer canonicalizes free-text exercise names and measures how
// close two names are, for matching user input against the catalog without ids.
package normalizer

import (
	"sort"
	"strings"
)

// DefaultThreshold is the edit distance under which two names are treated as the same exercise.
const DefaultThreshold = 2

// abbreviations expand whole-token shorthand.
var abbreviations = map[string]string{
	"db":   "덤벨",
	"bb":   "바벨",
	"ez":   "이지바",
	"ohp":  "오버헤드프레스",
	"rdl":  "루마니안데드리프트",
	"sldl": "스티프레그데드리프트",
}

// spellingVariants maps transliteration and spacing variants to their canonical form.
// Canonical forms map to themselves so the replacer leaves them alone.
var spellingVariants = []struct{ variant, canonical string }{
	{"푸쉬", "푸시"},
	{"푸시", "푸시"},
	{"푸쉬업", "푸시업"},
	{"푸쉬 업", "푸시업"},
	{"푸시 업", "푸시업"},
	{"래터럴", "레터럴"},
	{"레터럴", "레터럴"},
	{"프래스", "프레스"},
	{"프레스", "프레스"},
	{"플레이", "플라이"},
	{"플라이", "플라이"},
	{"덤밸", "덤벨"},
	{"덤벨", "덤벨"},
	{"로오", "로우"},
	{"로우", "로우"},
	{"데드리프", "데드리프트"},
	{"데드리프트", "데드리프트"},
	{"풀 다운", "풀다운"},
	{"풀다운", "풀다운"},
	{"푸쉬다운", "푸시다운"},
	{"푸시 다운", "푸시다운"},
	{"푸시다운", "푸시다운"},
	{"벤치 프레스", "벤치프레스"},
	{"벤치프레스", "벤치프레스"},
	{"레그 프레스", "레그프레스"},
	{"레그프레스", "레그프레스"},
	{"숄더 프레스", "숄더프레스"},
	{"숄더프레스", "숄더프레스"},
	{"체스트 프레스", "체스트프레스"},
	{"체스트프레스", "체스트프레스"},
}

var (
	spellingReplacer = buildSpellingReplacer()
	separatorCleaner = strings.NewReplacer("_", " ", "-", " ")
)

// buildSpellingReplacer orders pairs longest-first: strings.Replacer picks the
// earliest argument that matches at a position, so longer keys must come first.
func buildSpellingReplacer() *strings.Replacer {
	pairs := make([]struct{ variant, canonical string }, len(spellingVariants))
	copy(pairs, spellingVariants)
	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].variant) > len(pairs[j].variant)
	})
	oldnew := make([]string, 0, 2*len(pairs))
	for _, p := range pairs {
		oldnew = append(oldnew, p.variant, p.canonical)
	}
	return strings.NewReplacer(oldnew...)
}

// Normalize returns the canonical form of an exercise name. It is idempotent.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = collapseSpaces(separatorCleaner.Replace(s))

	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	s = strings.Join(tokens, " ")

	// A replacement can expose another variant ("벤치 프래스" -> "벤치 프레스" -> "벤치프레스").
	for i := 0; i < 4; i++ {
		next := spellingReplacer.Replace(s)
		if next == s {
			break
		}
		s = next
	}
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AreSimilar reports whether the normalized names are equal or within threshold edits.
func AreSimilar(a, b string, threshold int) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return true
	}
	return Levenshtein(na, nb) <= threshold
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Match is the result of FindBestMatch.
type Match struct {
	Candidate string
	Distance  int
}

// FindBestMatch scans candidates for the one closest to target after normalization.
// An exact normalized match returns immediately with distance 0.
// ok is false only when candidates is empty.
func FindBestMatch(target string, candidates []string) (Match, bool) {
	nt := Normalize(target)
	best := Match{Distance: -1}
	for _, c := range candidates {
		nc := Normalize(c)
		if nc == nt {
			return Match{Candidate: c, Distance: 0}, true
		}
		d := Levenshtein(nt, nc)
		if best.Distance < 0 || d < best.Distance {
			best = Match{Candidate: c, Distance: d}
		}
	}
	if best.Distance < 0 {
		return Match{}, false
	}
	return best, true
}

// GenerateVariations lists spellings under which name might be stored:
// the input, its canonical form, separator variants, and known variants of the canonical form.
func GenerateVariations(name string) []string {
	normalized := Normalize(name)
	out := make([]string, 0, 8)
	seen := make(map[string]struct{}, 8)
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	add(name)
	add(normalized)
	add(strings.ReplaceAll(normalized, " ", ""))
	add(strings.ReplaceAll(normalized, " ", "-"))
	add(strings.ReplaceAll(normalized, " ", "_"))
	for _, p := range spellingVariants {
		if p.canonical == normalized && p.variant != p.canonical {
			add(p.variant)
			add(strings.ReplaceAll(p.variant, " ", ""))
		}
	}
	return out
}
