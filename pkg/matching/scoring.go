package matching

import (
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	winklerPrefixCap = 4
	winklerScale     = 0.1
	minTokenLength   = 2
)

// Normalize lowercases s, turns punctuation and symbols into spaces and collapses whitespace
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// NameSimilarity compares two display names. Returns 0 when either side is empty
// after normalization, 1 when both normalize to the same string, and the
// Jaro-Winkler similarity otherwise.
func NameSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return JaroWinkler(na, nb)
}

// JaroWinkler calculates the Jaro-Winkler similarity between two strings
func JaroWinkler(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	jaro := jaroRunes(ra, rb)

	prefix := 0
	for i := 0; i < len(ra) && i < len(rb) && i < winklerPrefixCap; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}

	return clamp01(jaro + float64(prefix)*winklerScale*(1-jaro))
}

// Jaro calculates the Jaro similarity between two strings
func Jaro(a, b string) float64 {
	return jaroRunes([]rune(a), []rune(b))
}

func jaroRunes(a, b []rune) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if string(a) == string(b) {
		return 1
	}

	matchDist := max(len(a), len(b))/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := range a {
		start := max(0, i-matchDist)
		end := min(len(b), i+matchDist+1)

		for j := start; j < end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}

// TemporalScore decays linearly from 1 at the event end to 0 at windowHours away
func TemporalScore(candidateTime, eventEnd time.Time, windowHours float64) float64 {
	if windowHours <= 0 {
		return 0
	}
	diff := hoursBetween(candidateTime, eventEnd)
	if diff > windowHours {
		return 0
	}
	return 1 - math.Min(diff/windowHours, 1)
}

// ParticipantBonus awards bonus once when the first token of any participant's
// local part appears in the event title or the candidate name
func ParticipantBonus(title, name string, participants []string, bonus float64) float64 {
	haystack := strings.ToLower(title + " " + name)
	for _, participant := range participants {
		token := participantToken(participant)
		if len(token) < minTokenLength {
			continue
		}
		if strings.Contains(haystack, token) {
			return bonus
		}
	}
	return 0
}

// participantToken returns the lowercased first token of the part before '@'
func participantToken(participant string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(participant), "@")
	fields := strings.FieldsFunc(strings.ToLower(local), func(r rune) bool {
		switch r {
		case '.', '_', '-', '+':
			return true
		}
		return unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SameCalendarDay reports whether t falls on ref's calendar day, in ref's location
func SameCalendarDay(t, ref time.Time) bool {
	t = t.In(ref.Location())
	ty, tm, td := t.Date()
	ry, rm, rd := ref.Date()
	return ty == ry && tm == rm && td == rd
}

func hoursBetween(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours())
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
