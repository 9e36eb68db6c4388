// Package homograph flags lookalike domains: IDN/Punycode use, mixed-script
// labels, confusable characters, and near-duplicates of trusted domains.
//
// None of these checks can fail; absence of signal is the normal negative
// result, so every operation is total and side-effect free.
package homograph

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Sarvagyapradhan/NeuraSec/neurasec"
)

// IsPunycode reports whether the domain contains the ACE prefix used by
// internationalized domain names.
func IsPunycode(domain string) bool {
	return strings.Contains(strings.ToLower(domain), "xn--")
}

// HasMixedScript reports whether the domain mixes ASCII Latin letters with
// characters from the Cyrillic block (U+0400..U+04FF). This is a heuristic
// for the most common homograph mix, not exhaustive script coverage.
func HasMixedScript(domain string) bool {
	var hasLatin, hasCyrillic bool
	for _, r := range domain {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLatin = true
		case r >= 0x0400 && r <= 0x04FF:
			hasCyrillic = true
		}
		if hasLatin && hasCyrillic {
			return true
		}
	}
	return false
}

// Similarity is a near-duplicate match against a trusted domain.
type Similarity struct {
	SimilarTo string
	Distance  int
}

func stripWWW(domain string) string {
	return strings.TrimPrefix(domain, "www.")
}

// FindSimilarTrusted searches trustedDomains for entries within a small edit
// distance of the candidate (confusables normalized, leading www. ignored).
// A trusted entry that the candidate already equals verbatim is its own
// listing, not an impersonation, and is skipped. Among qualifying entries the
// closest wins; ties go to the earliest entry in the list. Returns nil when
// nothing qualifies.
func FindSimilarTrusted(domain string, trustedDomains []string) *Similarity {
	candidate := stripWWW(strings.ToLower(domain))
	normalized := stripWWW(Normalize(strings.ToLower(domain)))

	var best *Similarity
	for _, trusted := range trustedDomains {
		entry := stripWWW(strings.ToLower(trusted))
		if entry == candidate {
			// Self-match: the raw domain is the trusted domain.
			continue
		}

		distance := levenshtein.ComputeDistance(normalized, entry)
		threshold := len(entry) / 5
		if threshold > 3 {
			threshold = 3
		}
		if distance > threshold {
			continue
		}
		if best == nil || distance < best.Distance {
			best = &Similarity{SimilarTo: trusted, Distance: distance}
		}
	}
	return best
}

// Detect runs every lexical check against the domain and accumulates one
// reason per positive signal.
func Detect(domain string, trustedDomains []string) neurasec.HomographFinding {
	var finding neurasec.HomographFinding

	if IsPunycode(domain) {
		finding.Reasons = append(finding.Reasons,
			"Domain uses Punycode encoding (xn--), which may hide visually similar characters")
	}

	if HasMixedScript(domain) {
		finding.Reasons = append(finding.Reasons,
			"Domain mixes characters from different writing systems (e.g., Latin + Cyrillic)")
	}

	if sim := FindSimilarTrusted(domain, trustedDomains); sim != nil {
		finding.Reasons = append(finding.Reasons,
			fmt.Sprintf("Domain is visually similar to trusted domain: %s (edit distance: %d)", sim.SimilarTo, sim.Distance))
		finding.SimilarTo = sim.SimilarTo
	}

	if Normalize(domain) != domain {
		finding.Reasons = append(finding.Reasons,
			"Domain contains characters that look similar to standard Latin characters")
	}

	finding.IsPotentialHomograph = len(finding.Reasons) > 0
	return finding
}
