// Package cards implements the card-extraction and units-resolution
// engine: per-line pattern matching, sharing-formula arithmetic, the
// surrounding-line units locator, and the outgoing message format.
package cards

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/egtopup/card-relay/internal/domain"
)

var (
	vodafonePattern = regexp.MustCompile(`(\*858\*(\d{13})#)`)
	wePattern       = regexp.MustCompile(`(\*015\*(\d{15})#)`)
	orangePattern   = regexp.MustCompile(`(\*10\*(\d{13})#)`)
	orangeHashCode  = regexp.MustCompile(`#10\*(\d+)#`)
	embeddedPattern = regexp.MustCompile(`#(\d+)\*858\*`)
	rawCardPattern  = regexp.MustCompile(`\b(\d{13,15})\b`)
	multiCardBlock  = regexp.MustCompile(`(\d{13,15})\s*\n\s*(\d{2,4})`)

	// Advert phrases that mark a message as channel-join spam, in
	// either language. Such messages never yield candidates.
	joinRequestPattern = regexp.MustCompile(`(?i)(طلب انضمام|اضغط للانضمام|join request|انضم للقناة|دوس طلب انضمام)`)
)

// NormalizeCode renders the canonical USSD string for a raw digit
// sequence. 13-digit codes dial the Vodafone prefix, 15-digit the WE
// prefix.
func NormalizeCode(provider domain.Provider, raw string) string {
	switch provider {
	case domain.ProviderWE:
		return fmt.Sprintf("*015*%s#", raw)
	case domain.ProviderOrange:
		return fmt.Sprintf("*10*%s#", raw)
	default:
		return fmt.Sprintf("*858*%s#", raw)
	}
}

// IsJoinRequest reports whether the text carries a join-request advert
// phrase.
func IsJoinRequest(text string) bool {
	return joinRequestPattern.MatchString(text)
}

// lineMatch is the tagged result of one matcher: ok=false means no
// match, otherwise provider plus the raw digit string.
type lineMatch struct {
	ok       bool
	provider domain.Provider
	raw      string
}

type lineMatcher func(line string) lineMatch

// matchers is the fixed priority chain applied per line. Only the
// first match per line is kept.
var matchers = []lineMatcher{
	matchUSSD(vodafonePattern, domain.ProviderVodafone),
	matchUSSD(wePattern, domain.ProviderWE),
	matchUSSD(orangePattern, domain.ProviderOrange),
	matchOrangeHash,
	matchEmbedded,
	matchRawDigits,
}

func matchUSSD(re *regexp.Regexp, provider domain.Provider) lineMatcher {
	return func(line string) lineMatch {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return lineMatch{}
		}

		return lineMatch{ok: true, provider: provider, raw: m[2]}
	}
}

func matchOrangeHash(line string) lineMatch {
	if !strings.Contains(line, "#10*") {
		return lineMatch{}
	}

	m := orangeHashCode.FindStringSubmatch(line)
	if m == nil {
		return lineMatch{}
	}

	return lineMatch{ok: true, provider: domain.ProviderOrange, raw: m[1]}
}

func matchEmbedded(line string) lineMatch {
	m := embeddedPattern.FindStringSubmatch(line)
	if m == nil {
		return lineMatch{}
	}

	return lineMatch{ok: true, provider: domain.ProviderVodafone, raw: m[1]}
}

// matchRawDigits infers the provider from digit count alone. Lengths
// other than 13 and 15 are not cards and are dropped without note.
func matchRawDigits(line string) lineMatch {
	m := rawCardPattern.FindStringSubmatch(line)
	if m == nil {
		return lineMatch{}
	}

	switch len(m[1]) {
	case 13:
		return lineMatch{ok: true, provider: domain.ProviderVodafone, raw: m[1]}
	case 15:
		return lineMatch{ok: true, provider: domain.ProviderWE, raw: m[1]}
	default:
		return lineMatch{}
	}
}

// Extract parses one message body into zero or more candidates.
//
// Order of evaluation: join-request gate, then the whole-body sharing
// formulas, then the per-line matcher chain with the units locator,
// and finally the two-line code/units fallback over the whole body.
func Extract(text, sourceChannel string) []domain.CardCandidate {
	text = norm.NFC.String(text)

	if IsJoinRequest(text) {
		return nil
	}

	if c, ok := resolveSharing(text, sourceChannel); ok {
		return []domain.CardCandidate{c}
	}

	lines := strings.Split(text, "\n")

	var candidates []domain.CardCandidate

	for i, line := range lines {
		for _, match := range matchers {
			m := match(line)
			if !m.ok {
				continue
			}

			units := LocateUnits(lines, i)
			if units == "" {
				units = domain.UnitsPending
			}

			candidates = append(candidates, domain.CardCandidate{
				Provider:       m.provider,
				RawCode:        m.raw,
				NormalizedCode: NormalizeCode(m.provider, m.raw),
				Units:          units,
				SourceChannel:  sourceChannel,
			})

			break
		}
	}

	if len(candidates) > 0 {
		return candidates
	}

	// Two-line fallback: a bare card number followed by a 2-4 digit
	// units value on the next line, always Vodafone.
	for _, m := range multiCardBlock.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, domain.CardCandidate{
			Provider:       domain.ProviderVodafone,
			RawCode:        m[1],
			NormalizedCode: NormalizeCode(domain.ProviderVodafone, m[1]),
			Units:          m[2],
			SourceChannel:  sourceChannel,
		})
	}

	return candidates
}
