package cards

import (
	"regexp"
	"strconv"

	"github.com/egtopup/card-relay/internal/domain"
)

// Sharing formulas describe "split a bundle among N friends" posts.
// They are matched against the whole message body before the per-line
// chain runs, and compute the per-recipient units arithmetically.
var (
	orangeSharingPattern   = regexp.MustCompile(`ابعت\s+(\d+)\s+ميجا\s+ل(\d+)`)
	vodafoneSharingPattern = regexp.MustCompile(`(\d+)\s+ليك\s+يعني\s+(\d+)\s+وحدة\s+(\d+)\s+ضعف\s+تبعتهم\s+ل(\d+)`)
	vodafoneDirectPattern  = regexp.MustCompile(`معاك\s+(\d+)\s+وحدة\s+من\s+كارت\s+فودافون`)
)

// resolveSharing tries the three sharing phrasings in order. A formula
// short-circuits the rest of extraction only when its companion code
// pattern is also present; otherwise the line chain still runs.
func resolveSharing(text, sourceChannel string) (domain.CardCandidate, bool) {
	if m := orangeSharingPattern.FindStringSubmatch(text); m != nil {
		total := atoi(m[1])
		friends := atoi(m[2])

		if friends > 0 {
			if code := orangeHashCode.FindStringSubmatch(text); code != nil {
				return sharingCandidate(domain.ProviderOrange, code[1], total/friends, sourceChannel), true
			}
		}
	}

	if m := vodafoneSharingPattern.FindStringSubmatch(text); m != nil {
		userMultiplier := atoi(m[1])
		userUnits := atoi(m[2])
		friendsMultiplier := atoi(m[3])
		friends := atoi(m[4])

		if userMultiplier > 0 && friends > 0 {
			baseUnit := userUnits / userMultiplier
			perFriend := (friendsMultiplier / friends) * baseUnit

			if code := embeddedPattern.FindStringSubmatch(text); code != nil {
				return sharingCandidate(domain.ProviderVodafone, code[1], perFriend, sourceChannel), true
			}
		}
	}

	if m := vodafoneDirectPattern.FindStringSubmatch(text); m != nil {
		raw := atoi(m[1])
		units := raw * 5 / 50

		if code := embeddedPattern.FindStringSubmatch(text); code != nil {
			return sharingCandidate(domain.ProviderVodafone, code[1], units, sourceChannel), true
		}
	}

	return domain.CardCandidate{}, false
}

func sharingCandidate(provider domain.Provider, raw string, units int, sourceChannel string) domain.CardCandidate {
	return domain.CardCandidate{
		Provider:       provider,
		RawCode:        raw,
		NormalizedCode: NormalizeCode(provider, raw),
		Units:          strconv.Itoa(units),
		SourceChannel:  sourceChannel,
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
