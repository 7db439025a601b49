package cards

import (
	"fmt"
	"strings"
	"time"

	"github.com/egtopup/card-relay/internal/domain"
)

// DefaultEmojis decorates the message header per provider. The set can
// be overridden from the settings table at startup.
var DefaultEmojis = map[domain.Provider]string{
	domain.ProviderVodafone: "🔴",
	domain.ProviderWE:       "🟣",
	domain.ProviderOrange:   "🟠",
}

// EmojiOverrides merges stored emoji overrides onto the defaults. The
// settings table keys providers in lowercase ("vodafone"), so keys are
// matched case-insensitively; unknown keys are ignored.
func EmojiOverrides(stored map[string]string) map[domain.Provider]string {
	emojis := make(map[domain.Provider]string, len(DefaultEmojis))
	for provider, emoji := range DefaultEmojis {
		emojis[provider] = emoji
	}

	for key, emoji := range stored {
		switch strings.ToLower(key) {
		case "vodafone":
			emojis[domain.ProviderVodafone] = emoji
		case "we":
			emojis[domain.ProviderWE] = emoji
		case "orange":
			emojis[domain.ProviderOrange] = emoji
		}
	}

	return emojis
}

// Formatter renders the outgoing destination-channel message.
type Formatter struct {
	emojis map[domain.Provider]string
}

func NewFormatter(emojis map[domain.Provider]string) *Formatter {
	if emojis == nil {
		emojis = DefaultEmojis
	}

	return &Formatter{emojis: emojis}
}

// Format renders the fixed message template. WE cards never show
// computed units; they always carry a fixed charge count instead.
func (f *Formatter) Format(provider domain.Provider, code, units string, now time.Time) string {
	emoji := f.emojis[provider]

	unitsLine := fmt.Sprintf("📶 Units: %s", units)
	if provider == domain.ProviderWE {
		unitsLine = "🔄 Charges: 5"
	}

	return fmt.Sprintf(
		"▂▂▂ %s %s Card %s ▂▂▂\n\n✅ Code: %s\n\n%s\n\n📅 Card Date: %s\n▂▂▂▂▂▂▂▂▂▂▂▂▂▂▂▂▂▂▂▂",
		emoji, provider, emoji, code, unitsLine, now.Format("2006-01-02"),
	)
}
