package cards

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egtopup/card-relay/internal/domain"
)

func TestOrangeSharingFormula(t *testing.T) {
	// 500 MB split across 5 friends is 100 per recipient.
	text := "ابعت 500 ميجا ل5 من اصحابك\n#10*5551234567890#"

	got := Extract(text, "testchannel")
	require.Len(t, got, 1)
	assert.Equal(t, domain.ProviderOrange, got[0].Provider)
	assert.Equal(t, "5551234567890", got[0].RawCode)
	assert.Equal(t, "100", got[0].Units)
}

func TestVodafoneSharingFormula(t *testing.T) {
	// 2x for you means 100 units, 10x sent to 5 friends:
	// base unit 50, (10/5)*50 = 100 per friend.
	text := "2 ليك يعني 100 وحدة 10 ضعف تبعتهم ل5 اصحاب\n#1234567890123*858*"

	got := Extract(text, "testchannel")
	require.Len(t, got, 1)
	assert.Equal(t, domain.ProviderVodafone, got[0].Provider)
	assert.Equal(t, "1234567890123", got[0].RawCode)
	assert.Equal(t, "100", got[0].Units)
}

func TestVodafoneDirectFormula(t *testing.T) {
	// 600 on the card face scales to 60 units.
	text := "معاك 600 وحدة من كارت فودافون\n#1234567890123*858*"

	got := Extract(text, "testchannel")
	require.Len(t, got, 1)
	assert.Equal(t, domain.ProviderVodafone, got[0].Provider)
	assert.Equal(t, "60", got[0].Units)
}

func TestSharingWithoutCodeFallsThrough(t *testing.T) {
	// A formula with no companion code must not short-circuit: the line
	// chain still gets to see the rest of the message.
	text := "ابعت 500 ميجا ل5 من اصحابك\n*858*1234567890123#"

	got := Extract(text, "testchannel")
	require.Len(t, got, 1)
	assert.Equal(t, domain.ProviderVodafone, got[0].Provider)
	assert.Equal(t, "*858*1234567890123#", got[0].NormalizedCode)
}

func TestSharingZeroFriendsIgnored(t *testing.T) {
	text := "ابعت 500 ميجا ل0\n#10*5551234567890#"

	got := Extract(text, "testchannel")
	require.Len(t, got, 1)
	// Division guard drops the formula, the hash code still matches.
	assert.Equal(t, domain.ProviderOrange, got[0].Provider)
}
