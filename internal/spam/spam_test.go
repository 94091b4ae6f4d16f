package spam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreen_Flags(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason Reason
	}{
		{name: "suspicious tld", text: "great deals at cards4u.xyz", reason: ReasonSuspiciousDomain},
		{name: "scam phrase", text: "Click here for a prize", reason: ReasonScamPhrase},
		{name: "gambling", text: "best online casino", reason: ReasonAdult},
		{name: "contact harvesting", text: "Contact me on WhatsApp", reason: ReasonContactHarvest},
		{name: "crypto", text: "time to buy bitcoin now", reason: ReasonCrypto},
		{name: "money scam", text: "Get rich quick with cards", reason: ReasonMoneyScam},
		{name: "repeated characters", text: "niceeeeee", reason: ReasonRepeatedChar},
		{name: "repeated exclamation", text: "wow!!!!!!", reason: ReasonRepeatedChar},
		{name: "shouting", text: "this is AMAZING stuff", reason: ReasonShouting},
		{name: "punctuation run", text: "what?!?!?", reason: ReasonPunctuation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Screen(tt.text)
			assert.True(t, res.Flagged)
			assert.Contains(t, res.Reasons, tt.reason)
			assert.True(t, IsFlagged(tt.text))
		})
	}
}

func TestScreen_Clean(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"Beautiful rookie card, love the centering.",
		"The NBA logo is crisp",   // short caps run
		"aaaaa is five, not six", // run of five
		"Wait... really?",
	} {
		assert.False(t, IsFlagged(text), text)
	}
}

func TestScreen_CapsUsesOriginalCase(t *testing.T) {
	assert.False(t, IsFlagged("unbelievable"))
	assert.True(t, IsFlagged("UNBELIEVABLE"))
}

func TestHasRepeatRun(t *testing.T) {
	assert.True(t, hasRepeatRun("aaaaaa", 6))
	assert.False(t, hasRepeatRun("aaaaa", 6))
	assert.True(t, hasRepeatRun("xyz ééééééé", 6))
	assert.False(t, hasRepeatRun("ababababab", 6))
}
