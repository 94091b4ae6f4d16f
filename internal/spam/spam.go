// Package spam screens free text (comments, messages) against a fixed set of
// spam patterns. It is a first line of defense: false positives and
// negatives are expected.
package spam

import (
	"regexp"
	"strings"
)

// Reason names the pattern class that matched.
type Reason string

const (
	ReasonSuspiciousDomain Reason = "suspicious_domain"
	ReasonScamPhrase       Reason = "scam_phrase"
	ReasonAdult            Reason = "adult_or_gambling"
	ReasonContactHarvest   Reason = "off_platform_contact"
	ReasonCrypto           Reason = "crypto"
	ReasonMoneyScam        Reason = "money_scam"
	ReasonRepeatedChar     Reason = "repeated_character"
	ReasonShouting         Reason = "all_caps"
	ReasonPunctuation      Reason = "excessive_punctuation"
)

// Result is the outcome of screening one text.
type Result struct {
	Flagged bool
	Reasons []Reason
}

type rule struct {
	reason Reason
	re     *regexp.Regexp
	// caseSensitive rules run on the original text; the rest on its lowercase form.
	caseSensitive bool
}

var rules = []rule{
	{reason: ReasonSuspiciousDomain, re: regexp.MustCompile(`\b\w+\.(xyz|tk|ml|ga|cf|gq)\b`)},
	{reason: ReasonScamPhrase, re: regexp.MustCompile(`\b(click here|limited time offer|act now|guaranteed|congratulations you've won)\b`)},
	{reason: ReasonAdult, re: regexp.MustCompile(`\b(xxx|porn|casino|gambl(e|ing)|wager)\b`)},
	{reason: ReasonContactHarvest, re: regexp.MustCompile(`\b(contact me on whatsapp|reach me on telegram|call me now)\b`)},
	{reason: ReasonCrypto, re: regexp.MustCompile(`\b(buy bitcoin now|crypto opportunity|nft investment|wallet synchronization)\b`)},
	{reason: ReasonMoneyScam, re: regexp.MustCompile(`\b(get rich quick|money fast|earn from home easily|investment opportunity|passive income guaranteed|financial freedom now)\b`)},
	{reason: ReasonShouting, re: regexp.MustCompile(`\b[A-Z]{7,}\b`), caseSensitive: true},
	{reason: ReasonPunctuation, re: regexp.MustCompile(`[!?.]{5,}`)},
}

// MinRepeatRun is the shortest run of one identical character that flags.
const MinRepeatRun = 6

// Screen runs every pattern class against text.
func Screen(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	lower := strings.ToLower(text)
	var res Result
	for _, r := range rules {
		subject := lower
		if r.caseSensitive {
			subject = text
		}
		if r.re.MatchString(subject) {
			res.Reasons = append(res.Reasons, r.reason)
		}
	}
	if hasRepeatRun(text, MinRepeatRun) {
		res.Reasons = append(res.Reasons, ReasonRepeatedChar)
	}

	res.Flagged = len(res.Reasons) > 0
	return res
}

// IsFlagged reports whether any pattern class matches text.
func IsFlagged(text string) bool {
	return Screen(text).Flagged
}

// hasRepeatRun reports whether text holds n or more consecutive identical runes.
// RE2 has no backreferences, so this one is hand-coded.
func hasRepeatRun(text string, n int) bool {
	var (
		prev rune
		run  int
	)
	for i, r := range text {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
