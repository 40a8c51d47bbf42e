// Package extractor pulls payment and contact artifacts out of free text.
// Every function here is pure: no I/O, no shared state, never fails.
package extractor

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
)

// CountryCode is prefixed to bare mobile numbers.
const CountryCode = "+91"

var (
	accountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{9,18}\b`),
		regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4,6}\b`),
		regexp.MustCompile(`[A-Z]{4}0[A-Z0-9]{6}`),
	}

	handlePattern = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+91[-\s]?\d{10}`),
		regexp.MustCompile(`\b[6-9]\d{9}\b`),
	}

	urlPattern       = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)
	shortLinkPattern = regexp.MustCompile(`\b(?:bit\.ly|tinyurl\.com|goo\.gl|t\.co)/[A-Za-z0-9]+`)

	separators = strings.NewReplacer("-", "", " ", "", "\t", "", "\n", "")
)

// PaymentProviders is the allow-list of handle domains treated as payment IDs.
var PaymentProviders = []string{
	"paytm", "phonepe", "googlepay", "gpay", "ybl", "axl",
	"okhdfcbank", "oksbi", "okicici", "ibl", "upi",
}

// Findings is the result of one extraction pass. Lists are deduplicated and
// in first-seen order.
type Findings struct {
	Accounts []string
	Handles  []string
	Phones   []string
	URLs     []string
}

// Total is the number of artifacts found.
func (f Findings) Total() int {
	return len(f.Accounts) + len(f.Handles) + len(f.Phones) + len(f.URLs)
}

// Extract runs all four matchers over text.
func Extract(text string) Findings {
	return Findings{
		Accounts: Accounts(text),
		Handles:  Handles(text),
		Phones:   Phones(text),
		URLs:     URLs(text),
	}
}

// MergeInto adds the findings to intel, skipping anything already stored,
// and returns the number of new items per category.
func (f Findings) MergeInto(intel *conversation.Intelligence) map[string]int {
	return map[string]int{
		conversation.CategoryBankAccounts: intel.AddBankAccounts(f.Accounts...),
		conversation.CategoryUPIIDs:       intel.AddUPIIDs(f.Handles...),
		conversation.CategoryPhones:       intel.AddPhones(f.Phones...),
		conversation.CategoryLinks:        intel.AddLinks(f.URLs...),
	}
}

// Accounts finds account numbers, grouped digit runs and branch codes, and
// returns them masked.
func Accounts(text string) []string {
	var out []string
	for _, re := range accountPatterns {
		for _, match := range re.FindAllString(text, -1) {
			cleaned := separators.Replace(match)
			if len(cleaned) < 9 {
				continue
			}
			out = appendNew(out, Mask(cleaned))
		}
	}
	return out
}

// Mask keeps the first and last four characters and replaces the rest with X.
// Values of eight characters or fewer are returned unchanged.
func Mask(s string) string {
	if len(s) <= 8 {
		return s
	}
	return s[:4] + strings.Repeat("X", len(s)-8) + s[len(s)-4:]
}

// Handles finds local@domain tokens whose domain names a payment provider.
func Handles(text string) []string {
	var out []string
	for _, match := range handlePattern.FindAllString(text, -1) {
		at := strings.LastIndex(match, "@")
		if at <= 0 || at == len(match)-1 {
			continue
		}
		if !isPaymentDomain(match[at+1:]) {
			continue
		}
		out = appendNew(out, match)
	}
	return out
}

func isPaymentDomain(domain string) bool {
	domain = strings.ToLower(domain)
	for _, p := range PaymentProviders {
		if strings.Contains(domain, p) {
			return true
		}
	}
	return false
}

// Phones finds country-code-prefixed and bare mobile numbers, normalized to +91XXXXXXXXXX.
func Phones(text string) []string {
	var out []string
	for _, re := range phonePatterns {
		for _, match := range re.FindAllString(text, -1) {
			cleaned := separators.Replace(match)
			if len(cleaned) == 10 {
				cleaned = CountryCode + cleaned
			}
			out = appendNew(out, cleaned)
		}
	}
	return out
}

// URLs finds scheme-qualified links and bare shortener links. Bare links are
// normalized with an http:// scheme.
func URLs(text string) []string {
	var out []string
	for _, match := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(match, ".,;:!?)]}'\"")
		if len(u) > len("https://") {
			out = appendNew(out, u)
		}
	}
	for _, loc := range shortLinkPattern.FindAllStringIndex(text, -1) {
		if loc[0] >= 3 && text[loc[0]-3:loc[0]] == "://" {
			continue
		}
		out = appendNew(out, "http://"+text[loc[0]:loc[1]])
	}
	return out
}

func appendNew(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
