package conversation

// Intelligence holds the five accumulators. Each list keeps first-seen order
// and never holds the same value twice.
type Intelligence struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Category names used in logs, metrics and prompts.
const (
	CategoryBankAccounts = "bank_accounts"
	CategoryUPIIDs       = "upi_ids"
	CategoryLinks        = "phishing_links"
	CategoryPhones       = "phone_numbers"
	CategoryKeywords     = "suspicious_keywords"
)

// appendUnique adds items not already present and returns the grown list and
// the number of items actually added.
func appendUnique(dst []string, items ...string) ([]string, int) {
	seen := make(map[string]struct{}, len(dst)+len(items))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	added := 0
	for _, v := range items {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
		added++
	}
	return dst, added
}

func (i *Intelligence) AddBankAccounts(v ...string) int {
	var n int
	i.BankAccounts, n = appendUnique(i.BankAccounts, v...)
	return n
}

func (i *Intelligence) AddUPIIDs(v ...string) int {
	var n int
	i.UPIIDs, n = appendUnique(i.UPIIDs, v...)
	return n
}

func (i *Intelligence) AddLinks(v ...string) int {
	var n int
	i.PhishingLinks, n = appendUnique(i.PhishingLinks, v...)
	return n
}

func (i *Intelligence) AddPhones(v ...string) int {
	var n int
	i.PhoneNumbers, n = appendUnique(i.PhoneNumbers, v...)
	return n
}

func (i *Intelligence) AddKeywords(v ...string) int {
	var n int
	i.SuspiciousKeywords, n = appendUnique(i.SuspiciousKeywords, v...)
	return n
}

// Count is the number of concrete contact/payment artifacts gathered.
// Keywords are excluded; they are signals, not artifacts.
func (i Intelligence) Count() int {
	return len(i.BankAccounts) + len(i.UPIIDs) + len(i.PhishingLinks) + len(i.PhoneNumbers)
}

// Missing lists the artifact categories that are still empty, in prompt wording.
func (i Intelligence) Missing() []string {
	var out []string
	if len(i.BankAccounts) == 0 {
		out = append(out, "bank account details")
	}
	if len(i.UPIIDs) == 0 {
		out = append(out, "UPI IDs")
	}
	if len(i.PhoneNumbers) == 0 {
		out = append(out, "phone numbers")
	}
	if len(i.PhishingLinks) == 0 {
		out = append(out, "payment links")
	}
	return out
}

// Clone returns a copy that shares no backing arrays with i.
func (i Intelligence) Clone() Intelligence {
	return Intelligence{
		BankAccounts:       cloneList(i.BankAccounts),
		UPIIDs:             cloneList(i.UPIIDs),
		PhishingLinks:      cloneList(i.PhishingLinks),
		PhoneNumbers:       cloneList(i.PhoneNumbers),
		SuspiciousKeywords: cloneList(i.SuspiciousKeywords),
	}
}

func cloneList(v []string) []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}
