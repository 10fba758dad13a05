package reconcile

import "strings"

// Provenance captures what a time log's source field reveals about how
// the record came to exist.
type Provenance struct {
	HasCheckin         bool
	HasCheckout        bool
	HasManagerApproval bool
	HasKioskActivity   bool
}

// Classifier derives provenance signals from a time log's source string.
type Classifier interface {
	Classify(source string) Provenance
}

// TokenClassifier recognizes provenance by substring tokens. The token
// lists mirror the vocabulary the upstream tracking system emits in its
// source field. The approval status field is deliberately not consulted:
// an approved log with an empty source still carries no provenance.
type TokenClassifier struct {
	CheckinTokens  []string
	CheckoutTokens []string
	ManagerTokens  []string
	KioskTokens    []string
}

// NewTokenClassifier returns a classifier loaded with the default token
// vocabulary.
func NewTokenClassifier() *TokenClassifier {
	return &TokenClassifier{
		CheckinTokens:  []string{"checkin", "storecheckin"},
		CheckoutTokens: []string{"checkout", "storecheckout"},
		ManagerTokens:  []string{"/manager/hours/", "/admin/", "manager", "admin", "approved", "approve"},
		KioskTokens:    []string{"/kiosk/"},
	}
}

func (c *TokenClassifier) Classify(source string) Provenance {
	var p Provenance
	if source == "" {
		return p
	}
	source = strings.ToLower(source)
	p.HasCheckin = containsAny(source, c.CheckinTokens)
	p.HasCheckout = containsAny(source, c.CheckoutTokens)
	p.HasManagerApproval = containsAny(source, c.ManagerTokens)
	p.HasKioskActivity = containsAny(source, c.KioskTokens)
	return p
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}
