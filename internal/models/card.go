package models

import "strings"

type Franchise string
type AcquiringNetwork string

const (
	FranchiseVisa         Franchise = "VISA"
	FranchiseMasterCard   Franchise = "MASTER_CARD"
	FranchiseUnrecognized Franchise = "UNRECOGNIZED"
)

const (
	NetworkNone AcquiringNetwork = "NONE"
	NetworkCKO  AcquiringNetwork = "CKO"
	NetworkCBK  AcquiringNetwork = "CBK"
)

const (
	// DefaultBINLength is the number of leading digits left visible by MaskPAN.
	DefaultBINLength = 6
	// AccountRangeLength is the number of leading digits used for card metadata lookups.
	AccountRangeLength = 10

	lastVisibleDigits = 4
	maskChar          = "*"
)

// PANInfo is the issuing metadata resolved for a card's account range.
type PANInfo struct {
	Country   string    `json:"country"`
	Category  string    `json:"category"`
	Franchise Franchise `json:"franchise"`
	Issuer    string    `json:"issuer"`
}

// UnknownPANInfo is returned when no account range matches a PAN.
func UnknownPANInfo() PANInfo {
	return PANInfo{
		Country:   "ZZ",
		Category:  "UNKNOWN",
		Franchise: FranchiseUnrecognized,
		Issuer:    "UNKNOWN",
	}
}

// IsUnknown reports whether p is the unknown sentinel.
func (p PANInfo) IsUnknown() bool {
	return p == UnknownPANInfo()
}

// PCIComplianceCard is the card snapshot persisted with a transaction.
// It never carries the full PAN or the CVV.
type PCIComplianceCard struct {
	CardholderName  string    `json:"cardholderName"`
	Franchise       Franchise `json:"franchise"`
	Category        string    `json:"category"`
	Country         string    `json:"country"`
	MaskedPAN       string    `json:"maskedPan"`
	ExpirationMonth int       `json:"expirationMonth"`
	ExpirationYear  int       `json:"expirationYear"`
}

// MaskPAN keeps the first six and last four digits of pan visible.
func MaskPAN(pan string) string {
	return MaskPANWithBIN(pan, DefaultBINLength)
}

// MaskPANWithBIN keeps the first binLen and last four digits visible and
// replaces everything in between. PANs too short to keep both ends visible
// are masked entirely.
func MaskPANWithBIN(pan string, binLen int) string {
	if binLen < 0 || len(pan) < binLen+lastVisibleDigits {
		return strings.Repeat(maskChar, len(pan))
	}
	hidden := len(pan) - binLen - lastVisibleDigits
	return pan[:binLen] + strings.Repeat(maskChar, hidden) + pan[len(pan)-lastVisibleDigits:]
}

// AccountRange returns the leading digits used for card metadata lookup,
// or "" if pan is shorter than the range.
func AccountRange(pan string) string {
	if len(pan) < AccountRangeLength {
		return ""
	}
	return pan[:AccountRangeLength]
}

// IsValidPAN reports whether pan is 15 to 19 decimal digits.
func IsValidPAN(pan string) bool {
	if len(pan) < 15 || len(pan) > 19 {
		return false
	}
	for _, r := range pan {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
