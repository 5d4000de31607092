package core

// TokenRecord is the assembled, human-readable description of a token.
// Every field is optional: the off-chain document is untrusted and may omit
// any of them. Absent fields are left out of the JSON encoding.
type TokenRecord struct {
	Name        *string `json:"name,omitempty"`
	Symbol      *string `json:"symbol,omitempty"`
	Description *string `json:"description,omitempty"`
	Website     *string `json:"website,omitempty"`
	// DNSEntries is nil when no lookup ran and empty when the domain has no records.
	DNSEntries []string `json:"dns_entries,omitzero"`
	Telegram   *string  `json:"telegram,omitempty"`
	Twitter    *string  `json:"twitter,omitempty"`
	Facebook   *string  `json:"facebook,omitempty"`
	Instagram  *string  `json:"instagram,omitempty"`
	// Supply is a decimal string of arbitrary magnitude.
	Supply *string `json:"supply,omitempty"`
}

// SupplyInfo is the token supply as reported by the chain.
type SupplyInfo struct {
	// Amount is the raw supply in base units, as a decimal string.
	Amount string
	// Decimals is the mint's decimal precision.
	Decimals uint8
	// UIAmount is Amount shifted by Decimals, as a decimal string.
	UIAmount string
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Value dereferences an optional string field, returning "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
