package core

import "errors"

// Resolution errors. Callers wrap them with detail using %w and classify
// them with errors.Is.
var (
	// ErrInvalidTokenAddress is returned when the input does not decode to a
	// 32-byte base-58 address.
	ErrInvalidTokenAddress = errors.New("invalid token address")

	// ErrInvalidDomain is returned when the off-chain document declares a
	// website whose host fails domain validation.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrParse is returned when the metadata account bytes are too short for
	// the fixed layout.
	ErrParse = errors.New("metadata parse error")

	// ErrChain is returned for RPC transport failures and missing accounts.
	ErrChain = errors.New("solana client error")

	// ErrFetch is returned when the off-chain document cannot be retrieved.
	ErrFetch = errors.New("request error")

	// ErrDeserialization is returned when the off-chain document is not a
	// JSON object.
	ErrDeserialization = errors.New("deserialization error")

	// ErrDNS is returned when the DNS resolver cannot be initialized.
	// Lookups that find nothing are not errors.
	ErrDNS = errors.New("dns error")
)
