package core

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// ChainReader reads raw account data and mint supply from the chain.
type ChainReader interface {
	// FetchAccount returns the raw data of the account at address.
	FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
	// FetchSupply returns the supply of the given mint.
	FetchSupply(ctx context.Context, mint solana.PublicKey) (SupplyInfo, error)
}

// DocumentFetcher retrieves an off-chain metadata document and maps it onto
// the off-chain-describable fields of a TokenRecord.
type DocumentFetcher interface {
	Fetch(ctx context.Context, uri string) (*TokenRecord, error)
}

// DNSEnricher describes the DNS presence of a domain as one string per record.
type DNSEnricher interface {
	Entries(ctx context.Context, domain string) ([]string, error)
}
