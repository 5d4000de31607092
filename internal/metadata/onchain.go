package metadata

import (
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	tokenmetadata "github.com/gagliardetto/metaplex-go/clients/token-metadata"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

// OnChainData is the descriptive part of a borsh-decoded metadata account.
type OnChainData struct {
	Name   string
	Symbol string
	URI    string
}

// DecodeOnChain decodes the full Metaplex metadata account with the borsh
// layout. Unlike Account it follows the length prefixes, so it fails on
// buffers the fixed-offset view still accepts.
func DecodeOnChain(data []byte) (*OnChainData, error) {
	var onChainMeta tokenmetadata.Metadata
	decoder := bin.NewBorshDecoder(data)
	if err := decoder.Decode(&onChainMeta); err != nil {
		return nil, fmt.Errorf("%w: failed to deserialize on-chain Metaplex metadata: %v", core.ErrParse, err)
	}

	// Trim null characters, they are often padded in on-chain data
	return &OnChainData{
		Name:   strings.TrimRight(onChainMeta.Data.Name, "\x00"),
		Symbol: strings.TrimRight(onChainMeta.Data.Symbol, "\x00"),
		URI:    strings.TrimRight(onChainMeta.Data.Uri, "\x00"),
	}, nil
}
