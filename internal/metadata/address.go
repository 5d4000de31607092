// Package metadata holds the pure, I/O-free pieces of token resolution: the
// Metaplex metadata address derivation, the fixed-offset view over the metadata
// account bytes, and the string sanitizers applied before data is trusted.
package metadata

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

// TokenMetadataProgramID is the program ID for the Metaplex Token Metadata program.
const TokenMetadataProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// metadataSeed is the literal seed tag of every Metaplex metadata PDA.
const metadataSeed = "metadata"

var metaplexProgramID = solana.MustPublicKeyFromBase58(TokenMetadataProgramID)

// ProgramID returns the Metaplex Token Metadata program key.
func ProgramID() solana.PublicKey {
	return metaplexProgramID
}

// ParseMint decodes a base-58 mint address. Anything that does not decode to
// exactly 32 bytes is rejected with core.ErrInvalidTokenAddress.
func ParseMint(address string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w - %s", core.ErrInvalidTokenAddress, address)
	}
	return pk, nil
}

// DeriveMetadataAddress derives the metadata account address for a base-58 mint.
func DeriveMetadataAddress(mint string) (solana.PublicKey, error) {
	mintPk, err := ParseMint(mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return DeriveMetadataPDA(mintPk)
}

// DeriveMetadataPDA derives the Metaplex Token Metadata PDA for a given mint.
func DeriveMetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	pda, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(metadataSeed),
			metaplexProgramID.Bytes(),
			mint.Bytes(),
		},
		metaplexProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to find Metaplex metadata PDA: %w", err)
	}
	return pda, nil
}

// NormalizeAddress returns input unchanged when it is valid base-58 text and
// otherwise the base-58 encoding of its bytes. The result still has to pass
// ParseMint; this only decides which string the error message will name.
func NormalizeAddress(input string) string {
	if _, err := base58.Decode(input); err == nil {
		return input
	}
	return base58.Encode([]byte(input))
}
