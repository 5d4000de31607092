package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

// borshString writes a u32 length prefix followed by s padded with NULs to width.
func borshString(s string, width int) []byte {
	out := make([]byte, 4+width)
	binary.LittleEndian.PutUint32(out, uint32(width))
	copy(out[4:], s)
	return out
}

func buildBorshMetadata(name, symbol, uri string) []byte {
	var data []byte
	data = append(data, 4) // MetadataV1 key
	data = append(data, solana.SystemProgramID.Bytes()...)
	data = append(data, solana.MustPublicKeyFromBase58(wrappedSOLMint).Bytes()...)
	data = append(data, borshString(name, 32)...)
	data = append(data, borshString(symbol, 10)...)
	data = append(data, borshString(uri, 200)...)
	data = append(data, 0, 0) // seller fee basis points
	data = append(data, 0)    // creators: None
	data = append(data, 0, 1) // primary sale happened, is mutable
	// Remaining optional fields are all None; real accounts are zero padded too.
	data = append(data, make([]byte, 64)...)
	return data
}

func TestDecodeOnChain(t *testing.T) {
	data := buildBorshMetadata("Wrapped SOL", "SOL", "https://example.com/meta.json")

	decoded, err := DecodeOnChain(data)
	require.NoError(t, err)
	assert.Equal(t, "Wrapped SOL", decoded.Name)
	assert.Equal(t, "SOL", decoded.Symbol)
	assert.Equal(t, "https://example.com/meta.json", decoded.URI)
}

func TestDecodeOnChain_Truncated(t *testing.T) {
	_, err := DecodeOnChain([]byte{4, 1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrParse)
}
