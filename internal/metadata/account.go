package metadata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hunterwarburton/tokenscope/internal/core"
)

// Metadata account layout, as far as this package reads it.
const (
	SymbolOffset = 96
	SymbolLength = 10
	URILength    = 200

	// MinAccountLength is the shortest buffer the view accepts.
	MinAccountLength = SymbolOffset + SymbolLength + URILength
)

// Account is a read-only view over raw metadata account bytes with named,
// offset-based accessors. Bytes before SymbolOffset are not interpreted.
type Account []byte

// Symbol returns the fixed-width symbol field with trailing NULs removed.
func (a Account) Symbol() (string, error) {
	if err := a.requireLength(MinAccountLength); err != nil {
		return "", err
	}
	return decodeField(a.symbolField()), nil
}

// URIOffset returns where the URI field starts.
//
// Known heuristic, not a layout guarantee: every NUL byte found inside the
// symbol field pushes the URI start one byte further. Existing on-chain data
// has been read this way, so the arithmetic (96 + 10 + NUL count) must stay
// exactly as is.
func (a Account) URIOffset() (int, error) {
	if err := a.requireLength(MinAccountLength); err != nil {
		return 0, err
	}
	return SymbolOffset + SymbolLength + bytes.Count(a.symbolField(), []byte{0}), nil
}

// URI returns the off-chain metadata URI, unsanitized, with trailing NULs removed.
func (a Account) URI() (string, error) {
	offset, err := a.URIOffset()
	if err != nil {
		return "", err
	}
	if err := a.requireLength(offset + URILength); err != nil {
		return "", err
	}
	return decodeField(a[offset : offset+URILength]), nil
}

// ParseURI extracts the off-chain metadata URI from raw account bytes.
func ParseURI(data []byte) (string, error) {
	return Account(data).URI()
}

func (a Account) symbolField() []byte {
	return a[SymbolOffset : SymbolOffset+SymbolLength]
}

func (a Account) requireLength(n int) error {
	if len(a) < n {
		return fmt.Errorf("%w: account data is %d bytes, need at least %d", core.ErrParse, len(a), n)
	}
	return nil
}

// decodeField decodes a fixed-width text field. Invalid UTF-8 is replaced, not
// rejected.
func decodeField(b []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(b), "\uFFFD"), "\x00")
}
