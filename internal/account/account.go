// Package account derives the deploying identity from its private key.
package account

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a private key and the address derived from it.
// It is read-only after construction and safe to share between chains.
type Account struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// FromPrivateKey parses a hex private key, with or without 0x or 0X prefix.
func FromPrivateKey(privateKeyHex string) (*Account, error) {
	privateKey, err := crypto.HexToECDSA(TrimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}

	return &Account{
		key:     privateKey,
		address: crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// AddressFromPrivateKey derives the checksummed address for a hex private key.
func AddressFromPrivateKey(privateKeyHex string) (string, error) {
	acc, err := FromPrivateKey(privateKeyHex)
	if err != nil {
		return "", err
	}
	return acc.Address().Hex(), nil
}

// TrimHexPrefix strips surrounding space and a leading 0x or 0X.
func TrimHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func (a *Account) Address() common.Address {
	return a.address
}

func (a *Account) PrivateKey() *ecdsa.PrivateKey {
	return a.key
}

// String never exposes the key.
func (a *Account) String() string {
	return a.address.Hex()
}
