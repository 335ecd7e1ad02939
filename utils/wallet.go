package utils

import (
	"errors"
	"strings"

	"goat-rush/models"

	"github.com/ethereum/go-ethereum/common"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	errEmptyWallet  = errors.New("empty wallet address")
	errEVMAddress   = errors.New("not a 20-byte hex address")
	errSolanaKey    = errors.New("not a base58 public key")
	errUnknownChain = errors.New("unsupported chain")
)

// NormalizeWallet validates address for chain and returns its canonical form:
// EVM addresses lowercased, Solana keys unchanged. An empty chain is inferred
// from the address shape.
func NormalizeWallet(address string, chain models.Chain) (string, models.Chain, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", chain, errEmptyWallet
	}
	if chain == "" {
		chain = models.ChainSolana
		if strings.HasPrefix(address, "0x") || strings.HasPrefix(address, "0X") {
			chain = models.ChainBase
		}
	}

	switch chain {
	case models.ChainBase:
		if !common.IsHexAddress(address) {
			return "", chain, errEVMAddress
		}
		return strings.ToLower(common.HexToAddress(address).Hex()), chain, nil
	case models.ChainSolana:
		if !isBase58Key(address) {
			return "", chain, errSolanaKey
		}
		return address, chain, nil
	default:
		return "", chain, errUnknownChain
	}
}

func isBase58Key(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
