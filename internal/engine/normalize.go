package engine

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/ethereum/go-ethereum/common"
)

// Delta is the canonical form of one transfer-shaped event.
type Delta struct {
	From     string
	To       string
	TokenID  *big.Int
	Quantity *big.Int
	IsMint   bool
	IsBurn   bool
}

func (d Delta) IsSelfTransfer() bool {
	return d.From == d.To
}

// NormalizeAddress lowercases a hex address. Empty input maps to the zero address.
func NormalizeAddress(address string) (string, error) {
	if address == "" {
		return constants.NULL_ADDRESS, nil
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: invalid address %q", ErrMalformedEvent, address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

func isZeroAddress(address string) bool {
	return address == constants.NULL_ADDRESS
}

func isBurnAddress(address string) bool {
	return address == constants.NULL_ADDRESS || address == constants.DEAD_ADDRESS
}

// NormalizeTransfer builds a Delta from raw transfer fields. fungible selects
// whether quantity is taken from amount or fixed at one (ERC-721).
// A zero quantity yields ok=false: the transfer carries no balance change.
func NormalizeTransfer(from, to string, tokenID, amount *big.Int, fungible bool) (delta Delta, ok bool, err error) {
	if delta.From, err = NormalizeAddress(from); err != nil {
		return Delta{}, false, err
	}
	if delta.To, err = NormalizeAddress(to); err != nil {
		return Delta{}, false, err
	}

	if fungible {
		if amount == nil || amount.Sign() < 0 {
			return Delta{}, false, fmt.Errorf("%w: amount must be a non-negative integer", ErrMalformedEvent)
		}
		if amount.Sign() == 0 {
			return Delta{}, false, nil
		}
		delta.Quantity = new(big.Int).Set(amount)
	} else {
		delta.Quantity = big.NewInt(1)
	}
	if tokenID != nil {
		if tokenID.Sign() < 0 {
			return Delta{}, false, fmt.Errorf("%w: negative token id", ErrMalformedEvent)
		}
		delta.TokenID = new(big.Int).Set(tokenID)
	}

	delta.IsMint = isZeroAddress(delta.From)
	delta.IsBurn = isBurnAddress(delta.To)
	return delta, true, nil
}
