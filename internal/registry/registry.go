package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/6529-Collections/6529stats/pkg/constants"
	"github.com/ethereum/go-ethereum/common"
)

type AssetKind string

const (
	KindERC721  AssetKind = "erc721"
	KindERC1155 AssetKind = "erc1155"
	KindERC20   AssetKind = "erc20"
	KindVault   AssetKind = "vault"
	KindStaking AssetKind = "staking"
	KindLending AssetKind = "lending"
	KindTrade   AssetKind = "trade"
)

func (k AssetKind) Valid() bool {
	switch k {
	case KindERC721, KindERC1155, KindERC20, KindVault, KindStaking, KindLending, KindTrade:
		return true
	}
	return false
}

// Fungible reports whether quantities of this kind are token amounts rather than item counts.
func (k AssetKind) Fungible() bool {
	return k == KindERC20 || k == KindVault || k == KindStaking || k == KindLending
}

// Asset is the logical entity a contract address resolves to. Several
// addresses, on one or more chains, may resolve to the same Key.
type Asset struct {
	Key         string    `yaml:"key"`
	Kind        AssetKind `yaml:"kind"`
	Generation  int       `yaml:"generation"`
	HomeChainID uint64    `yaml:"home_chain_id"`
	TrackBurns  bool      `yaml:"track_burns"`
}

// IsHomeChain is true when there is no known home chain or chainID is it.
func (a Asset) IsHomeChain(chainID uint64) bool {
	return a.HomeChainID == 0 || a.HomeChainID == chainID
}

type chainAddress struct {
	chainID uint64
	address string
}

type Registry struct {
	mu          sync.RWMutex
	assets      map[chainAddress]Asset
	burnSources map[chainAddress]string
}

func New() *Registry {
	return &Registry{
		assets:      map[chainAddress]Asset{},
		burnSources: map[chainAddress]string{},
	}
}

func normalizeAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	return strings.ToLower(common.HexToAddress(address).Hex()), nil
}

// ErrReservedChainID is returned for the chain id used by cross-chain views.
var ErrReservedChainID = fmt.Errorf("chain id %d is reserved for global views", constants.GLOBAL_CHAIN_ID)

func (r *Registry) Register(chainID uint64, address string, asset Asset) error {
	if chainID == constants.GLOBAL_CHAIN_ID {
		return ErrReservedChainID
	}
	if asset.Key == "" {
		return errors.New("asset key is required")
	}
	if strings.Contains(asset.Key, ":") {
		return fmt.Errorf("asset key %q must not contain ':'", asset.Key)
	}
	if !asset.Kind.Valid() {
		return fmt.Errorf("asset %s has unknown kind %q", asset.Key, asset.Kind)
	}
	addr, err := normalizeAddress(address)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[chainAddress{chainID, addr}] = asset
	return nil
}

func (r *Registry) RegisterBurnSource(chainID uint64, address string, name string) error {
	if chainID == constants.GLOBAL_CHAIN_ID {
		return ErrReservedChainID
	}
	if name == "" {
		return errors.New("burn source name is required")
	}
	addr, err := normalizeAddress(address)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.burnSources[chainAddress{chainID, addr}] = name
	return nil
}

func (r *Registry) Lookup(chainID uint64, address string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[chainAddress{chainID, strings.ToLower(address)}]
	return asset, ok
}

func (r *Registry) BurnSource(chainID uint64, address string) (string, bool) {
	if address == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.burnSources[chainAddress{chainID, strings.ToLower(address)}]
	return name, ok
}

// Contracts lists every registered address on chainID, sorted.
func (r *Registry) Contracts(chainID uint64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for ca := range r.assets {
		if ca.chainID == chainID {
			out = append(out, ca.address)
		}
	}
	sort.Strings(out)
	return out
}

// Aliases lists every (chainID, address) resolving to key.
func (r *Registry) Aliases(key string) map[uint64][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := map[uint64][]string{}
	for ca, asset := range r.assets {
		if asset.Key == key {
			out[ca.chainID] = append(out[ca.chainID], ca.address)
		}
	}
	for chainID := range out {
		sort.Strings(out[chainID])
	}
	return out
}

func (r *Registry) Chains() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[uint64]bool{}
	var out []uint64
	for ca := range r.assets {
		if !seen[ca.chainID] {
			seen[ca.chainID] = true
			out = append(out, ca.chainID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
