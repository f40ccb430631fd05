package registry

const (
	ETHEREUM_CHAIN_ID = uint64(1)

	MEMES_CONTRACT     = "0x33fd426905f149f8376e227d0c9d3340aad17af1"
	NEXTGEN_CONTRACT   = "0x45882f9bc325e14fbb298a1df930c43a874b83ae"
	GRADIENTS_CONTRACT = "0x0c58ef43ff3032005e472cb5709f8908acb00205"
)

// Default returns the registry compiled into the binary. Deployments extend
// it with a registry file.
func Default() *Registry {
	r := New()
	mustRegister(r, ETHEREUM_CHAIN_ID, MEMES_CONTRACT, Asset{Key: "memes", Kind: KindERC1155, HomeChainID: ETHEREUM_CHAIN_ID, TrackBurns: true})
	mustRegister(r, ETHEREUM_CHAIN_ID, GRADIENTS_CONTRACT, Asset{Key: "gradients", Kind: KindERC721, HomeChainID: ETHEREUM_CHAIN_ID, TrackBurns: true})
	mustRegister(r, ETHEREUM_CHAIN_ID, NEXTGEN_CONTRACT, Asset{Key: "nextgen", Kind: KindERC721, HomeChainID: ETHEREUM_CHAIN_ID, TrackBurns: true})
	return r
}

func mustRegister(r *Registry, chainID uint64, address string, asset Asset) {
	if err := r.Register(chainID, address, asset); err != nil {
		panic(err)
	}
}
