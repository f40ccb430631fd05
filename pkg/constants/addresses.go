package constants

const (
	NULL_ADDRESS = "0x0000000000000000000000000000000000000000"
	DEAD_ADDRESS = "0x000000000000000000000000000000000000dead"
)

// Pseudo chain id used by derived cross-chain views.
const GLOBAL_CHAIN_ID = uint64(0)

const USER_BURN_SOURCE = "user"
