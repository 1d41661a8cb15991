package domain

const (
	// Gateway constants
	DEFAULT_IPFS_GATEWAY = "https://ipfs.io"

	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// FallbackNamePrefix prefixes the token id in the fallback metadata name, e.g. "NFT #7"
	FallbackNamePrefix = "NFT #"
)
