package dto

import (
	"encoding/json"
	"time"

	"github.com/feral-file/ff-mint-indexer/internal/store/schema"
)

// NFTResponse represents a minted token
type NFTResponse struct {
	TokenID         uint64          `json:"token_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ImageURL        string          `json:"image_url"`
	MetadataURI     string          `json:"metadata_uri"`
	MetadataHash    string          `json:"metadata_hash,omitempty"`
	Attributes      json.RawMessage `json:"attributes,omitempty"`
	MinterAddress   string          `json:"minter_address"`
	OwnerAddress    string          `json:"owner_address"`
	TransactionHash string          `json:"transaction_hash"`
	BlockNumber     uint64          `json:"block_number"`
	MintedAt        time.Time       `json:"minted_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NFTListResponse represents a page of NFTs
type NFTListResponse struct {
	NFTs []NFTResponse `json:"items"`
	Pagination
}

// NFTStatsResponse represents collection-wide counters
type NFTStatsResponse struct {
	TotalNFTs       int64     `json:"total_nfts"`
	DistinctOwners  int64     `json:"distinct_owners"`
	DistinctMinters int64     `json:"distinct_minters"`
	RecentMints     int64     `json:"recent_mints"`
	RecentSince     time.Time `json:"recent_since"`
}

// MapNFTToDTO maps a schema.NFT to NFTResponse
func MapNFTToDTO(nft *schema.NFT) *NFTResponse {
	if nft == nil {
		return nil
	}

	resp := &NFTResponse{
		TokenID:         nft.TokenID,
		Name:            nft.Name,
		Description:     nft.Description,
		ImageURL:        nft.ImageURL,
		MetadataURI:     nft.MetadataURI,
		MetadataHash:    nft.MetadataHash,
		MinterAddress:   nft.MinterAddress,
		OwnerAddress:    nft.OwnerAddress,
		TransactionHash: nft.TransactionHash,
		BlockNumber:     nft.BlockNumber,
		MintedAt:        nft.MintedAt.UTC(),
		CreatedAt:       nft.CreatedAt.UTC(),
	}
	if len(nft.Attributes) > 0 {
		resp.Attributes = json.RawMessage(nft.Attributes)
	}

	return resp
}
