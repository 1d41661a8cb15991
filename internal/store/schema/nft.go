package schema

import (
	"time"

	"gorm.io/datatypes"
)

// NFT represents the nfts table - one row per minted token, created once by the first applied mint event
type NFT struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID is the on-chain token id, unique across the contract
	TokenID uint64 `gorm:"column:token_id;not null;uniqueIndex;type:bigint"`
	// Name is the metadata name, or "NFT #<tokenId>" when metadata was unavailable
	Name string `gorm:"column:name;not null;type:text"`
	Description string `gorm:"column:description;not null;default:'';type:text"`
	ImageURL    string `gorm:"column:image_url;not null;default:'';type:text"`
	// MetadataURI is the token URI as emitted by the contract
	MetadataURI string `gorm:"column:metadata_uri;not null;default:'';type:text"`
	// MetadataHash is the sha256 of the canonicalized metadata document, empty for fallback metadata
	MetadataHash string `gorm:"column:metadata_hash;not null;default:'';type:text"`
	// Attributes holds the metadata attributes array (trait_type/value pairs)
	Attributes datatypes.JSON `gorm:"column:attributes;type:jsonb"`
	// MinterAddress is the lower-cased address that minted the token
	MinterAddress string `gorm:"column:minter_address;not null;type:text;index"`
	// OwnerAddress is the lower-cased current owner, the minter until transfers are tracked
	OwnerAddress string `gorm:"column:owner_address;not null;type:text;index"`
	// TransactionHash is the mint transaction
	TransactionHash string `gorm:"column:transaction_hash;not null;type:text"`
	// BlockNumber is the block the mint was emitted in
	BlockNumber uint64 `gorm:"column:block_number;not null;type:bigint;index"`
	// MintedAt is the timestamp reported by the mint event
	MintedAt time.Time `gorm:"column:minted_at;not null"`
	// CreatedAt is the timestamp when this record was first indexed
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (NFT) TableName() string {
	return "nfts"
}
