package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
)

// IsValidChain checks if a chain is valid
func IsValidChain(chain Chain) bool {
	return chain == ChainEthereumMainnet ||
		chain == ChainEthereumSepolia
}

// TransactionType is the kind of on-chain action recorded in the transaction history
type TransactionType string

const (
	TransactionTypeMint     TransactionType = "MINT"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// RawEventKind tags which branch of RawEvent is populated
type RawEventKind int

const (
	// RawEventLive is delivered by the live subscription callback
	RawEventLive RawEventKind = iota + 1
	// RawEventHistorical is returned by a historical range query
	RawEventHistorical
)

func (k RawEventKind) String() string {
	switch k {
	case RawEventLive:
		return "live"
	case RawEventHistorical:
		return "historical"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// LogRef is the provenance of a contract log
type LogRef struct {
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// LiveMint is the shape of a mint delivered by the subscription: decoded event fields by name
type LiveMint struct {
	TokenID   *big.Int
	Minter    common.Address
	TokenURI  string
	Timestamp *big.Int
	Log       LogRef
}

// HistoricalMint is the shape of a mint returned by a range query: event arguments by position
// in declaration order (tokenId, minter, tokenURI, timestamp)
type HistoricalMint struct {
	Args        []interface{}
	TxHash      string
	BlockNumber uint64
	LogIndex    uint
}

// RawEvent is a tagged union of the two delivery shapes. Exactly one of Live or Historical is set,
// matching Kind.
type RawEvent struct {
	Kind       RawEventKind
	Live       *LiveMint
	Historical *HistoricalMint
}

// NewLiveRawEvent wraps a live mint
func NewLiveRawEvent(m LiveMint) RawEvent {
	return RawEvent{Kind: RawEventLive, Live: &m}
}

// NewHistoricalRawEvent wraps a historical mint
func NewHistoricalRawEvent(m HistoricalMint) RawEvent {
	return RawEvent{Kind: RawEventHistorical, Historical: &m}
}

// BlockNumber returns the block the raw event was emitted in, used for ordering before normalization
func (r RawEvent) BlockNumber() uint64 {
	switch r.Kind {
	case RawEventLive:
		if r.Live != nil {
			return r.Live.Log.BlockNumber
		}
	case RawEventHistorical:
		if r.Historical != nil {
			return r.Historical.BlockNumber
		}
	}
	return 0
}

// LogIndex returns the position of the log within its block
func (r RawEvent) LogIndex() uint {
	switch r.Kind {
	case RawEventLive:
		if r.Live != nil {
			return r.Live.Log.LogIndex
		}
	case RawEventHistorical:
		if r.Historical != nil {
			return r.Historical.LogIndex
		}
	}
	return 0
}

// MintEvent is the canonical, immutable mint event applied to the projection
type MintEvent struct {
	TokenID         uint64 `json:"token_id"`
	MinterAddress   string `json:"minter_address"` // lower-cased
	MetadataURI     string `json:"metadata_uri"`
	Timestamp       int64  `json:"timestamp"` // seconds since epoch, as reported by the event
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     uint64 `json:"block_number"`
	LogIndex        uint   `json:"log_index"`
}

// Time returns the event timestamp as UTC time
func (e MintEvent) Time() time.Time {
	return time.Unix(e.Timestamp, 0).UTC()
}

// Attribute is a single trait of the metadata document
type Attribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// MetadataDocument is the off-chain metadata referenced by a token URI. All fields are optional.
type MetadataDocument struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`

	// Raw is the document as fetched. Nil for the fallback document.
	Raw []byte `json:"-"`
	// Hash is the hex sha256 of the canonicalized (JCS) raw document, empty for the fallback document
	Hash string `json:"-"`
}

// FallbackMetadata returns the document used when metadata cannot be fetched
func FallbackMetadata(tokenID uint64) *MetadataDocument {
	return &MetadataDocument{
		Name:        FallbackName(tokenID),
		Description: "",
		Image:       "",
	}
}

// FallbackName returns the default display name for a token
func FallbackName(tokenID uint64) string {
	return fmt.Sprintf("%s%d", FallbackNamePrefix, tokenID)
}

// MintNotification is published after a mint has been applied to the projection
type MintNotification struct {
	Chain           Chain     `json:"chain"`
	ContractAddress string    `json:"contract_address"`
	TokenID         uint64    `json:"token_id"`
	MinterAddress   string    `json:"minter_address"`
	Name            string    `json:"name"`
	ImageURL        string    `json:"image_url"`
	TransactionHash string    `json:"transaction_hash"`
	BlockNumber     uint64    `json:"block_number"`
	Timestamp       time.Time `json:"timestamp"`
}

// MessageID is the broker-side deduplication key for the notification
func (n *MintNotification) MessageID() string {
	return fmt.Sprintf("%s:%d", n.TransactionHash, n.TokenID)
}
