package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// NFTMinted(uint256 indexed tokenId, address indexed minter, string tokenURI, uint256 timestamp)
const nftMintedABI = `[{"anonymous":false,"inputs":[` +
	`{"indexed":true,"internalType":"uint256","name":"tokenId","type":"uint256"},` +
	`{"indexed":true,"internalType":"address","name":"minter","type":"address"},` +
	`{"indexed":false,"internalType":"string","name":"tokenURI","type":"string"},` +
	`{"indexed":false,"internalType":"uint256","name":"timestamp","type":"uint256"}` +
	`],"name":"NFTMinted","type":"event"}]`

var (
	mintedEvent abi.Event
	// nftMintedEventSignature is topic 0 of every NFTMinted log
	nftMintedEventSignature common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(nftMintedABI))
	if err != nil {
		panic(fmt.Sprintf("invalid NFTMinted ABI: %v", err))
	}
	mintedEvent = parsed.Events["NFTMinted"]
	nftMintedEventSignature = mintedEvent.ID
}

// mintFields are the decoded NFTMinted fields. Fields that could not be decoded are nil so the
// normalizer rejects the event with a precise reason.
type mintFields struct {
	tokenID   *big.Int
	minter    *common.Address
	tokenURI  interface{}
	timestamp interface{}
}

func decodeMintLog(vLog types.Log) mintFields {
	var f mintFields
	if len(vLog.Topics) > 1 {
		f.tokenID = new(big.Int).SetBytes(vLog.Topics[1].Bytes())
	}
	if len(vLog.Topics) > 2 {
		minter := common.BytesToAddress(vLog.Topics[2].Bytes())
		f.minter = &minter
	}

	values, err := mintedEvent.Inputs.NonIndexed().Unpack(vLog.Data)
	if err == nil && len(values) == 2 {
		f.tokenURI = values[0]
		f.timestamp = values[1]
	}
	return f
}

// toHistorical shapes a log like a range query result: positional arguments in declaration order
func toHistorical(vLog types.Log) domain.RawEvent {
	f := decodeMintLog(vLog)

	args := make([]interface{}, 4)
	if f.tokenID != nil {
		args[0] = f.tokenID
	}
	if f.minter != nil {
		args[1] = *f.minter
	}
	args[2] = f.tokenURI
	args[3] = f.timestamp

	return domain.NewHistoricalRawEvent(domain.HistoricalMint{
		Args:        args,
		TxHash:      vLog.TxHash.Hex(),
		BlockNumber: vLog.BlockNumber,
		LogIndex:    vLog.Index,
	})
}

// toLive shapes a log like a subscription callback: decoded fields by name
func toLive(vLog types.Log) domain.RawEvent {
	f := decodeMintLog(vLog)

	m := domain.LiveMint{
		TokenID: f.tokenID,
		Log: domain.LogRef{
			TxHash:      vLog.TxHash,
			BlockNumber: vLog.BlockNumber,
			LogIndex:    vLog.Index,
		},
	}
	if f.minter != nil {
		m.Minter = *f.minter
	}
	if uri, ok := f.tokenURI.(string); ok {
		m.TokenURI = uri
	}
	if ts, ok := f.timestamp.(*big.Int); ok {
		m.Timestamp = ts
	}
	return domain.NewLiveRawEvent(m)
}
