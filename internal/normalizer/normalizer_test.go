package normalizer_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/normalizer"
)

const (
	minterHex = "0xAAAaaAaAAAaaaAaAaAAaaAaAAaaAaAaAaaaAaAaA"
	minterLow = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	txHashHex = "0x9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"
)

func liveEvent() domain.LiveMint {
	return domain.LiveMint{
		TokenID:   big.NewInt(7),
		Minter:    common.HexToAddress(minterHex),
		TokenURI:  " https://x/7.json ",
		Timestamp: big.NewInt(1700000000),
		Log: domain.LogRef{
			TxHash:      common.HexToHash(txHashHex),
			BlockNumber: 100,
			LogIndex:    3,
		},
	}
}

func historicalEvent() domain.HistoricalMint {
	return domain.HistoricalMint{
		Args:        []interface{}{big.NewInt(7), common.HexToAddress(minterHex), "https://x/7.json", big.NewInt(1700000000)},
		TxHash:      txHashHex,
		BlockNumber: 100,
		LogIndex:    3,
	}
}

func TestNormalize_BothShapesAgree(t *testing.T) {
	expected := domain.MintEvent{
		TokenID:         7,
		MinterAddress:   minterLow,
		MetadataURI:     "https://x/7.json",
		Timestamp:       1700000000,
		TransactionHash: txHashHex,
		BlockNumber:     100,
		LogIndex:        3,
	}

	live, err := normalizer.Normalize(domain.NewLiveRawEvent(liveEvent()))
	require.NoError(t, err)
	assert.Equal(t, expected, live)

	historical, err := normalizer.Normalize(domain.NewHistoricalRawEvent(historicalEvent()))
	require.NoError(t, err)
	assert.Equal(t, expected, historical)
}

func TestNormalize_HistoricalArgumentTypes(t *testing.T) {
	tests := []struct {
		name     string
		args     []interface{}
		txHash   string
		expected domain.MintEvent
	}{
		{
			name:   "plain integers and string address",
			args:   []interface{}{uint64(42), minterHex, "ipfs://cid", int64(1)},
			txHash: "0xDEAD",
			expected: domain.MintEvent{
				TokenID: 42, MinterAddress: minterLow, MetadataURI: "ipfs://cid", Timestamp: 1, TransactionHash: "0xdead",
			},
		},
		{
			name:   "decimal string token id and missing uri and timestamp",
			args:   []interface{}{"9", minterHex},
			txHash: "0xbeef",
			expected: domain.MintEvent{
				TokenID: 9, MinterAddress: minterLow, TransactionHash: "0xbeef",
			},
		},
		{
			name:   "hex string token id",
			args:   []interface{}{"0x10", common.HexToAddress(minterHex), "", uint64(5)},
			txHash: "0x01",
			expected: domain.MintEvent{
				TokenID: 16, MinterAddress: minterLow, Timestamp: 5, TransactionHash: "0x01",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizer.Normalize(domain.NewHistoricalRawEvent(domain.HistoricalMint{Args: tt.args, TxHash: tt.txHash}))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNormalize_Malformed(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 70)

	tests := []struct {
		name  string
		raw   domain.RawEvent
		field string
	}{
		{
			name: "live missing token id",
			raw: func() domain.RawEvent {
				e := liveEvent()
				e.TokenID = nil
				return domain.NewLiveRawEvent(e)
			}(),
			field: "tokenId",
		},
		{
			name: "live token id overflow",
			raw: func() domain.RawEvent {
				e := liveEvent()
				e.TokenID = tooBig
				return domain.NewLiveRawEvent(e)
			}(),
			field: "tokenId",
		},
		{
			name: "live zero minter",
			raw: func() domain.RawEvent {
				e := liveEvent()
				e.Minter = common.Address{}
				return domain.NewLiveRawEvent(e)
			}(),
			field: "minter",
		},
		{
			name: "live missing tx hash",
			raw: func() domain.RawEvent {
				e := liveEvent()
				e.Log.TxHash = common.Hash{}
				return domain.NewLiveRawEvent(e)
			}(),
			field: "transactionHash",
		},
		{
			name:  "historical empty args",
			raw:   domain.NewHistoricalRawEvent(domain.HistoricalMint{TxHash: txHashHex}),
			field: "tokenId",
		},
		{
			name: "historical negative token id",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{int64(-1), minterHex}, TxHash: txHashHex,
			}),
			field: "tokenId",
		},
		{
			name: "historical token id not a number",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{"seven", minterHex}, TxHash: txHashHex,
			}),
			field: "tokenId",
		},
		{
			name: "historical bad minter",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{big.NewInt(1), "0xnope"}, TxHash: txHashHex,
			}),
			field: "minter",
		},
		{
			name: "historical missing minter",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{big.NewInt(1)}, TxHash: txHashHex,
			}),
			field: "minter",
		},
		{
			name: "historical missing tx hash",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{big.NewInt(1), minterHex},
			}),
			field: "transactionHash",
		},
		{
			name: "historical non-hex tx hash",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{big.NewInt(1), minterHex}, TxHash: "0xzz",
			}),
			field: "transactionHash",
		},
		{
			name: "historical negative timestamp",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{big.NewInt(1), minterHex, "", int64(-5)}, TxHash: txHashHex,
			}),
			field: "timestamp",
		},
		{
			name: "token id beyond int64",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{new(big.Int).Lsh(big.NewInt(1), 63), minterHex}, TxHash: txHashHex,
			}),
			field: "tokenId",
		},
		{
			name: "uint64 token id beyond int64",
			raw: domain.NewHistoricalRawEvent(domain.HistoricalMint{
				Args: []interface{}{uint64(1) << 63, minterHex}, TxHash: txHashHex,
			}),
			field: "tokenId",
		},
		{
			name:  "live kind without payload",
			raw:   domain.RawEvent{Kind: domain.RawEventLive},
			field: "event",
		},
		{
			name:  "unknown kind",
			raw:   domain.RawEvent{},
			field: "event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizer.Normalize(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrNormalization))

			var normErr *domain.NormalizationError
			require.True(t, errors.As(err, &normErr))
			assert.Equal(t, tt.field, normErr.Field)
		})
	}
}

func TestNormalize_StripsNULFromTokenURI(t *testing.T) {
	live := liveEvent()
	live.TokenURI = "https://x/7.json\x00"
	historical := historicalEvent()
	historical.Args[2] = "https://x/\xff7.json\x00"

	for _, raw := range []domain.RawEvent{domain.NewLiveRawEvent(live), domain.NewHistoricalRawEvent(historical)} {
		event, err := normalizer.Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, "https://x/7.json", event.MetadataURI)
	}
}

func TestCanonicalAddress(t *testing.T) {
	assert.Equal(t, minterLow, normalizer.CanonicalAddress(" "+minterHex+" "))
}
