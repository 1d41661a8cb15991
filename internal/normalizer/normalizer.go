package normalizer

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// Positions of the NFTMinted arguments in a historical query result
const (
	argTokenID = iota
	argMinter
	argTokenURI
	argTimestamp
	argCount
)

// Normalize converts a raw event of either delivery shape into the canonical MintEvent.
// A missing or malformed tokenId, minter or transaction hash yields a *domain.NormalizationError.
func Normalize(raw domain.RawEvent) (domain.MintEvent, error) {
	switch raw.Kind {
	case domain.RawEventLive:
		if raw.Live == nil {
			return domain.MintEvent{}, &domain.NormalizationError{Field: "event", Reason: "live payload missing"}
		}
		return normalizeLive(raw.Live)
	case domain.RawEventHistorical:
		if raw.Historical == nil {
			return domain.MintEvent{}, &domain.NormalizationError{Field: "event", Reason: "historical payload missing"}
		}
		return normalizeHistorical(raw.Historical)
	default:
		return domain.MintEvent{}, &domain.NormalizationError{Field: "event", Reason: fmt.Sprintf("unknown kind %s", raw.Kind)}
	}
}

func normalizeLive(m *domain.LiveMint) (domain.MintEvent, error) {
	tokenID, err := tokenIDFromBig(m.TokenID)
	if err != nil {
		return domain.MintEvent{}, err
	}

	if m.Minter == (common.Address{}) {
		return domain.MintEvent{}, &domain.NormalizationError{Field: "minter", Reason: "missing"}
	}

	if m.Log.TxHash == (common.Hash{}) {
		return domain.MintEvent{}, &domain.NormalizationError{Field: "transactionHash", Reason: "missing"}
	}

	timestamp, err := timestampFromBig(m.Timestamp)
	if err != nil {
		return domain.MintEvent{}, err
	}

	return domain.MintEvent{
		TokenID:         tokenID,
		MinterAddress:   canonicalAddress(m.Minter),
		MetadataURI:     strings.TrimSpace(domain.SanitizeText(m.TokenURI)),
		Timestamp:       timestamp,
		TransactionHash: m.Log.TxHash.Hex(),
		BlockNumber:     m.Log.BlockNumber,
		LogIndex:        m.Log.LogIndex,
	}, nil
}

func normalizeHistorical(m *domain.HistoricalMint) (domain.MintEvent, error) {
	args := make([]interface{}, argCount)
	copy(args, m.Args)

	tokenID, err := tokenIDFromArg(args[argTokenID])
	if err != nil {
		return domain.MintEvent{}, err
	}

	minter, err := minterFromArg(args[argMinter])
	if err != nil {
		return domain.MintEvent{}, err
	}

	txHash, err := transactionHash(m.TxHash)
	if err != nil {
		return domain.MintEvent{}, err
	}

	var tokenURI string
	if s, ok := args[argTokenURI].(string); ok {
		tokenURI = strings.TrimSpace(domain.SanitizeText(s))
	}

	timestamp, err := timestampFromArg(args[argTimestamp])
	if err != nil {
		return domain.MintEvent{}, err
	}

	return domain.MintEvent{
		TokenID:         tokenID,
		MinterAddress:   minter,
		MetadataURI:     tokenURI,
		Timestamp:       timestamp,
		TransactionHash: txHash,
		BlockNumber:     m.BlockNumber,
		LogIndex:        m.LogIndex,
	}, nil
}

func tokenIDFromBig(v *big.Int) (uint64, error) {
	if v == nil {
		return 0, &domain.NormalizationError{Field: "tokenId", Reason: "missing"}
	}
	// The projection stores token ids as bigint
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, &domain.NormalizationError{Field: "tokenId", Reason: fmt.Sprintf("out of range: %s", v.String())}
	}
	return v.Uint64(), nil
}

func tokenIDFromArg(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case nil:
		return 0, &domain.NormalizationError{Field: "tokenId", Reason: "missing"}
	case *big.Int:
		return tokenIDFromBig(t)
	case uint64:
		if t > math.MaxInt64 {
			return 0, &domain.NormalizationError{Field: "tokenId", Reason: fmt.Sprintf("out of range: %d", t)}
		}
		return t, nil
	case int64:
		if t < 0 {
			return 0, &domain.NormalizationError{Field: "tokenId", Reason: fmt.Sprintf("negative: %d", t)}
		}
		return uint64(t), nil
	case int:
		if t < 0 {
			return 0, &domain.NormalizationError{Field: "tokenId", Reason: fmt.Sprintf("negative: %d", t)}
		}
		return uint64(t), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(t), 0)
		if !ok {
			return 0, &domain.NormalizationError{Field: "tokenId", Reason: fmt.Sprintf("not a number: %q", t)}
		}
		return tokenIDFromBig(n)
	default:
		return 0, &domain.NormalizationError{Field: "tokenId", Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}

func minterFromArg(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", &domain.NormalizationError{Field: "minter", Reason: "missing"}
	case common.Address:
		if t == (common.Address{}) {
			return "", &domain.NormalizationError{Field: "minter", Reason: "missing"}
		}
		return canonicalAddress(t), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return "", &domain.NormalizationError{Field: "minter", Reason: "missing"}
		}
		if !common.IsHexAddress(s) {
			return "", &domain.NormalizationError{Field: "minter", Reason: fmt.Sprintf("not an address: %q", s)}
		}
		return canonicalAddress(common.HexToAddress(s)), nil
	default:
		return "", &domain.NormalizationError{Field: "minter", Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}

// transactionHash accepts any 0x-prefixed hex string and returns it lower-cased
func transactionHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", &domain.NormalizationError{Field: "transactionHash", Reason: "missing"}
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", &domain.NormalizationError{Field: "transactionHash", Reason: fmt.Sprintf("not hex: %q", s)}
	}
	hex := s[2:]
	if hex == "" || strings.Trim(strings.ToLower(hex), "0123456789abcdef") != "" {
		return "", &domain.NormalizationError{Field: "transactionHash", Reason: fmt.Sprintf("not hex: %q", s)}
	}
	return "0x" + strings.ToLower(hex), nil
}

// timestampFromBig treats a missing timestamp as zero; only a present but unrepresentable value is malformed
func timestampFromBig(v *big.Int) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if v.Sign() < 0 || !v.IsInt64() {
		return 0, &domain.NormalizationError{Field: "timestamp", Reason: fmt.Sprintf("out of range: %s", v.String())}
	}
	return v.Int64(), nil
}

func timestampFromArg(v interface{}) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case *big.Int:
		return timestampFromBig(t)
	case int64:
		return timestampFromBig(big.NewInt(t))
	case int:
		return timestampFromBig(big.NewInt(int64(t)))
	case uint64:
		if t > math.MaxInt64 {
			return 0, &domain.NormalizationError{Field: "timestamp", Reason: fmt.Sprintf("out of range: %d", t)}
		}
		return int64(t), nil
	default:
		return 0, &domain.NormalizationError{Field: "timestamp", Reason: fmt.Sprintf("unexpected type %T", v)}
	}
}

// canonicalAddress is the lower-cased hex form used as the store key for addresses
func canonicalAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// CanonicalAddress lower-cases a hex address string, e.g. for query parameters
func CanonicalAddress(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
