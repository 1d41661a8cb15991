package dto

import (
	"time"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/store/schema"
)

// TransactionResponse represents a transaction history entry
type TransactionResponse struct {
	TransactionHash string                 `json:"transaction_hash"`
	Type            domain.TransactionType `json:"type"`
	FromAddress     *string                `json:"from_address"`
	ToAddress       string                 `json:"to_address"`
	TokenID         uint64                 `json:"token_id"`
	BlockNumber     uint64                 `json:"block_number"`
	Timestamp       time.Time              `json:"timestamp"`
}

// TransactionListResponse represents a page of transactions
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"items"`
	Pagination
}

// MapTransactionToDTO maps a schema.Transaction to TransactionResponse
func MapTransactionToDTO(txn *schema.Transaction) *TransactionResponse {
	if txn == nil {
		return nil
	}

	return &TransactionResponse{
		TransactionHash: txn.TransactionHash,
		Type:            txn.Type,
		FromAddress:     txn.FromAddress,
		ToAddress:       txn.ToAddress,
		TokenID:         txn.TokenID,
		BlockNumber:     txn.BlockNumber,
		Timestamp:       txn.Timestamp.UTC(),
	}
}
