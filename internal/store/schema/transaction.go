package schema

import (
	"time"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
)

// Transaction represents the transactions table - the human-readable transaction history
type Transaction struct {
	ID              int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	TransactionHash string                 `gorm:"column:transaction_hash;not null;uniqueIndex;type:text"`
	Type            domain.TransactionType `gorm:"column:type;not null;type:text;index"`
	// FromAddress is nil for mints
	FromAddress *string   `gorm:"column:from_address;type:text;index"`
	ToAddress   string    `gorm:"column:to_address;not null;type:text;index"`
	TokenID     uint64    `gorm:"column:token_id;not null;type:bigint;index"`
	BlockNumber uint64    `gorm:"column:block_number;not null;type:bigint"`
	Timestamp   time.Time `gorm:"column:timestamp;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
