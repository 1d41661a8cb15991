package schema

import "time"

// UserAggregate represents the user_aggregates table. Counters are derived from the nfts table and
// overwritten on every recompute, never incremented.
type UserAggregate struct {
	Address    string    `gorm:"column:address;primaryKey;type:text"`
	NFTsOwned  int64     `gorm:"column:nfts_owned;not null;default:0;check:nfts_owned >= 0"`
	NFTsMinted int64     `gorm:"column:nfts_minted;not null;default:0;check:nfts_minted >= 0"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (UserAggregate) TableName() string {
	return "user_aggregates"
}

// Models lists every table managed by the projection, in migration order
func Models() []interface{} {
	return []interface{}{&NFT{}, &Transaction{}, &UserAggregate{}}
}
