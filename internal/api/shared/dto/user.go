package dto

import "time"

// UserResponse represents the counters of an address
type UserResponse struct {
	Address    string    `json:"address"`
	NFTsOwned  int64     `json:"nfts_owned"`
	NFTsMinted int64     `json:"nfts_minted"`
	UpdatedAt  time.Time `json:"updated_at"`
}
