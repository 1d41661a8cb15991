package rest

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/store"
)

const MAX_PAGE_SIZE = store.MaxQueryLimit

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

func (o Order) Desc() bool {
	return o == OrderDesc
}

func (o Order) Asc() bool {
	return o == OrderAsc
}

// ListNFTsQueryParams holds query parameters for GET /nfts
type ListNFTsQueryParams struct {
	// Filters
	Owner  string `form:"owner"`
	Minter string `form:"minter"`
	Search string `form:"search"`

	// Pagination
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`

	// Sorting
	SortBy    string `form:"sort_by,default=minted_at"`
	SortOrder Order  `form:"sort_order,default=desc"`
}

// ListTransactionsQueryParams holds query parameters for GET /transactions
type ListTransactionsQueryParams struct {
	// Filters
	Type    string `form:"type"`
	Address string `form:"address"`
	TokenID string `form:"token_id"`

	// Pagination
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`

	SortOrder Order `form:"sort_order,default=desc"`
}

// ParseListNFTsQuery parses query parameters for GET /nfts
func ParseListNFTsQuery(c *gin.Context) (*ListNFTsQueryParams, error) {
	var params ListNFTsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limits
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// Validate validates the NFT list query parameters
func (p *ListNFTsQueryParams) Validate() error {
	if p.Owner != "" && !common.IsHexAddress(p.Owner) {
		return fmt.Errorf("invalid owner address: %s", p.Owner)
	}
	if p.Minter != "" && !common.IsHexAddress(p.Minter) {
		return fmt.Errorf("invalid minter address: %s", p.Minter)
	}
	if err := validatePaging(p.Page, p.Limit); err != nil {
		return err
	}
	if !store.NFTSortField(p.SortBy).IsValid() {
		return fmt.Errorf("invalid sort_by: %s", p.SortBy)
	}
	if !p.SortOrder.Asc() && !p.SortOrder.Desc() {
		return fmt.Errorf("invalid sort_order: %s", p.SortOrder)
	}
	return nil
}

// ParseListTransactionsQuery parses query parameters for GET /transactions
func ParseListTransactionsQuery(c *gin.Context) (*ListTransactionsQueryParams, error) {
	var params ListTransactionsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limits
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}

	return &params, nil
}

// Validate validates the transaction list query parameters
func (p *ListTransactionsQueryParams) Validate() error {
	if p.Type != "" {
		switch domain.TransactionType(p.Type) {
		case domain.TransactionTypeMint, domain.TransactionTypeTransfer:
		default:
			return fmt.Errorf("invalid type: %s", p.Type)
		}
	}
	if p.Address != "" && !common.IsHexAddress(p.Address) {
		return fmt.Errorf("invalid address: %s", p.Address)
	}
	if p.TokenID != "" {
		if _, err := parseTokenID(p.TokenID); err != nil {
			return err
		}
	}
	if err := validatePaging(p.Page, p.Limit); err != nil {
		return err
	}
	if !p.SortOrder.Asc() && !p.SortOrder.Desc() {
		return fmt.Errorf("invalid sort_order: %s", p.SortOrder)
	}
	return nil
}

// TransactionType returns the type filter, nil when unset
func (p *ListTransactionsQueryParams) TransactionType() *domain.TransactionType {
	if p.Type == "" {
		return nil
	}
	t := domain.TransactionType(p.Type)
	return &t
}

// TokenIDFilter returns the token id filter, nil when unset. Validate must have passed.
func (p *ListTransactionsQueryParams) TokenIDFilter() *uint64 {
	if p.TokenID == "" {
		return nil
	}
	id, _ := parseTokenID(p.TokenID)
	return &id
}

func validatePaging(page, limit int) error {
	if page < 1 {
		return fmt.Errorf("page must be at least 1")
	}
	if limit < 1 {
		return fmt.Errorf("limit must be at least 1")
	}
	return nil
}

// parseTokenID parses a decimal token id
func parseTokenID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token_id: %s", raw)
	}
	return id, nil
}
