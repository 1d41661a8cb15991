package rest

import (
	"net/http"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/api/shared/dto"
	"github.com/feral-file/ff-mint-indexer/internal/api/shared/executor"
	"github.com/feral-file/ff-mint-indexer/internal/store"
)

// SERVICE_NAME is reported by the health endpoint
const SERVICE_NAME = "ff-mint-indexer-api"

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetNFT retrieves a single NFT by its token id
	// GET /api/v1/nfts/:token_id
	GetNFT(c *gin.Context)

	// ListNFTs retrieves NFTs with optional filters
	// GET /api/v1/nfts?owner=<address>&minter=<address>&search=<text>&page=<page>&limit=<limit>&sort_by=<token_id|block_number|minted_at|name>&sort_order=<asc|desc>
	ListNFTs(c *gin.Context)

	// GetStats retrieves collection-wide counters
	// GET /api/v1/nfts/stats
	GetStats(c *gin.Context)

	// GetTransaction retrieves a transaction by its hash
	// GET /api/v1/transactions/:hash
	GetTransaction(c *gin.Context)

	// ListTransactions retrieves the transaction history with optional filters
	// GET /api/v1/transactions?type=<MINT|TRANSFER>&address=<address>&token_id=<id>&page=<page>&limit=<limit>&sort_order=<asc|desc>
	ListTransactions(c *gin.Context)

	// GetUser retrieves the owned and minted counters of an address
	// GET /api/v1/users/:address
	GetUser(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{
		executor: exec,
	}
}

// GetNFT retrieves a single NFT by its token id
func (h *handler) GetNFT(c *gin.Context) {
	tokenID, err := parseTokenID(c.Param("token_id"))
	if err != nil {
		respondBadRequest(c, "Invalid token id", err.Error())
		return
	}

	nft, err := h.executor.GetNFT(c.Request.Context(), tokenID)
	if err != nil {
		respondInternalError(c, err, "Failed to get NFT", zap.Uint64("tokenID", tokenID))
		return
	}

	if nft == nil {
		respondNotFound(c, "NFT not found")
		return
	}

	c.JSON(http.StatusOK, nft)
}

// ListNFTs retrieves NFTs with optional filters
func (h *handler) ListNFTs(c *gin.Context) {
	queryParams, err := ParseListNFTsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.ListNFTs(c.Request.Context(), executor.ListNFTsParams{
		Owner:     queryParams.Owner,
		Minter:    queryParams.Minter,
		Search:    queryParams.Search,
		SortBy:    store.NFTSortField(queryParams.SortBy),
		SortOrder: store.SortOrder(queryParams.SortOrder),
		Page:      queryParams.Page,
		Limit:     queryParams.Limit,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list NFTs")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetStats retrieves collection-wide counters
func (h *handler) GetStats(c *gin.Context) {
	stats, err := h.executor.GetStats(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to get stats")
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetTransaction retrieves a transaction by its hash
func (h *handler) GetTransaction(c *gin.Context) {
	hash := c.Param("hash")
	if !txHashPattern.MatchString(hash) {
		respondBadRequest(c, "Invalid transaction hash")
		return
	}

	txn, err := h.executor.GetTransaction(c.Request.Context(), hash)
	if err != nil {
		respondInternalError(c, err, "Failed to get transaction", zap.String("hash", hash))
		return
	}

	if txn == nil {
		respondNotFound(c, "Transaction not found")
		return
	}

	c.JSON(http.StatusOK, txn)
}

// ListTransactions retrieves the transaction history with optional filters
func (h *handler) ListTransactions(c *gin.Context) {
	queryParams, err := ParseListTransactionsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	response, err := h.executor.ListTransactions(c.Request.Context(), executor.ListTransactionsParams{
		Type:      queryParams.TransactionType(),
		Address:   queryParams.Address,
		TokenID:   queryParams.TokenIDFilter(),
		SortOrder: store.SortOrder(queryParams.SortOrder),
		Page:      queryParams.Page,
		Limit:     queryParams.Limit,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetUser retrieves the counters of an address
func (h *handler) GetUser(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		respondBadRequest(c, "Invalid address")
		return
	}

	user, err := h.executor.GetUser(c.Request.Context(), address)
	if err != nil {
		respondInternalError(c, err, "Failed to get user", zap.String("address", address))
		return
	}

	c.JSON(http.StatusOK, user)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:  "ok",
		Service: SERVICE_NAME,
	})
}
