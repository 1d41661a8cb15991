package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	pgdriver "gorm.io/driver/postgres"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/ff-mint-indexer/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Open connects to PostgreSQL. SQL statements are logged only in debug mode.
func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the projection tables
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(schema.Models()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
//
// Notes:
//   - database/sql treats MaxOpenConns=0 as "unlimited"
//   - database/sql treats MaxIdleConns=0 as "no idle connections"
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	// Set defaults if not provided
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// FindNFT retrieves an NFT by its token id
func (s *pgStore) FindNFT(ctx context.Context, tokenID uint64) (*schema.NFT, error) {
	var nft schema.NFT
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&nft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapError("find nft", err)
	}

	return &nft, nil
}

// InsertNFTIfAbsent creates the NFT record unless the token id is already taken
func (s *pgStore) InsertNFTIfAbsent(ctx context.Context, input CreateNFTInput) (bool, error) {
	created, err := insertNFT(s.db.WithContext(ctx), input)
	if err != nil {
		return false, wrapError("insert nft", err)
	}
	return created, nil
}

// InsertTransaction records a transaction unless the hash is already taken
func (s *pgStore) InsertTransaction(ctx context.Context, input CreateTransactionInput) (bool, error) {
	created, err := insertTransaction(s.db.WithContext(ctx), input)
	if err != nil {
		return false, wrapError("insert transaction", err)
	}
	return created, nil
}

// CreateMint creates the NFT and its MINT transaction in one database transaction.
// Losing the insert-if-absent race on token_id returns false and writes nothing.
func (s *pgStore) CreateMint(ctx context.Context, input CreateMintInput) (bool, error) {
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Claim the token id
		ok, err := insertNFT(tx, input.NFT)
		if err != nil {
			return fmt.Errorf("failed to create nft: %w", err)
		}
		if !ok {
			return nil
		}

		// 2. Record the mint transaction. A hash shared by several mints in one
		// transaction is recorded once.
		if _, err := insertTransaction(tx, input.Transaction); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		created = true
		return nil
	})
	if err != nil {
		return false, wrapError("create mint", err)
	}

	return created, nil
}

func insertNFT(db *gorm.DB, input CreateNFTInput) (bool, error) {
	nft := schema.NFT{
		TokenID:         input.TokenID,
		Name:            input.Name,
		Description:     input.Description,
		ImageURL:        input.ImageURL,
		MetadataURI:     input.MetadataURI,
		MetadataHash:    input.MetadataHash,
		Attributes:      datatypes.JSON(input.Attributes),
		MinterAddress:   strings.ToLower(input.MinterAddress),
		OwnerAddress:    strings.ToLower(input.OwnerAddress),
		TransactionHash: strings.ToLower(input.TransactionHash),
		BlockNumber:     input.BlockNumber,
		MintedAt:        input.MintedAt.UTC(),
	}

	// RowsAffected is 0 when another writer already holds the token id
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token_id"}},
		DoNothing: true,
	}).Create(&nft)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func insertTransaction(db *gorm.DB, input CreateTransactionInput) (bool, error) {
	var from *string
	if input.FromAddress != nil {
		f := strings.ToLower(*input.FromAddress)
		from = &f
	}

	txn := schema.Transaction{
		TransactionHash: strings.ToLower(input.TransactionHash),
		Type:            input.Type,
		FromAddress:     from,
		ToAddress:       strings.ToLower(input.ToAddress),
		TokenID:         input.TokenID,
		BlockNumber:     input.BlockNumber,
		Timestamp:       input.Timestamp.UTC(),
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}},
		DoNothing: true,
	}).Create(&txn)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

// CountNFTs counts NFTs matching the filter
func (s *pgStore) CountNFTs(ctx context.Context, filter NFTFilter) (int64, error) {
	query := s.db.WithContext(ctx).Model(&schema.NFT{})
	if filter.Owner != "" {
		query = query.Where("owner_address = ?", strings.ToLower(filter.Owner))
	}
	if filter.Minter != "" {
		query = query.Where("minter_address = ?", strings.ToLower(filter.Minter))
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, wrapError("count nfts", err)
	}

	return count, nil
}

// UpsertUserAggregate overwrites the counters of an address
func (s *pgStore) UpsertUserAggregate(ctx context.Context, input UpsertUserAggregateInput) error {
	aggregate := schema.UserAggregate{
		Address:    strings.ToLower(input.Address),
		NFTsOwned:  input.NFTsOwned,
		NFTsMinted: input.NFTsMinted,
		UpdatedAt:  input.UpdatedAt.UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"nfts_owned", "nfts_minted", "updated_at"}),
	}).Create(&aggregate).Error
	if err != nil {
		return wrapError("upsert user aggregate", err)
	}

	return nil
}

// LatestAppliedBlock returns the highest block number among applied mints
func (s *pgStore) LatestAppliedBlock(ctx context.Context) (uint64, bool, error) {
	var latest sql.NullInt64
	err := s.db.WithContext(ctx).Model(&schema.NFT{}).
		Select("MAX(block_number)").
		Scan(&latest).Error
	if err != nil {
		return 0, false, wrapError("latest applied block", err)
	}
	if !latest.Valid {
		return 0, false, nil
	}

	return uint64(latest.Int64), true, nil //nolint:gosec,G115 // block numbers are stored from uint64
}

// GetUserAggregate retrieves the counters of an address
func (s *pgStore) GetUserAggregate(ctx context.Context, address string) (*schema.UserAggregate, error) {
	var aggregate schema.UserAggregate
	err := s.db.WithContext(ctx).Where("address = ?", strings.ToLower(address)).First(&aggregate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapError("get user aggregate", err)
	}

	return &aggregate, nil
}

// GetTransaction retrieves a transaction by hash
func (s *pgStore) GetTransaction(ctx context.Context, txHash string) (*schema.Transaction, error) {
	var txn schema.Transaction
	err := s.db.WithContext(ctx).Where("transaction_hash = ?", strings.ToLower(txHash)).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrapError("get transaction", err)
	}

	return &txn, nil
}

// ListNFTs returns a page of NFTs matching the filter
func (s *pgStore) ListNFTs(ctx context.Context, filter NFTQueryFilter) ([]schema.NFT, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.NFT{})

	if filter.Owner != "" {
		query = query.Where("owner_address = ?", strings.ToLower(filter.Owner))
	}
	if filter.Minter != "" {
		query = query.Where("minter_address = ?", strings.ToLower(filter.Minter))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("(name ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapError("count nfts", err)
	}

	sortBy := filter.SortBy
	if !sortBy.IsValid() {
		sortBy = NFTSortByMintedAt
	}

	var nfts []schema.NFT
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: string(sortBy)}, Desc: filter.SortOrder != SortOrderAsc}).
		Order("token_id ASC").
		Limit(normalizeLimit(filter.Limit)).
		Offset(int(filter.Offset)). //nolint:gosec,G115
		Find(&nfts).Error
	if err != nil {
		return nil, 0, wrapError("list nfts", err)
	}

	return nfts, uint64(total), nil //nolint:gosec,G115
}

// ListTransactions returns a page of transactions matching the filter
func (s *pgStore) ListTransactions(ctx context.Context, filter TransactionQueryFilter) ([]schema.Transaction, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.Transaction{})

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Address != "" {
		address := strings.ToLower(filter.Address)
		query = query.Where("(to_address = ? OR from_address = ?)", address, address)
	}
	if filter.TokenID != nil {
		query = query.Where("token_id = ?", *filter.TokenID)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrapError("count transactions", err)
	}

	desc := filter.SortOrder != SortOrderAsc
	var txns []schema.Transaction
	err := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc}).
		Limit(normalizeLimit(filter.Limit)).
		Offset(int(filter.Offset)). //nolint:gosec,G115
		Find(&txns).Error
	if err != nil {
		return nil, 0, wrapError("list transactions", err)
	}

	return txns, uint64(total), nil //nolint:gosec,G115
}

// GetStats returns collection-wide counters
func (s *pgStore) GetStats(ctx context.Context, since time.Time) (*Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&schema.NFT{}).Count(&stats.TotalNFTs).Error; err != nil {
		return nil, wrapError("count nfts", err)
	}
	if err := db.Model(&schema.NFT{}).Distinct("owner_address").Count(&stats.DistinctOwners).Error; err != nil {
		return nil, wrapError("count owners", err)
	}
	if err := db.Model(&schema.NFT{}).Distinct("minter_address").Count(&stats.DistinctMinters).Error; err != nil {
		return nil, wrapError("count minters", err)
	}
	if err := db.Model(&schema.NFT{}).Where("minted_at >= ?", since.UTC()).Count(&stats.RecentMints).Error; err != nil {
		return nil, wrapError("count recent mints", err)
	}

	return &stats, nil
}

// Ping checks the database is reachable
func (s *pgStore) Ping(ctx context.Context) error {
	return wrapError("ping", s.db.WithContext(ctx).Exec("SELECT 1").Error)
}
