package metadata_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gowebpki/jcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/metadata"
	"github.com/feral-file/ff-mint-indexer/internal/mocks"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: false}); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

const maxBodySize = int64(1024)

// testFetcherMocks contains all the mocks needed for testing the fetcher
type testFetcherMocks struct {
	ctrl       *gomock.Controller
	httpClient *mocks.MockHTTPClient
	fetcher    metadata.Fetcher
}

func setupTest(t *testing.T, cfg metadata.Config) *testFetcherMocks {
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = maxBodySize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = time.Second
	}

	return &testFetcherMocks{
		ctrl:       ctrl,
		httpClient: httpClient,
		fetcher:    metadata.NewFetcher(httpClient, adapter.NewBase64(), adapter.NewJCS(), cfg),
	}
}

func tearDownTest(tm *testFetcherMocks) {
	tm.ctrl.Finish()
}

func expectedHash(t *testing.T, body string) string {
	canonical, err := jcs.Transform([]byte(body))
	require.NoError(t, err)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func TestFetcher_HTTP(t *testing.T) {
	tm := setupTest(t, metadata.Config{})
	defer tearDownTest(tm)

	body := `{"name":" Cat ","image":"https://x/7.png","description":"a cat","attributes":[{"trait_type":"Eyes","value":"green"},{"trait_type":"Lives","value":9},"junk"]}`
	tm.httpClient.EXPECT().
		GetBytes(gomock.Any(), "https://x/7.json", maxBodySize).
		Return([]byte(body), nil)

	doc, err := tm.fetcher.Fetch(context.Background(), "https://x/7.json")
	require.NoError(t, err)

	assert.Equal(t, "Cat", doc.Name)
	assert.Equal(t, "a cat", doc.Description)
	assert.Equal(t, "https://x/7.png", doc.Image)
	assert.Equal(t, []domain.Attribute{
		{TraitType: "Eyes", Value: "green"},
		{TraitType: "Lives", Value: float64(9)},
	}, doc.Attributes)
	assert.Equal(t, body, string(doc.Raw))
	assert.Equal(t, expectedHash(t, body), doc.Hash)
}

func TestFetcher_MissingFieldsStayEmpty(t *testing.T) {
	tm := setupTest(t, metadata.Config{})
	defer tearDownTest(tm)

	tm.httpClient.EXPECT().
		GetBytes(gomock.Any(), "https://x/8.json", maxBodySize).
		Return([]byte(`{"name":42,"image_url":"ipfs://QmImage"}`), nil)

	doc, err := tm.fetcher.Fetch(context.Background(), "https://x/8.json")
	require.NoError(t, err)

	assert.Empty(t, doc.Name)
	assert.Empty(t, doc.Description)
	assert.Equal(t, domain.DEFAULT_IPFS_GATEWAY+"/ipfs/QmImage", doc.Image)
	assert.Nil(t, doc.Attributes)
}

func TestFetcher_IPFSGateways(t *testing.T) {
	tm := setupTest(t, metadata.Config{IPFSGateways: []string{"https://g1.example", "https://g2.example/"}})
	defer tearDownTest(tm)

	tm.httpClient.EXPECT().
		GetBytes(gomock.Any(), "https://g1.example/ipfs/QmMeta/7.json", maxBodySize).
		Return(nil, errors.New("gateway timeout")).
		AnyTimes()
	tm.httpClient.EXPECT().
		GetBytes(gomock.Any(), "https://g2.example/ipfs/QmMeta/7.json", maxBodySize).
		Return([]byte(`{"name":"Cat","image":"ipfs://QmImage"}`), nil)

	// Gateway URLs are rewritten to the configured gateways
	doc, err := tm.fetcher.Fetch(context.Background(), "https://private.gateway/ipfs/QmMeta/7.json")
	require.NoError(t, err)
	assert.Equal(t, "Cat", doc.Name)
	assert.Equal(t, "https://g1.example/ipfs/QmImage", doc.Image)
}

func TestFetcher_IPFSAllGatewaysFail(t *testing.T) {
	tm := setupTest(t, metadata.Config{IPFSGateways: []string{"https://g1.example", "https://g2.example"}})
	defer tearDownTest(tm)

	tm.httpClient.EXPECT().GetBytes(gomock.Any(), gomock.Any(), maxBodySize).
		Return(nil, errors.New("not found")).Times(2)

	_, err := tm.fetcher.Fetch(context.Background(), "ipfs://QmMeta")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMetadataFetch))
	assert.Contains(t, err.Error(), "all IPFS gateways")
}

func TestFetcher_DataURI(t *testing.T) {
	tm := setupTest(t, metadata.Config{})
	defer tearDownTest(tm)

	tests := []struct {
		name string
		uri  string
	}{
		{name: "base64", uri: "data:application/json;base64,eyJuYW1lIjoiQ2F0In0="},
		{name: "percent-encoded", uri: "data:application/json,%7B%22name%22%3A%22Cat%22%7D"},
		{name: "plain", uri: `data:application/json,{"name":"Cat"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := tm.fetcher.Fetch(context.Background(), tt.uri)
			require.NoError(t, err)
			assert.Equal(t, "Cat", doc.Name)
		})
	}
}

func TestFetcher_StripsNUL(t *testing.T) {
	tm := setupTest(t, metadata.Config{})
	defer tearDownTest(tm)

	uri := `data:application/json,{"name":"Cat\u0000","description":"a\u0000b","image":"https://x/7.png\u0000",` +
		`"attributes":[{"trait_type":"colo\u0000r","value":"red\u0000"},{"trait_type":"tags","value":["x\u0000"]}]}`

	doc, err := tm.fetcher.Fetch(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, "Cat", doc.Name)
	assert.Equal(t, "ab", doc.Description)
	assert.Equal(t, "https://x/7.png", doc.Image)
	assert.Equal(t, []domain.Attribute{
		{TraitType: "color", Value: "red"},
		{TraitType: "tags", Value: []interface{}{"x"}},
	}, doc.Attributes)
	assert.NotEmpty(t, doc.Hash)
}

func TestFetcher_Errors(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		setupMocks func(tm *testFetcherMocks)
		unwrapsTo  error
	}{
		{
			name:      "empty uri",
			uri:       "",
			unwrapsTo: domain.ErrUnsupportedURI,
		},
		{
			name:      "unsupported scheme",
			uri:       "ar://tx",
			unwrapsTo: domain.ErrUnsupportedURI,
		},
		{
			name: "http failure",
			uri:  "https://x/1.json",
			setupMocks: func(tm *testFetcherMocks) {
				tm.httpClient.EXPECT().GetBytes(gomock.Any(), "https://x/1.json", maxBodySize).
					Return(nil, &adapter.HTTPStatusError{StatusCode: 404, URL: "https://x/1.json"})
			},
		},
		{
			name: "image instead of json",
			uri:  "https://x/1.png",
			setupMocks: func(tm *testFetcherMocks) {
				png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
				tm.httpClient.EXPECT().GetBytes(gomock.Any(), "https://x/1.png", maxBodySize).Return(png, nil)
			},
		},
		{
			name: "json array",
			uri:  "https://x/2.json",
			setupMocks: func(tm *testFetcherMocks) {
				tm.httpClient.EXPECT().GetBytes(gomock.Any(), "https://x/2.json", maxBodySize).Return([]byte(`[1,2]`), nil)
			},
		},
		{
			name:      "bad base64",
			uri:       "data:application/json;base64,***",
			unwrapsTo: domain.ErrMetadataFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm := setupTest(t, metadata.Config{})
			defer tearDownTest(tm)

			if tt.setupMocks != nil {
				tt.setupMocks(tm)
			}

			doc, err := tm.fetcher.Fetch(context.Background(), tt.uri)
			require.Error(t, err)
			assert.Nil(t, doc)

			var fetchErr *domain.MetadataFetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.uri, fetchErr.URI)
			assert.True(t, errors.Is(err, domain.ErrMetadataFetch))
			if tt.unwrapsTo != nil {
				assert.True(t, errors.Is(err, tt.unwrapsTo))
			}
		})
	}
}

func TestFetcher_Timeout(t *testing.T) {
	tm := setupTest(t, metadata.Config{Timeout: 20 * time.Millisecond})
	defer tearDownTest(tm)

	tm.httpClient.EXPECT().GetBytes(gomock.Any(), "https://slow/1.json", maxBodySize).
		DoAndReturn(func(ctx context.Context, _ string, _ int64) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	start := time.Now()
	_, err := tm.fetcher.Fetch(context.Background(), "https://slow/1.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetcher_RateLimited(t *testing.T) {
	tm := setupTest(t, metadata.Config{Timeout: 50 * time.Millisecond, RequestsPerSecond: 0.001, Burst: 1})
	defer tearDownTest(tm)

	tm.httpClient.EXPECT().GetBytes(gomock.Any(), "https://x/1.json", maxBodySize).
		Return([]byte(`{"name":"one"}`), nil).Times(1)

	_, err := tm.fetcher.Fetch(context.Background(), "https://x/1.json")
	require.NoError(t, err)

	// The next token is far beyond the fetch deadline
	_, err = tm.fetcher.Fetch(context.Background(), "https://x/1.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

type limiterFunc func(ctx context.Context) error

func (f limiterFunc) Wait(ctx context.Context) error { return f(ctx) }

func TestFetcher_SharedLimiter(t *testing.T) {
	var waits int
	limiter := limiterFunc(func(context.Context) error {
		waits++
		if waits > 1 {
			return errors.New("budget exhausted")
		}
		return nil
	})
	tm := setupTest(t, metadata.Config{Limiter: limiter})
	defer tearDownTest(tm)

	tm.httpClient.EXPECT().GetBytes(gomock.Any(), "https://x/2.json", maxBodySize).
		Return([]byte(`{"name":"two"}`), nil)

	doc, err := tm.fetcher.Fetch(context.Background(), "https://x/2.json")
	require.NoError(t, err)
	assert.Equal(t, "two", doc.Name)

	_, err = tm.fetcher.Fetch(context.Background(), "https://x/2.json")
	var fetchErr *domain.MetadataFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "budget exhausted")
}

func TestIsFetchable(t *testing.T) {
	assert.True(t, metadata.IsFetchable("https://x/1.json"))
	assert.True(t, metadata.IsFetchable("http://x/1.json"))
	assert.True(t, metadata.IsFetchable("ipfs://Qm"))
	assert.True(t, metadata.IsFetchable("data:application/json,{}"))
	assert.False(t, metadata.IsFetchable(""))
	assert.False(t, metadata.IsFetchable("ar://tx"))
	assert.False(t, metadata.IsFetchable("x/1.json"))
}
