package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
	"github.com/feral-file/ff-mint-indexer/internal/ratelimit"
)

// Config holds configuration for the metadata fetcher
type Config struct {
	// Timeout bounds a whole Fetch call, gateway fan-out included
	Timeout time.Duration
	// IPFSGateways are tried in parallel for ipfs:// locators, e.g. "https://ipfs.io"
	IPFSGateways []string
	// MaxBodySize caps the size of a fetched document in bytes
	MaxBodySize int64
	// RequestsPerSecond throttles outgoing HTTP requests (0 = unlimited)
	RequestsPerSecond float64
	Burst             int
	// Limiter overrides the local limiter built from RequestsPerSecond and Burst,
	// e.g. with a budget shared by every instance
	Limiter ratelimit.Limiter
}

// Fetcher retrieves the off-chain metadata document referenced by a token URI.
// Every failure is a *domain.MetadataFetchError; callers fall back, never fail the event.
//
//go:generate mockgen -source=fetcher.go -destination=../mocks/metadata_fetcher.go -package=mocks -mock_names=Fetcher=MockMetadataFetcher
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (*domain.MetadataDocument, error)
}

type fetcher struct {
	httpClient adapter.HTTPClient
	base64     adapter.Base64
	jcs        adapter.JCS
	limiter    ratelimit.Limiter
	config     Config
}

// NewFetcher creates a metadata fetcher
func NewFetcher(httpClient adapter.HTTPClient, base64 adapter.Base64, jcs adapter.JCS, config Config) Fetcher {
	limiter := config.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLocalLimiter(config.RequestsPerSecond, config.Burst)
	}
	if len(config.IPFSGateways) == 0 {
		config.IPFSGateways = []string{domain.DEFAULT_IPFS_GATEWAY}
	}

	return &fetcher{
		httpClient: httpClient,
		base64:     base64,
		jcs:        jcs,
		limiter:    limiter,
		config:     config,
	}
}

// IsFetchable reports whether the URI uses a scheme the fetcher can retrieve
func IsFetchable(uri string) bool {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return true
	case strings.HasPrefix(uri, "ipfs://"), strings.HasPrefix(uri, "data:"):
		return true
	default:
		return false
	}
}

func (f *fetcher) Fetch(ctx context.Context, uri string) (*domain.MetadataDocument, error) {
	if !IsFetchable(uri) {
		return nil, &domain.MetadataFetchError{URI: uri, Err: domain.ErrUnsupportedURI}
	}

	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	body, err := f.fetchBody(ctx, processMetadataURI(uri))
	if err != nil {
		return nil, &domain.MetadataFetchError{URI: uri, Err: err}
	}

	doc, err := parseDocument(body, f.config.IPFSGateways[0])
	if err != nil {
		return nil, &domain.MetadataFetchError{URI: uri, Err: err}
	}

	doc.Hash, err = hashDocument(f.jcs, body)
	if err != nil {
		// The document itself is usable, only the change-detection hash is lost
		logger.WarnCtx(ctx, "failed to hash metadata", zap.String("uri", uri), zap.Error(err))
	}

	return doc, nil
}

// processMetadataURI turns gateway URLs (https://host/ipfs/<cid>) into ipfs:// so the configured gateways are used
func processMetadataURI(uri string) string {
	if strings.HasPrefix(uri, "http") && strings.Contains(uri, "/ipfs/") {
		parts := strings.SplitN(uri, "/ipfs/", 2)
		if parts[1] != "" {
			return "ipfs://" + parts[1]
		}
	}
	return uri
}

// fetchBody retrieves the raw document bytes, handling different protocols
func (f *fetcher) fetchBody(ctx context.Context, uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		return f.parseDataURI(uri)
	case strings.HasPrefix(uri, "ipfs://"):
		return f.fetchFromIPFS(ctx, strings.TrimPrefix(uri, "ipfs://"))
	default:
		return f.fetchFromHTTP(ctx, uri)
	}
}

// parseDataURI decodes data:application/json;base64,<data> and data:application/json,<data>
func (f *fetcher) parseDataURI(uri string) ([]byte, error) {
	parts := strings.SplitN(uri[len("data:"):], ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid data URI format")
	}

	mediaType, data := parts[0], parts[1]
	if strings.HasSuffix(mediaType, ";base64") {
		decoded, err := f.base64.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		return decoded, nil
	}

	unescaped, err := url.PathUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unescape data URI: %w", err)
	}
	return []byte(unescaped), nil
}

// fetchFromIPFS tries every configured gateway in parallel and returns the first successful body
func (f *fetcher) fetchFromIPFS(ctx context.Context, cid string) ([]byte, error) {
	if cid == "" {
		return nil, fmt.Errorf("empty IPFS path")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		body []byte
		err  error
	}

	gateways := f.config.IPFSGateways
	results := make(chan result, len(gateways))
	for _, gateway := range gateways {
		go func(gw string) {
			body, err := f.fetchFromHTTP(ctx, fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(gw, "/"), cid))
			results <- result{body: body, err: err}
		}(gateway)
	}

	var errs []error
	for range gateways {
		res := <-results
		if res.err == nil {
			return res.body, nil
		}
		errs = append(errs, res.err)
	}

	return nil, fmt.Errorf("failed to fetch from all IPFS gateways: %w", errors.Join(errs...))
}

func (f *fetcher) fetchFromHTTP(ctx context.Context, uri string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := f.httpClient.GetBytes(ctx, uri, f.config.MaxBodySize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return body, nil
}

// parseDocument decodes a document following the OpenSea metadata standard.
// Fields with an unexpected type are treated as absent.
func parseDocument(body []byte, ipfsGateway string) (*domain.MetadataDocument, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("document is not JSON (detected %s)", mimetype.Detect(body).String())
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}

	// Strings go to text and jsonb columns verbatim, which refuse NUL
	raw = domain.SanitizeValue(raw).(map[string]interface{})

	doc := &domain.MetadataDocument{Raw: body}
	if n, ok := raw["name"].(string); ok {
		doc.Name = strings.TrimSpace(n)
	}
	if d, ok := raw["description"].(string); ok {
		doc.Description = d
	}
	if i, ok := raw["image"].(string); ok && i != "" {
		doc.Image = uriToGateway(i, ipfsGateway)
	} else if i, ok := raw["image_url"].(string); ok {
		doc.Image = uriToGateway(i, ipfsGateway)
	}
	if attrs, ok := raw["attributes"].([]interface{}); ok {
		for _, a := range attrs {
			m, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			traitType, _ := m["trait_type"].(string)
			if traitType == "" && m["value"] == nil {
				continue
			}
			doc.Attributes = append(doc.Attributes, domain.Attribute{TraitType: traitType, Value: m["value"]})
		}
	}

	return doc, nil
}

// hashDocument returns the hex sha256 of the JCS-canonicalized document
func hashDocument(jcs adapter.JCS, body []byte) (string, error) {
	canonical, err := jcs.Transform(body)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize metadata: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// uriToGateway converts an ipfs:// URI to a gateway URL
func uriToGateway(uri, gateway string) string {
	if after, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(gateway, "/"), after)
	}
	return uri
}
