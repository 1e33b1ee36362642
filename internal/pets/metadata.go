package pets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultGateway serves ipfs:// URIs over HTTP.
const DefaultGateway = "https://ipfs.io/ipfs/"

const (
	metadataTTL      = 30 * time.Minute
	metadataCleanup  = 10 * time.Minute
	maxMetadataBytes = 1 << 20
)

// ErrUnsupportedURI is returned for token URIs with a scheme we cannot fetch.
var ErrUnsupportedURI = errors.New("unsupported token URI")

// Metadata is the ERC-721 metadata JSON document.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// Attribute is one trait of the metadata document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// MetadataResolver loads token metadata from data:, ipfs:// and http(s) URIs.
// Documents are cached per URI.
type MetadataResolver struct {
	gateway string
	client  *http.Client
	cache   *cache.Cache
	log     *zap.Logger
}

// NewMetadataResolver returns a resolver using gateway for ipfs:// URIs.
// client may be nil.
func NewMetadataResolver(gateway string, client *http.Client, log *zap.Logger) *MetadataResolver {
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MetadataResolver{
		gateway: gateway,
		client:  client,
		cache:   cache.New(metadataTTL, metadataCleanup),
		log:     log.Named("metadata"),
	}
}

// GatewayURL rewrites ipfs:// URIs to the HTTP gateway. Other URIs are
// returned unchanged.
func (r *MetadataResolver) GatewayURL(uri string) string {
	rest, ok := strings.CutPrefix(uri, "ipfs://")
	if !ok {
		return uri
	}
	rest = strings.TrimPrefix(rest, "ipfs/")
	return r.gateway + rest
}

// Resolve returns the metadata document uri points to.
func (r *MetadataResolver) Resolve(ctx context.Context, uri string) (Metadata, error) {
	if v, ok := r.cache.Get(uri); ok {
		return v.(Metadata), nil
	}

	var (
		raw []byte
		err error
	)
	switch {
	case strings.HasPrefix(uri, "data:"):
		raw, err = decodeDataURI(uri)
	case strings.HasPrefix(uri, "ipfs://"), strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		raw, err = r.fetch(ctx, r.GatewayURL(uri))
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
	}
	if err != nil {
		return Metadata{}, err
	}

	var md Metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return Metadata{}, fmt.Errorf("parsing metadata: %w", err)
	}
	md.Image = r.GatewayURL(md.Image)
	r.cache.Set(uri, md, cache.DefaultExpiration)
	return md, nil
}

// ImageURI returns the image of the document at uri, or "" when it cannot
// be resolved.
func (r *MetadataResolver) ImageURI(ctx context.Context, uri string) string {
	if uri == "" {
		return ""
	}
	md, err := r.Resolve(ctx, uri)
	if err != nil {
		r.log.Debug("metadata unavailable", zap.String("uri", uri), zap.Error(err))
		return ""
	}
	return md.Image
}

func (r *MetadataResolver) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching metadata: %s returned %d", target, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxMetadataBytes))
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrUnsupportedURI)
	}
	if strings.HasSuffix(header, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding data URI: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data URI: %w", err)
	}
	return []byte(s), nil
}
