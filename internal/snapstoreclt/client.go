// Package snapstoreclt provides a client for the snap store info API.
package snapstoreclt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/simplesurance/snapbump/internal/logfields"
	"github.com/simplesurance/snapbump/internal/snaperr"
)

const DefaultHTTPClientTimeout = time.Minute

const DefaultBaseURL = "https://api.snapcraft.io"

const loggerName = "snapstore_client"

// snapDeviceSeries is sent as Snap-Device-Series header, the store rejects
// requests without it.
const snapDeviceSeries = "16"

// maxErrBodySize limits how much of an error response body is kept for
// error messages.
const maxErrBodySize = 1024

var (
	// ErrSnapNotFound is returned when the store does not know the snap.
	ErrSnapNotFound = errors.New("snap not found in store")
	// ErrChannelNotFound is returned when the snap exists but has no
	// published revision for the requested channel and architecture.
	ErrChannelNotFound = errors.New("channel not found in store")
)

// Client queries the snap store for published snap revisions.
// Methods return a snaperr.RetryableError when an operation failed
// temporarily and can be retried, e.g. on server errors or when the store
// throttles the client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

type Option func(*Client)

// WithBaseURL overrides the store API URL, used in tests.
func WithBaseURL(baseURL string) Option {
	return func(clt *Client) {
		clt.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(clt *Client) {
		clt.httpClient = httpClient
	}
}

// New returns a new snap store api client.
func New(opts ...Option) *Client {
	clt := Client{
		httpClient: &http.Client{Timeout: DefaultHTTPClientTimeout},
		baseURL:    DefaultBaseURL,
		logger:     zap.L().Named(loggerName),
	}

	for _, opt := range opts {
		opt(&clt)
	}

	return &clt
}

// RevisionInfo describes the newest published revision of a snap on one
// channel for one architecture.
type RevisionInfo struct {
	// Revision is the numeric store revision, formatted as string.
	Revision string
	// ChannelName is the full channel name the store reported, e.g.
	// "1.32-classic/stable".
	ChannelName string
}

type storeChannel struct {
	Architecture string `json:"architecture"`
	Name         string `json:"name"`
	Risk         string `json:"risk"`
	Track        string `json:"track"`
}

type storeChannelMapEntry struct {
	Channel  storeChannel `json:"channel"`
	Revision int          `json:"revision"`
}

type storeInfoResponse struct {
	ChannelMap []*storeChannelMapEntry `json:"channel-map"`
}

// Revision returns the newest revision of the snap published for the given
// architecture on the given channel.
// If the snap is unknown to the store, the returned error matches
// ErrSnapNotFound. If the snap exists but nothing is published for the
// channel and architecture combination, it matches ErrChannelNotFound.
// Both conditions are permanent, retrying them is pointless.
func (clt *Client) Revision(ctx context.Context, snap, arch string, channel Channel) (*RevisionInfo, error) {
	reqURL := fmt.Sprintf(
		"%s/v2/snaps/info/%s?%s",
		clt.baseURL,
		url.PathEscape(snap),
		url.Values{
			"architecture": []string{arch},
			"fields":       []string{"revision"},
		}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Snap-Device-Series", snapDeviceSeries)
	req.Header.Set("Accept", "application/json")

	resp, err := clt.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, clt.wrapResponseError(resp, snap)
	}

	var info storeInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decoding store response for snap %q failed: %w", snap, err)
	}

	for _, entry := range info.ChannelMap {
		if entry.Channel.Architecture != arch {
			continue
		}

		if entry.Channel.Risk != channel.Risk || entry.Channel.Track != channel.Track {
			continue
		}

		if entry.Revision <= 0 {
			return nil, fmt.Errorf(
				"store returned invalid revision %d for snap %q, channel %s, architecture %s",
				entry.Revision, snap, channel, arch,
			)
		}

		result := RevisionInfo{
			Revision:    strconv.Itoa(entry.Revision),
			ChannelName: entry.Channel.Name,
		}

		clt.logger.Debug(
			"revision retrieved from store",
			logfields.Event("snapstore_revision_retrieved"),
			logfields.Snap(snap),
			logfields.Architecture(arch),
			logfields.Track(channel.Track),
			logfields.Channel(result.ChannelName),
			logfields.Revision(result.Revision),
		)

		return &result, nil
	}

	return nil, fmt.Errorf(
		"%w: snap %q has no published revision for channel %s, architecture %s",
		ErrChannelNotFound, snap, channel, arch,
	)
}

func (clt *Client) wrapResponseError(resp *http.Response, snap string) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if readErr != nil {
		body = []byte(fmt.Sprintf("<reading body failed: %s>", readErr))
	}

	err := fmt.Errorf("store request failed with status %d: %q", resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %q: %s", ErrSnapNotFound, snap, string(body))

	case resp.StatusCode == http.StatusTooManyRequests:
		after := retryAfterTime(resp)

		clt.logger.Info(
			"store throttled the request",
			logfields.Event("snapstore_request_throttled"),
			logfields.Snap(snap),
			zap.Time("retry_after", after),
		)

		return snaperr.NewRetryableError(err, after)

	case resp.StatusCode >= 500 && resp.StatusCode < 600:
		return snaperr.NewRetryableAnytimeError(err)
	}

	return err
}

// wrapTransportError marks connection level failures as retryable.
// Context cancellation is passed through unchanged, retrying it is
// pointless.
func wrapTransportError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return snaperr.NewRetryableAnytimeError(err)
}

func retryAfterTime(resp *http.Response) time.Time {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return time.Time{}
	}

	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return time.Time{}
	}

	return time.Now().Add(time.Duration(secs) * time.Second)
}
