// Package qrlapi is an HTTP/JSON client of the QRL public API.
//
// Every reply is wrapped in an envelope:
//
//	{"error": 0, "errorMessage": "", "data": {...}}
//
// A non-zero error code is a rejection by the node. It is returned as a Go
// error for reads and reported through explorer.BroadcastResult for
// broadcasts.
package qrlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/qrlwallet/go-bridge/explorer"
	"github.com/qrlwallet/go-bridge/internal/utils"
	"github.com/qrlwallet/go-bridge/types"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

const defaultTimeout = 10 * time.Second

var errNotFound = errors.New("not found")

type apiSvc struct {
	baseUrl     string
	httpClient  *http.Client
	timeout     time.Duration
	withBreaker bool
	rps         int
	cb          *gobreaker.CircuitBreaker
	limiter     ratelimit.Limiter
	retry       utils.RetryPolicy
}

type envelope struct {
	Error        int             `json:"error"`
	ErrorMessage string          `json:"errorMessage"`
	Data         json.RawMessage `json:"data"`
}

type heightData struct {
	Height json.Number `json:"height"`
}

type feeData struct {
	Fee json.Number `json:"fee"`
}

type broadcastData struct {
	TransactionHash string `json:"transactionHash"`
}

func NewExplorer(baseUrl string, opts ...Option) (explorer.Explorer, error) {
	if len(baseUrl) == 0 {
		return nil, fmt.Errorf("missing base url")
	}
	if _, err := url.ParseRequestURI(baseUrl); err != nil {
		return nil, fmt.Errorf("invalid base url: %s", err)
	}

	svc := &apiSvc{
		baseUrl: baseUrl,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.httpClient == nil {
		svc.httpClient = &http.Client{Timeout: svc.timeout}
	}
	if svc.withBreaker {
		svc.cb = utils.NewCircuitBreaker("qrlapi")
	}
	svc.limiter = utils.NewRateLimiter(svc.rps)

	return svc, nil
}

func (a *apiSvc) BaseUrl() string {
	return a.baseUrl
}

func (a *apiSvc) GetHeight(ctx context.Context) (uint64, error) {
	var data heightData
	if err := a.get(ctx, "height", &data); err != nil {
		return 0, fmt.Errorf("failed to get height: %w", err)
	}

	height, err := data.Height.Int64()
	if err != nil {
		return 0, fmt.Errorf("invalid height %q: %w", data.Height, err)
	}
	return safecast.ToUint64(height)
}

func (a *apiSvc) GetAddressState(
	ctx context.Context, address string,
) (*explorer.AddressState, error) {
	var state explorer.AddressState
	if err := a.get(ctx, "address/"+url.PathEscape(address), &state); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, explorer.ErrAddressNotFound
		}
		return nil, fmt.Errorf("failed to get address state: %w", err)
	}
	if state.Address == "" {
		state.Address = address
	}
	return &state, nil
}

func (a *apiSvc) GetEstimatedNetworkFee(ctx context.Context) (string, error) {
	var data feeData
	if err := a.get(ctx, "fee", &data); err != nil {
		return "", fmt.Errorf("failed to get fee: %w", err)
	}
	return data.Fee.String(), nil
}

func (a *apiSvc) BroadcastTransferTx(
	ctx context.Context, tx types.TransferTx,
) (*explorer.BroadcastResult, error) {
	if !tx.IsSigned() {
		return nil, fmt.Errorf("transfer is not signed")
	}

	body := bytes.NewBuffer(nil)
	if err := json.NewEncoder(body).Encode(tx); err != nil {
		return nil, err
	}

	env, err := a.do(ctx, http.MethodPost, "broadcast/transfer", body)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast: %w", err)
	}

	result := &explorer.BroadcastResult{
		Error:        env.Error,
		ErrorMessage: env.ErrorMessage,
	}
	if env.Error != 0 {
		return result, nil
	}

	var data broadcastData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("invalid broadcast reply: %w", err)
	}
	result.TransactionHash = data.TransactionHash
	return result, nil
}

// get is retried on transient failures, broadcasts never are.
func (a *apiSvc) get(ctx context.Context, path string, out any) error {
	var env *envelope
	err := a.retry.Do(ctx, func() error {
		var err error
		env, err = a.do(ctx, http.MethodGet, path, nil)
		return err
	})
	if err != nil {
		return err
	}
	if env.Error != 0 {
		return &explorer.RejectedError{Code: env.Error, Message: env.ErrorMessage}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("invalid reply: %w", err)
	}
	return nil
}

func (a *apiSvc) do(
	ctx context.Context, method, path string, body io.Reader,
) (*envelope, error) {
	endpoint, err := url.JoinPath(a.baseUrl, path)
	if err != nil {
		return nil, err
	}

	a.limiter.Take()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debugf("qrlapi: %s %s", method, endpoint)

	resp, err := a.send(req)
	if err != nil {
		return nil, err
	}
	// nolint:all
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &utils.StatusError{
			Code: resp.StatusCode, Status: resp.Status, Body: string(buf),
		}
	}

	env := &envelope{}
	if err := json.Unmarshal(buf, env); err != nil {
		return nil, fmt.Errorf("invalid reply: %w", err)
	}
	return env, nil
}

// send only counts transport errors and 5xx replies as breaker failures.
func (a *apiSvc) send(req *http.Request) (*http.Response, error) {
	if a.cb == nil {
		return a.httpClient.Do(req)
	}

	res, err := a.cb.Execute(func() (interface{}, error) {
		resp, err := a.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// nolint:all
			defer resp.Body.Close()
			// nolint
			buf, _ := io.ReadAll(resp.Body)
			return nil, &utils.StatusError{
				Code: resp.StatusCode, Status: resp.Status, Body: string(buf),
			}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*http.Response), nil
}
