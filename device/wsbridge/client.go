// Package wsbridge talks to a local hardware-device bridge daemon over a
// websocket. Requests are JSON messages correlated by id:
//
//	-> {"id": "...", "device": "...", "method": "getAddress", "params": {"path": "...", "indexes": [...]}}
//	<- {"id": "...", "result": {"address": "Q..."}}
//	<- {"id": "...", "error": "denied by the user"}
//
// One request is in flight at a time per daemon connection.
package wsbridge

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qrlwallet/go-bridge/derivation"
	"github.com/qrlwallet/go-bridge/device"
	log "github.com/sirupsen/logrus"
)

const (
	methodGetAddress   = "getAddress"
	methodSignTransfer = "signTransfer"

	defaultRequestTimeout = 5 * time.Minute
)

type provider struct {
	url            string
	dialer         *websocket.Dialer
	requestTimeout time.Duration

	mu   *sync.Mutex
	conn *websocket.Conn
}

type request struct {
	ID     string `json:"id"`
	Device string `json:"device"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Indexes is the path in BIP-32 child index form, hardened components
// included, for daemons that do not parse textual paths.
type getAddressParams struct {
	Path    string   `json:"path"`
	Indexes []uint32 `json:"indexes"`
}

type getAddressResult struct {
	Address string `json:"address"`
}

type signTransferParams struct {
	Path          string   `json:"path"`
	Indexes       []uint32 `json:"indexes"`
	SourceAddress string   `json:"sourceAddress"`
	Fee           string   `json:"fee"`
	AddressesTo   []string `json:"addressesTo"`
	Amounts       []string `json:"amounts"`
	OTSIndex      *uint32  `json:"otsIndex,omitempty"`
}

// NewProvider returns a device provider backed by the bridge daemon at
// bridgeUrl (ws:// or wss://). The connection is dialed on first use.
func NewProvider(bridgeUrl string, opts ...Option) (device.Provider, error) {
	u, err := url.Parse(bridgeUrl)
	if err != nil {
		return nil, fmt.Errorf("invalid device bridge url: %s", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid device bridge url: unsupported scheme %q", u.Scheme)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	p := &provider{
		url:            bridgeUrl,
		dialer:         &dialer,
		requestTimeout: defaultRequestTimeout,
		mu:             &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *provider) Device(deviceID string) (device.Device, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("missing device id")
	}
	return &wsDevice{provider: p, id: deviceID}, nil
}

// Close drops the daemon connection, the next request dials again.
func (p *provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetConn()
}

type wsDevice struct {
	provider *provider
	id       string
}

func (d *wsDevice) GetAddress(ctx context.Context, path string) (string, error) {
	indexes, err := derivation.ParsePath(path)
	if err != nil {
		return "", &device.Error{Op: methodGetAddress, Err: err}
	}

	var result getAddressResult
	err = d.provider.call(ctx, request{
		Device: d.id,
		Method: methodGetAddress,
		Params: getAddressParams{Path: path, Indexes: indexes},
	}, &result)
	if err != nil {
		return "", &device.Error{Op: methodGetAddress, Err: err}
	}
	if result.Address == "" {
		return "", &device.Error{Op: methodGetAddress, Err: fmt.Errorf("empty address")}
	}
	return result.Address, nil
}

func (d *wsDevice) SignTransfer(
	ctx context.Context, path string, payload device.TransferPayload,
) (*device.Signature, error) {
	indexes, err := derivation.ParsePath(path)
	if err != nil {
		return nil, &device.Error{Op: methodSignTransfer, Err: err}
	}

	params := signTransferParams{
		Path:          path,
		Indexes:       indexes,
		SourceAddress: hex.EncodeToString(payload.SourceAddress),
		Fee:           hex.EncodeToString(payload.Fee),
		AddressesTo:   make([]string, 0, len(payload.AddressesTo)),
		Amounts:       make([]string, 0, len(payload.Amounts)),
		OTSIndex:      payload.OTSIndex,
	}
	for _, addr := range payload.AddressesTo {
		params.AddressesTo = append(params.AddressesTo, hex.EncodeToString(addr))
	}
	for _, amount := range payload.Amounts {
		params.Amounts = append(params.Amounts, hex.EncodeToString(amount))
	}

	var sig device.Signature
	err = d.provider.call(ctx, request{
		Device: d.id,
		Method: methodSignTransfer,
		Params: params,
	}, &sig)
	if err != nil {
		return nil, &device.Error{Op: methodSignTransfer, Err: err}
	}
	if sig.PublicKey == "" || sig.Signature == "" {
		return nil, &device.Error{Op: methodSignTransfer, Err: fmt.Errorf("incomplete signature")}
	}
	return &sig, nil
}

func (p *provider) call(ctx context.Context, req request, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := p.getConn(ctx)
	if err != nil {
		return err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(p.requestTimeout)
	}
	// nolint
	conn.SetWriteDeadline(deadline)
	// nolint
	conn.SetReadDeadline(deadline)

	// unblock the read as soon as the caller gives up
	stop := context.AfterFunc(ctx, func() {
		// nolint
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	req.ID = uuid.New().String()
	log.Debugf("wsbridge: %s %s on device %s", req.ID, req.Method, req.Device)

	if err := conn.WriteJSON(req); err != nil {
		// nolint
		p.resetConn()
		return fmt.Errorf("failed to send request: %w", err)
	}

	for {
		var resp response
		if err := conn.ReadJSON(&resp); err != nil {
			// nolint
			p.resetConn()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("failed to read response: %w", err)
		}
		if resp.ID != req.ID {
			log.Debugf("wsbridge: dropping reply to stale request %s", resp.ID)
			continue
		}
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
		return nil
	}
}

func (p *provider) getConn(ctx context.Context) (*websocket.Conn, error) {
	if p.conn != nil {
		return p.conn, nil
	}
	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device bridge: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *provider) resetConn() error {
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}
