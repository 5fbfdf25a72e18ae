package wsbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/qrlwallet/go-bridge/device"
	"github.com/stretchr/testify/require"
)

type handler func(req map[string]any) (result any, errMsg string, reply bool)

func newBridgeServer(t *testing.T, h handler) (*httptest.Server, string) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// nolint
		defer conn.Close()
		for {
			var req map[string]any
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			result, errMsg, reply := h(req)
			if !reply {
				continue
			}
			// stale reply first, the client must skip it
			// nolint
			conn.WriteJSON(map[string]any{"id": "stale", "result": map[string]any{}})
			resp := map[string]any{"id": req["id"]}
			if errMsg != "" {
				resp["error"] = errMsg
			} else {
				resp["result"] = result
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGetAddress(t *testing.T) {
	srv, url := newBridgeServer(t, func(req map[string]any) (any, string, bool) {
		require.Equal(t, "getAddress", req["method"])
		require.Equal(t, "dev1", req["device"])
		params := req["params"].(map[string]any)
		if params["path"] == "44'/238'/9'/0/0" {
			return nil, "denied by the user", true
		}
		require.Equal(t, []any{
			float64(0x8000002c), float64(0x800000ee), float64(0x80000000), float64(0), float64(0),
		}, params["indexes"])
		return map[string]any{"address": "Qaddr"}, "", true
	})
	defer srv.Close()

	provider, err := NewProvider(url)
	require.NoError(t, err)
	dev, err := provider.Device("dev1")
	require.NoError(t, err)

	addr, err := dev.GetAddress(context.Background(), "44'/238'/0'/0/0")
	require.NoError(t, err)
	require.Equal(t, "Qaddr", addr)

	_, err = dev.GetAddress(context.Background(), "44'/238'/9'/0/0")
	var devErr *device.Error
	require.ErrorAs(t, err, &devErr)
	require.Equal(t, "getAddress", devErr.Op)
	require.EqualError(t, devErr.Err, "denied by the user")

	_, err = dev.GetAddress(context.Background(), "44'/x'/0'")
	require.ErrorAs(t, err, &devErr)
}

func TestSignTransfer(t *testing.T) {
	srv, url := newBridgeServer(t, func(req map[string]any) (any, string, bool) {
		require.Equal(t, "signTransfer", req["method"])
		params := req["params"].(map[string]any)
		require.Equal(t, "0000000000000001", params["fee"])
		require.Equal(t, []any{"0000000000000102"}, params["amounts"])
		require.Equal(t, []any{"bbbb"}, params["addressesTo"])
		require.Equal(t, "aaaa", params["sourceAddress"])
		require.EqualValues(t, 3, params["otsIndex"])
		return device.Signature{PublicKey: "pk", Signature: "sig"}, "", true
	})
	defer srv.Close()

	provider, err := NewProvider(url)
	require.NoError(t, err)
	dev, err := provider.Device("dev1")
	require.NoError(t, err)

	ots := uint32(3)
	sig, err := dev.SignTransfer(context.Background(), "44'/238'/0'/0/0", device.TransferPayload{
		SourceAddress: []byte{0xaa, 0xaa},
		Fee:           []byte{0, 0, 0, 0, 0, 0, 0, 1},
		AddressesTo:   [][]byte{{0xbb, 0xbb}},
		Amounts:       [][]byte{{0, 0, 0, 0, 0, 0, 1, 2}},
		OTSIndex:      &ots,
	})
	require.NoError(t, err)
	require.Equal(t, "pk", sig.PublicKey)
	require.Equal(t, "sig", sig.Signature)
}

func TestCancelWhileWaiting(t *testing.T) {
	received := make(chan struct{}, 1)
	srv, url := newBridgeServer(t, func(req map[string]any) (any, string, bool) {
		received <- struct{}{}
		return nil, "", false
	})
	defer srv.Close()

	provider, err := NewProvider(url)
	require.NoError(t, err)
	dev, err := provider.Device("dev1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-received
		cancel()
	}()

	_, err = dev.SignTransfer(ctx, "44'/238'/0'/0/0", device.TransferPayload{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRequestTimeout(t *testing.T) {
	srv, url := newBridgeServer(t, func(req map[string]any) (any, string, bool) {
		return nil, "", false
	})
	defer srv.Close()

	provider, err := NewProvider(url, WithRequestTimeout(50*time.Millisecond))
	require.NoError(t, err)
	dev, err := provider.Device("dev1")
	require.NoError(t, err)

	_, err = dev.GetAddress(context.Background(), "44'/238'/0'/0/0")
	require.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider("http://localhost:1234")
	require.Error(t, err)

	provider, err := NewProvider("ws://localhost:1234")
	require.NoError(t, err)
	_, err = provider.Device("")
	require.Error(t, err)
}

func TestResponseDecoding(t *testing.T) {
	var resp response
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","error":"boom"}`), &resp))
	require.Equal(t, "boom", resp.Error)
	require.Empty(t, resp.Result)
}
