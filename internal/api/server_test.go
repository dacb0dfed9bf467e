package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"liquidationRouter/internal/amm"
	"liquidationRouter/internal/metrics"
	"liquidationRouter/internal/storage/memory"
)

const (
	testSecret = "test-secret-0123456789abcdef"
	testIssuer = "router-test"
	testNow    = 1_700_000_000
)

var (
	adminAddr    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	userAddr     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	protocolAddr = common.HexToAddress("0x0000000000000000000000000000000000000aaa")
	tokenOutAddr = "0x0000000000000000000000000000000000000c0c"
)

type fixedClock uint64

func (c fixedClock) Now(context.Context) (uint64, error) {
	return uint64(c), nil
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	engine := amm.NewEngine(amm.Config{}, memory.NewStore(), fixedClock(testNow), nil)
	srv := NewServer(Config{
		Auth:           AuthConfig{HMACSecret: testSecret, Issuer: testIssuer},
		RequestTimeout: time.Second,
	}, engine, metrics.New("test"), nil, nil)
	return &testServer{t: t, handler: srv.Handler()}
}

func (s *testServer) do(method, path string, caller *common.Address, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller != nil {
		token, err := IssueToken(testSecret, testIssuer, *caller, time.Minute)
		if err != nil {
			s.t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) expect(rec *httptest.ResponseRecorder, status int, kind string) {
	s.t.Helper()
	if rec.Code != status {
		s.t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	if kind == "" {
		return
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		s.t.Fatalf("decode error body: %v", err)
	}
	if resp.Kind != kind {
		s.t.Fatalf("kind = %q, want %q", resp.Kind, kind)
	}
}

func protocolBody() string {
	return `{
		"address": "` + protocolAddr.Hex() + `",
		"name": "Test AMM",
		"enabled": true,
		"fee_tier_bps": 30,
		"min_swap_amount": "1000",
		"max_swap_amount": "1000000000",
		"supported_pairs": [{"token_in": "native", "token_out": "` + tokenOutAddr + `", "pool": "0x0000000000000000000000000000000000000b0b"}]
	}`
}

func (s *testServer) setup() {
	s.t.Helper()
	s.expect(s.do(http.MethodPost, "/v1/settings/init", &adminAddr,
		`{"default_slippage_bps": 100, "max_slippage_bps": 1000, "auto_swap_threshold": "10000"}`), http.StatusOK, "")
	s.expect(s.do(http.MethodPost, "/v1/protocols", &adminAddr, protocolBody()), http.StatusCreated, "")
}

func swapBody(amount string, slippage int) string {
	b, _ := json.Marshal(map[string]any{
		"protocol":               protocolAddr.Hex(),
		"token_in":               "native",
		"token_out":              tokenOutAddr,
		"amount_in":              amount,
		"min_amount_out":         "0",
		"slippage_tolerance_bps": slippage,
		"deadline":               testNow + 3600,
	})
	return string(b)
}

func TestSwapFlow(t *testing.T) {
	s := newTestServer(t)
	s.setup()

	rec := s.do(http.MethodPost, "/v1/swaps", &userAddr, swapBody("15000", 100))
	s.expect(rec, http.StatusOK, "")
	var out struct {
		AmountOut string `json:"amount_out"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || out.AmountOut != "14850" {
		t.Fatalf("amount out = %q err=%v", out.AmountOut, err)
	}

	s.expect(s.do(http.MethodPost, "/v1/swaps", &userAddr, swapBody("15000", 1500)), http.StatusUnprocessableEntity, "SlippageTooHigh")
	s.expect(s.do(http.MethodPost, "/v1/swaps", &userAddr, swapBody("0", 100)), http.StatusBadRequest, "InvalidAmount")

	rec = s.do(http.MethodGet, "/v1/swaps?user="+userAddr.Hex(), nil, nil)
	s.expect(rec, http.StatusOK, "")
	var history historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Swaps) != 1 || history.Swaps[0].AmountOut.Uint64() != 14_850 {
		t.Fatalf("unexpected history: %+v", history.Swaps)
	}
}

func TestAutoSwapAndRoutes(t *testing.T) {
	s := newTestServer(t)
	s.setup()

	body := `{"token_out": "` + tokenOutAddr + `", "amount": "8000"}`
	s.expect(s.do(http.MethodPost, "/v1/liquidations/auto", &userAddr, body), http.StatusUnprocessableEntity, "BelowLiquidationThreshold")

	body = `{"token_out": "` + tokenOutAddr + `", "amount": "15000"}`
	s.expect(s.do(http.MethodPost, "/v1/liquidations/auto", &userAddr, body), http.StatusOK, "")

	rec := s.do(http.MethodGet, "/v1/routes?token_in=native&token_out="+tokenOutAddr, nil, nil)
	s.expect(rec, http.StatusOK, "")
	var route routeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &route); err != nil || route.Protocol != protocolAddr {
		t.Fatalf("route = %s err=%v", route.Protocol.Hex(), err)
	}
	s.expect(s.do(http.MethodGet, "/v1/routes?token_in="+tokenOutAddr+"&token_out=native", nil, nil), http.StatusNotFound, "NoProtocolAvailable")

	s.expect(s.do(http.MethodPost, "/v1/protocols/"+protocolAddr.Hex()+"/disable", &adminAddr, nil), http.StatusNoContent, "")
	s.expect(s.do(http.MethodPost, "/v1/liquidations/auto", &userAddr, body), http.StatusNotFound, "NoProtocolAvailable")
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	s.expect(s.do(http.MethodGet, "/v1/settings", nil, nil), http.StatusConflict, "NotInitialized")
	s.setup()
	s.expect(s.do(http.MethodPost, "/v1/settings/init", &userAddr,
		`{"default_slippage_bps": 1, "max_slippage_bps": 2}`), http.StatusConflict, "AlreadyInitialized")

	update := `{"default_slippage_bps": 100, "max_slippage_bps": 1000, "swap_enabled": false, "liquidity_enabled": true, "auto_swap_threshold": "10000"}`
	s.expect(s.do(http.MethodPut, "/v1/settings", &userAddr, update), http.StatusForbidden, "Unauthorized")
	s.expect(s.do(http.MethodPut, "/v1/settings", &adminAddr, update), http.StatusOK, "")
	s.expect(s.do(http.MethodPost, "/v1/swaps", &userAddr, swapBody("15000", 100)), http.StatusServiceUnavailable, "SwapsPaused")

	s.expect(s.do(http.MethodGet, "/v1/protocols/"+protocolAddr.Hex(), nil, nil), http.StatusOK, "")
	s.expect(s.do(http.MethodGet, "/v1/protocols/0x0000000000000000000000000000000000000001", nil, nil), http.StatusNotFound, "UnknownProtocol")
	s.expect(s.do(http.MethodGet, "/v1/protocols/not-an-address", nil, nil), http.StatusBadRequest, "BadRequest")
	s.expect(s.do(http.MethodPost, "/v1/protocols", &userAddr, protocolBody()), http.StatusForbidden, "Unauthorized")
}

func TestCallbacks(t *testing.T) {
	s := newTestServer(t)
	s.setup()

	body := func(nonce int) string {
		return `{"nonce": ` + strconv.Itoa(nonce) + `, "operation": "swap", "user": "` + userAddr.Hex() + `", "expected_amounts": ["14850"], "deadline": 1700000060}`
	}
	s.expect(s.do(http.MethodPost, "/v1/callbacks", &protocolAddr, body(1)), http.StatusOK, "")
	s.expect(s.do(http.MethodPost, "/v1/callbacks", &protocolAddr, body(1)), http.StatusConflict, "NonceReplay")
	s.expect(s.do(http.MethodPost, "/v1/callbacks", &userAddr, body(2)), http.StatusForbidden, "UnknownProtocol")

	rec := s.do(http.MethodGet, "/v1/protocols/"+protocolAddr.Hex()+"/nonce?nonce=1", nil, nil)
	s.expect(rec, http.StatusOK, "")
	var status nonceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode nonce status: %v", err)
	}
	if status.LastNonce != 1 || status.Status != "consumed" {
		t.Fatalf("unexpected nonce status: %+v", status)
	}
	s.expect(s.do(http.MethodGet, "/v1/protocols/"+protocolAddr.Hex()+"/nonce?nonce=x", nil, nil), http.StatusBadRequest, "BadRequest")
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	s.expect(s.do(http.MethodPost, "/v1/swaps", nil, swapBody("15000", 100)), http.StatusUnauthorized, "Unauthenticated")

	req := httptest.NewRequest(http.MethodPost, "/v1/swaps", bytes.NewBufferString(swapBody("15000", 100)))
	token, err := IssueToken("wrong-secret", testIssuer, userAddr, time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.expect(rec, http.StatusUnauthorized, "Unauthenticated")

	expired, err := IssueToken(testSecret, testIssuer, userAddr, -time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/v1/swaps", bytes.NewBufferString(swapBody("15000", 100)))
	req.Header.Set("Authorization", "Bearer "+expired)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.expect(rec, http.StatusUnauthorized, "Unauthenticated")
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)
	s.setup()

	s.expect(s.do(http.MethodPost, "/v1/swaps", &userAddr, `{"unknown": 1}`), http.StatusBadRequest, "BadRequest")
	s.expect(s.do(http.MethodPost, "/v1/swaps", &userAddr, ""), http.StatusBadRequest, "BadRequest")
	s.expect(s.do(http.MethodGet, "/v1/swaps?limit=-1", nil, nil), http.StatusBadRequest, "BadRequest")
	s.expect(s.do(http.MethodGet, "/v1/swaps?user=bob", nil, nil), http.StatusBadRequest, "BadRequest")

	noTokenOut := `{"protocol": "` + protocolAddr.Hex() + `", "token_in": "native", "amount_in": "15000", "deadline": 1700003600}`
	s.expect(s.do(http.MethodPost, "/v1/swaps", &userAddr, noTokenOut), http.StatusBadRequest, "BadRequest")
	s.expect(s.do(http.MethodPost, "/v1/liquidations/auto", &userAddr, `{"amount": "15000"}`), http.StatusBadRequest, "BadRequest")
	zeroToken := `{"token_out": "0x0000000000000000000000000000000000000000", "amount": "15000"}`
	s.expect(s.do(http.MethodPost, "/v1/liquidations/auto", &userAddr, zeroToken), http.StatusBadRequest, "BadRequest")

	rec := s.do(http.MethodGet, "/v1/swaps", nil, nil)
	var history historyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil || len(history.Swaps) != 0 {
		t.Fatalf("rejected requests left history %+v err=%v", history.Swaps, err)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}
