package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"liquidationRouter/internal/model"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type initSettingsRequest struct {
	DefaultSlippageBps uint32       `json:"default_slippage_bps"`
	MaxSlippageBps     uint32       `json:"max_slippage_bps"`
	AutoSwapThreshold  *uint256.Int `json:"auto_swap_threshold"`
}

type autoSwapRequest struct {
	TokenOut model.Asset  `json:"token_out"`
	Amount   *uint256.Int `json:"amount"`
}

type amountResponse struct {
	AmountOut *uint256.Int `json:"amount_out"`
}

type routeResponse struct {
	Protocol common.Address `json:"protocol"`
}

type nonceResponse struct {
	LastNonce uint64 `json:"last_nonce"`
	Nonce     uint64 `json:"nonce,omitempty"`
	Status    string `json:"status,omitempty"`
}

type historyResponse struct {
	Swaps []model.SwapRecord `json:"swaps"`
}

func mustCaller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "Unauthenticated", "missing caller")
	}
	return caller, ok
}

func (s *Server) initSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var req initSettingsRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	err := s.engine.InitializeSettings(ctx, caller, req.DefaultSlippageBps, req.MaxSlippageBps, req.AutoSwapThreshold)
	s.observe("initialize_settings", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.getSettings(w, r)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.context(r.Context())
	defer cancel()

	settings, err := s.engine.Settings(ctx)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var settings model.Settings
	if err := decodeRequest(r, &settings); err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	err := s.engine.UpdateSettings(ctx, caller, settings)
	s.observe("update_settings", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.getSettings(w, r)
}

func (s *Server) registerProtocol(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var cfg model.ProtocolConfig
	if err := decodeRequest(r, &cfg); err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	err := s.engine.RegisterProtocol(ctx, caller, cfg)
	s.observe("register_protocol", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (s *Server) getProtocol(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	cfg, ok, err := s.engine.Protocol(ctx, addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, "UnknownProtocol", "protocol not registered")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) disableProtocol(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	addr, err := addressParam(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	err = s.engine.DisableProtocol(ctx, caller, addr)
	s.observe("disable_protocol", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// nonceStatus reports a protocol's last consumed callback nonce and, when
// ?nonce= is given, whether that nonce would be accepted.
func (s *Server) nonceStatus(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	var nonce uint64
	raw := r.URL.Query().Get("nonce")
	if raw != "" {
		if nonce, err = strconv.ParseUint(raw, 10, 64); err != nil {
			writeBadRequest(w, fmt.Errorf("invalid nonce %q", raw))
			return
		}
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	status, baseline, err := s.engine.Nonces().Status(ctx, addr, nonce)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := nonceResponse{LastNonce: baseline}
	if raw != "" {
		resp.Nonce = nonce
		resp.Status = status.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) findRoute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	in, err := model.ParseAsset(query.Get("token_in"))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("token_in: %w", err))
		return
	}
	out, err := model.ParseAsset(query.Get("token_out"))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("token_out: %w", err))
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	addr, ok, err := s.engine.FindSupporting(ctx, in, out)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		writeJSONError(w, http.StatusNotFound, "NoProtocolAvailable", "no enabled protocol supports the pair")
		return
	}
	writeJSON(w, http.StatusOK, routeResponse{Protocol: addr})
}

func (s *Server) executeSwap(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var params model.SwapParams
	if err := decodeRequest(r, &params); err != nil {
		writeBadRequest(w, err)
		return
	}
	if params.TokenIn.IsZero() || params.TokenOut.IsZero() {
		writeBadRequest(w, fmt.Errorf("token_in and token_out are required"))
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	out, err := s.engine.ExecuteSwap(ctx, caller, params)
	s.observe("execute_swap", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{AmountOut: out})
}

func (s *Server) autoSwap(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var req autoSwapRequest
	if err := decodeRequest(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.TokenOut.IsZero() {
		writeBadRequest(w, fmt.Errorf("token_out is required"))
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	out, err := s.engine.AutoSwapForCollateral(ctx, caller, req.TokenOut, req.Amount)
	s.observe("auto_swap_for_collateral", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{AmountOut: out})
}

// validateCallback treats the authenticated caller as the calling protocol.
func (s *Server) validateCallback(w http.ResponseWriter, r *http.Request) {
	protocol, ok := mustCaller(w, r)
	if !ok {
		return
	}
	var data model.CallbackData
	if err := decodeRequest(r, &data); err != nil {
		writeBadRequest(w, err)
		return
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	err := s.engine.ValidateCallback(ctx, protocol, data)
	s.observe("validate_callback", err)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": true})
}

func (s *Server) swapHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var user *common.Address
	if raw := query.Get("user"); raw != "" {
		if !common.IsHexAddress(raw) {
			writeBadRequest(w, fmt.Errorf("invalid user address %q", raw))
			return
		}
		addr := common.HexToAddress(raw)
		user = &addr
	}

	limit := defaultHistoryLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	ctx, cancel := s.context(r.Context())
	defer cancel()

	records, err := s.engine.SwapHistory(ctx, user, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Swaps: records})
}

func addressParam(r *http.Request, name string) (common.Address, error) {
	raw := chi.URLParam(r, name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}
