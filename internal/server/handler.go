package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"scangofer/internal/deposits"
	"scangofer/internal/scanner"
)

// Handler serves the REST API
type Handler struct {
	client   *scanner.Client
	deposits *deposits.Service
	logger   zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(client *scanner.Client, depositService *deposits.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		client:   client,
		deposits: depositService,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Register mounts the API routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/balance/{address}", h.getBalance).Methods(http.MethodGet)
	r.HandleFunc("/balance/{address}/token/{contract}", h.getTokenBalance).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{address}", h.getTransactions).Methods(http.MethodGet)
	r.HandleFunc("/token-transfers/{address}", h.getTokenTransfers).Methods(http.MethodGet)
	r.HandleFunc("/internal-transactions/{address}", h.getInternalTransactions).Methods(http.MethodGet)
	r.HandleFunc("/tx/{hash}/status", h.getTransactionStatus).Methods(http.MethodGet)
	r.HandleFunc("/network", h.getNetwork).Methods(http.MethodGet)

	r.HandleFunc("/auth/{address}", h.getAuthorization).Methods(http.MethodGet)
	r.HandleFunc("/access/{address}", h.getAccess).Methods(http.MethodGet)
	r.HandleFunc("/deposits/{address}", h.getDeposits).Methods(http.MethodGet)
	r.HandleFunc("/deposits/{address}/stats", h.getDepositStats).Methods(http.MethodGet)
	r.HandleFunc("/deposits/{address}/limit", h.getDepositLimit).Methods(http.MethodGet)
	r.HandleFunc("/plans", h.getPlans).Methods(http.MethodGet)

	r.HandleFunc("/stats", h.getStats).Methods(http.MethodGet)
	r.HandleFunc("/stats/reset", h.resetStats).Methods(http.MethodPost)
	r.HandleFunc("/cache/clear", h.clearCache).Methods(http.MethodPost)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	balance, err := h.client.GetBalance(r.Context(), address)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"balance": balance,
	})
}

func (h *Handler) getTokenBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	address, contract := vars["address"], vars["contract"]

	balance, err := h.client.GetTokenBalance(r.Context(), address, contract)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":  address,
		"contract": contract,
		"balance":  balance,
	})
}

func (h *Handler) getTransactions(w http.ResponseWriter, r *http.Request) {
	opts, err := historyOptions(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	txs, err := h.client.GetTransactions(r.Context(), mux.Vars(r)["address"], opts)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) getTokenTransfers(w http.ResponseWriter, r *http.Request) {
	opts, err := historyOptions(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Contract != "" && !common.IsHexAddress(opts.Contract) {
		h.writeError(w, http.StatusBadRequest, "invalid contract address")
		return
	}
	transfers, err := h.client.GetTokenTransactions(r.Context(), mux.Vars(r)["address"], opts)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, transfers)
}

func (h *Handler) getInternalTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.client.GetInternalTransactions(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, txs)
}

func (h *Handler) getTransactionStatus(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	ok, err := h.client.GetTransactionStatus(r.Context(), hash)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"hash":    hash,
		"success": ok,
	})
}

func (h *Handler) getNetwork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	block, err := h.client.GetBlockNumber(ctx)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	gas, err := h.client.GetGasPrice(ctx)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	price, err := h.client.GetBNBPrice(ctx)
	if err != nil {
		h.writeScannerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"blockNumber":  block,
		"gasPriceWei":  gas.String(),
		"gasPriceGwei": scanner.ScaleBig(gas, 9),
		"bnbPriceUsd":  price,
	})
}

func (h *Handler) getAuthorization(w http.ResponseWriter, r *http.Request) {
	h.serveDeposits(w, r, func(ctx context.Context, address string) (interface{}, error) {
		return h.deposits.CheckAuthorization(ctx, address)
	})
}

func (h *Handler) getAccess(w http.ResponseWriter, r *http.Request) {
	h.serveDeposits(w, r, func(ctx context.Context, address string) (interface{}, error) {
		return h.deposits.CheckAccess(ctx, address)
	})
}

func (h *Handler) getDeposits(w http.ResponseWriter, r *http.Request) {
	h.serveDeposits(w, r, func(ctx context.Context, address string) (interface{}, error) {
		return h.deposits.UserDeposits(ctx, address)
	})
}

func (h *Handler) getDepositStats(w http.ResponseWriter, r *http.Request) {
	h.serveDeposits(w, r, func(ctx context.Context, address string) (interface{}, error) {
		return h.deposits.DepositStats(ctx, address)
	})
}

func (h *Handler) getDepositLimit(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount < 0 {
		h.writeError(w, http.StatusBadRequest, "amount must be a non-negative number")
		return
	}
	h.serveDeposits(w, r, func(ctx context.Context, address string) (interface{}, error) {
		return h.deposits.CheckDepositLimit(ctx, address, amount)
	})
}

func (h *Handler) serveDeposits(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, address string) (interface{}, error)) {
	result, err := fn(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		h.writeScannerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getPlans(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.deposits.Catalog())
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.client.Stats())
}

func (h *Handler) resetStats(w http.ResponseWriter, r *http.Request) {
	h.client.ResetStats()
	h.writeJSON(w, http.StatusOK, h.client.Stats())
}

func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.client.ClearCache()
	h.writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// historyOptions reads startblock, endblock, sort, page, offset and contract from the query
func historyOptions(r *http.Request) (scanner.HistoryOptions, error) {
	q := r.URL.Query()
	opts := scanner.HistoryOptions{
		Sort:     q.Get("sort"),
		Contract: q.Get("contract"),
	}
	if opts.Sort != "" && opts.Sort != scanner.SortAsc && opts.Sort != scanner.SortDesc {
		return opts, errors.New("sort must be asc or desc")
	}

	blocks := []struct {
		name string
		dst  *uint64
	}{
		{"startblock", &opts.StartBlock},
		{"endblock", &opts.EndBlock},
	}
	for _, p := range blocks {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return opts, errors.New(p.name + " must be a non-negative integer")
			}
			*p.dst = n
		}
	}

	pages := []struct {
		name string
		dst  *int
	}{
		{"page", &opts.Page},
		{"offset", &opts.Offset},
	}
	for _, p := range pages {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return opts, errors.New(p.name + " must be a non-negative integer")
			}
			*p.dst = n
		}
	}
	return opts, nil
}

func (h *Handler) writeScannerError(w http.ResponseWriter, err error) {
	var perr *scanner.ProviderError
	switch {
	case errors.Is(err, scanner.ErrInvalidAddress),
		errors.As(err, &perr) && perr.Kind == scanner.KindInvalidAddress:
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scanner.ErrNotInitialized):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Debug().Err(err).Msg("provider request failed")
		h.writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal response")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	data, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
