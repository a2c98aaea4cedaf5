package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mwhitt/stockpulse/internal/engine"
	"github.com/mwhitt/stockpulse/internal/ledger"
	"github.com/mwhitt/stockpulse/internal/market"
)

type handlers struct {
	engine *engine.Engine
	worker *engine.Worker
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	Symbol string              `json:"symbol"`
	Period string              `json:"period"`
	Bars   []market.PricePoint `json:"bars,omitempty"`
}

// analyze accepts either a symbol+period to fetch or raw bars, and
// returns the consensus signal. CPU work runs on the worker pool when
// one is wired.
func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bars := req.Bars
	if len(bars) == 0 {
		if req.Symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol or bars required")
			return
		}
		sig, err := h.engine.Analyze(r.Context(), req.Symbol, req.Period)
		if err != nil {
			if errors.Is(err, market.ErrDataUnavailable) {
				writeError(w, http.StatusBadGateway, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sig)
		return
	}

	if h.worker != nil {
		res := <-h.worker.AnalyzeAsync(r.Context(), bars)
		if res.Err != nil {
			writeError(w, http.StatusInternalServerError, res.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res.Signal)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.AnalyzeBars(bars))
}

type backtestRequest struct {
	Symbol         string              `json:"symbol"`
	Period         string              `json:"period"`
	Bars           []market.PricePoint `json:"bars,omitempty"`
	InitialBalance float64             `json:"initial_balance"`
}

func (h *handlers) backtest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InitialBalance <= 0 {
		writeError(w, http.StatusBadRequest, "initial_balance must be positive")
		return
	}

	if len(req.Bars) > 0 {
		if h.worker != nil {
			res := <-h.worker.BacktestAsync(r.Context(), req.Symbol, req.Bars, req.InitialBalance)
			if res.Err != nil {
				h.backtestError(w, res.Err)
				return
			}
			writeJSON(w, http.StatusOK, res.Report)
			return
		}
		report, err := h.engine.RunBacktestBars(r.Context(), req.Symbol, req.Bars, req.InitialBalance)
		if err != nil {
			h.backtestError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol or bars required")
		return
	}
	report, err := h.engine.RunBacktest(r.Context(), req.Symbol, req.Period, req.InitialBalance)
	if err != nil {
		h.backtestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handlers) backtestError(w http.ResponseWriter, err error) {
	if errors.Is(err, market.ErrDataUnavailable) {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *handlers) trade(w http.ResponseWriter, r *http.Request) {
	var req ledger.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.engine.ExecuteTrade(r.Context(), req)
	if err != nil {
		if errors.Is(err, engine.ErrNoAccount) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Risk rejections are 200s with success=false: the request was
	// handled, the gate said no.
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) portfolio(w http.ResponseWriter, r *http.Request) {
	pf, err := h.engine.Portfolio(r.Context())
	if err != nil {
		if errors.Is(err, engine.ErrNoAccount) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pf)
}
