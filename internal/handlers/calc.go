package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/diewo77/ownervalue/httpx"
	"github.com/diewo77/ownervalue/internal/calc"
	"github.com/diewo77/ownervalue/internal/report"
)

type CalcHandler struct {
	log *slog.Logger
	now func() time.Time
}

func NewCalcHandler(log *slog.Logger) *CalcHandler {
	return &CalcHandler{log: log, now: time.Now}
}

// CalcResponse is the full projection of a form state.
type CalcResponse struct {
	Inputs  calc.Inputs   `json:"inputs"`
	Outputs calc.Outputs  `json:"outputs"`
	Model   calc.Model    `json:"model"`
	Report  report.Report `json:"report"`
}

// Compute projects a form state, bare or wrapped in a prospect payload.
func (h *CalcHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	if !decodeBody(w, r, &body) {
		return
	}
	fs, err := calc.ParseFormState(body)
	if err != nil {
		code := "invalid_form_state"
		if errors.Is(err, calc.ErrNoFormState) {
			code = "missing_form_state"
		}
		httpx.JSONError(w, http.StatusBadRequest, code, nil)
		return
	}
	in, out, m := calc.Recalculate(fs)
	httpx.JSON(w, http.StatusOK, CalcResponse{
		Inputs:  in,
		Outputs: out,
		Model:   m,
		Report:  report.Build(m, h.now()),
	})
}
