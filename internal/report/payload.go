package report

import (
	"encoding/json"
	"errors"

	"github.com/diewo77/ownervalue/internal/calc"
	"github.com/diewo77/ownervalue/internal/models"
)

// ErrNoModel is returned when a payload carries neither a form state nor a
// saved model.
var ErrNoModel = errors.New("report: payload carries no model")

// ModelFromPayload extracts the model of a saved prospect payload. The form
// state is recomputed when present so reports follow the current engine; the
// saved model is used otherwise. A bare model object is accepted too.
func ModelFromPayload(raw []byte) (calc.Model, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
		return calc.Model{}, ErrNoModel
	}

	var saved *calc.Model
	if inner, ok := probe[models.KeyModel]; ok {
		var m calc.Model
		if err := json.Unmarshal(inner, &m); err == nil {
			saved = &m
		}
	} else if _, ok := probe["spese"]; ok {
		var m calc.Model
		if err := json.Unmarshal(raw, &m); err == nil {
			saved = &m
		}
	}

	fs, err := calc.ParseFormState(raw)
	if err == nil {
		_, _, m := calc.Recalculate(fs)
		if saved != nil {
			keepSaved(&m, *saved)
		}
		return m, nil
	}
	if saved != nil {
		return *saved, nil
	}
	return calc.Model{}, ErrNoModel
}

// keepSaved copies into m what the form state does not carry: the
// description and the insurance plan label, which the calculator reads from
// the selected option and stores only in the saved model. The label is kept
// only while the per-stay price still matches the saved plan.
func keepSaved(m *calc.Model, saved calc.Model) {
	if m.Descrizione == "" {
		m.Descrizione = saved.Descrizione
	}
	cur := &m.Spese.AssicurazioneDettaglio
	old := saved.Spese.AssicurazioneDettaglio
	if cur.Label == "" && old.Label != "" && cur.PerPrenotazione == old.PerPrenotazione {
		cur.Label = old.Label
	}
}
