package api

import (
	"net/http"

	"github.com/kostiamol/fridgemon/errors"
)

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		a.log.Errorf("func Write: %s", err)
	}
}

func (a *API) getStatusHandler(w http.ResponseWriter, r *http.Request) {
	if a.status == nil {
		a.respError(w, errors.NewNotFoundError())
		return
	}
	a.resp(w, a.status.Status())
}
