package api

import (
	"encoding/json"
	"net/http"

	"github.com/kostiamol/fridgemon/errors"
)

func (a *API) resp(w http.ResponseWriter, data interface{}) {
	b, err := json.Marshal(map[string]interface{}{"data": data})
	if err != nil {
		a.respError(w, errors.NewServiceError(err.Error()))
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err = w.Write(b); err != nil {
		a.log.Errorf("func Write: %s", err)
	}
}

func (a *API) respError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	code := http.StatusInternalServerError
	body := errors.APIError{Code: errors.ErrService, Message: "Internal Server Error"}

	if apiErr, ok := err.(errors.APIError); ok {
		body = apiErr
		switch apiErr.Code {
		case errors.ErrNotFound:
			code = http.StatusNotFound
		case errors.ErrBadRequest:
			code = http.StatusBadRequest
		}
	} else {
		a.log.Errorf("func respError: %s", err)
	}
	a.metric.ErrorCounter(body.Code)

	b, err := json.Marshal(body)
	if err != nil {
		a.log.Errorf("func Marshal: %s", err)
	}

	w.WriteHeader(code)

	if _, err = w.Write(b); err != nil {
		a.log.Errorf("func Write: %s", err)
	}
}
