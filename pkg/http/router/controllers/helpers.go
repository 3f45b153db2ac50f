package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/roadsnap/pkg/engine/mapmatcher/segment"
	"github.com/lintang-b-s/roadsnap/pkg/util"
	"go.uber.org/zap"
)

// nginx convention for a client that went away before the response
const STATUS_CLIENT_CLOSED_REQUEST = 499

type envelope map[string]interface{}

func (api *mapMatchAPI) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func (api *mapMatchAPI) errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string,
	details envelope) {
	var resp errorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details

	if err := api.writeJSON(w, status, envelope{"error": resp.Error}, nil); err != nil {
		api.log.Error("write error response", zap.String("path", r.URL.Path), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (api *mapMatchAPI) BadRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusBadRequest, "bad_request", err.Error(), nil)
}

func (api *mapMatchAPI) NotFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.errorResponse(w, r, http.StatusNotFound, "not_found", err.Error(), nil)
}

func (api *mapMatchAPI) UnprocessableEntityResponse(w http.ResponseWriter, r *http.Request, message string, details envelope) {
	api.errorResponse(w, r, http.StatusUnprocessableEntity, "unprocessable_entity", message, details)
}

func (api *mapMatchAPI) ServerErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.log.Error("server error", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	api.errorResponse(w, r, http.StatusInternalServerError, "internal_server_error", util.MessageInternalServerError, nil)
}

// getStatusCode. writes the error response matching the code carried by err.
func (api *mapMatchAPI) getStatusCode(w http.ResponseWriter, r *http.Request, err error) {
	var ierr *util.Error
	if !errors.As(err, &ierr) {
		api.ServerErrorResponse(w, r, err)
		return
	}

	switch ierr.Code() {
	case util.ErrBadParamInput:
		api.BadRequestResponse(w, r, errors.New(ierr.Message()))
	case util.ErrNotFound:
		api.NotFoundResponse(w, r, errors.New(ierr.Message()))
	case util.ErrUnprocessable:
		var details envelope
		if mf, ok := segment.AsMatchFailure(err); ok {
			details = envelope{
				"segment_index": mf.Index,
				"segment":       [2][2]float64{{mf.Segment.Start.X, mf.Segment.Start.Y}, {mf.Segment.End.X, mf.Segment.End.Y}},
			}
		}
		api.UnprocessableEntityResponse(w, r, ierr.Message(), details)
	case util.ErrRequestCanceled:
		api.log.Debug("client closed request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		api.errorResponse(w, r, STATUS_CLIENT_CLOSED_REQUEST, "client_closed_request", ierr.Message(), nil)
	case util.ErrRequestTimeout:
		api.log.Warn("request timed out", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		api.errorResponse(w, r, http.StatusGatewayTimeout, "timeout", ierr.Message(), nil)
	default:
		api.ServerErrorResponse(w, r, err)
	}
}

func (api *mapMatchAPI) validate(req interface{}) error {
	if err := api.validator.Struct(req); err != nil {
		vv := translateError(err, api.trans)
		vvString := []string{}
		for _, v := range vv {
			vvString = append(vvString, v.Error())
		}
		return fmt.Errorf("validation error: %v", vvString)
	}
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf("%s", e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}
