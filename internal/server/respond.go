package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"moonjin/internal/apperr"
	"moonjin/internal/pagination"
)

const (
	healthTimeout = 2 * time.Second
	maxBodyBytes  = 1 << 20
)

var (
	errRouteNotFound    = &apperr.Error{Code: apperr.InvalidRequest.Code, Status: http.StatusNotFound, Message: "route not found"}
	errMethodNotAllowed = &apperr.Error{Code: apperr.InvalidRequest.Code, Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
)

type envelope struct {
	Data       any              `json:"data"`
	Pagination *pagination.Page `json:"pagination,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writePage(w http.ResponseWriter, data any, page pagination.Page) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Pagination: &page})
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}

// writeError sends domain errors as they are; anything else is logged and
// hidden behind 9999.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		s.requestLog(r).WithError(err).Error("unhandled error")
		ae = apperr.InternalServerError
	}
	writeJSON(w, ae.Status, map[string]errorBody{"error": {Code: ae.Code, Message: ae.Message}})
}

// decodeJSON reads a JSON body into v and validates it. An empty body is
// accepted when allowEmpty is set.
func (s *Server) decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return apperr.InvalidRequest.WithMessage("malformed JSON body")
		}
	}
	if err := s.validate.Struct(v); err != nil {
		return apperr.InvalidRequest.WithMessage(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

func pathID(r *http.Request, key string) (uint, error) {
	n, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.InvalidRequest.WithMessage(key + " must be a positive integer")
	}
	return uint(n), nil
}

func pageOptions(r *http.Request) (pagination.Options, error) {
	opts, err := pagination.FromQuery(r.URL.Query())
	if err != nil {
		return opts, apperr.InvalidRequest.WithMessage(err.Error())
	}
	return opts, nil
}

func boolQuery(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
