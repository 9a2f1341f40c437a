package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"asset-rental-backend/internal/domain"
	"asset-rental-backend/internal/logger"
	"asset-rental-backend/internal/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

type envelope struct {
	Data       any              `json:"data"`
	Warnings   []domain.Warning `json:"warnings,omitempty"`
	Pagination *pagination      `json:"pagination,omitempty"`
}

type pagination struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
	Total    int32 `json:"total"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    domain.ErrorKind `json:"kind"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any, warnings []domain.Warning) {
	writeJSON(w, status, envelope{Data: data, Warnings: warnings})
}

func writePage(w http.ResponseWriter, data any, page, pageSize, total int32) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Pagination: &pagination{Page: page, PageSize: pageSize, Total: total}})
}

// statusFor maps an error kind onto the HTTP status the API promises.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInvalidState, domain.KindConflict:
		return http.StatusConflict
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindDependencyFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.ErrorContext(r.Context(), "Unhandled error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Kind: domain.KindInternal, Code: "INTERNAL", Message: "internal error",
		}})
		return
	}
	status := statusFor(de.Kind)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: de.Kind, Code: de.Code, Message: de.Message}})
}

func writeStatus(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}

func badRequest(msg string) error {
	return &domain.Error{Kind: domain.KindValidation, Code: "BAD_REQUEST", Message: msg}
}

func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("could not read request body")
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON body: %v", err))
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("invalid %s", name))
	}
	return v, nil
}

// queryInt32 rejects values outside the int32 range instead of truncating them.
func queryInt32(r *http.Request, name string, def int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("invalid %s", name))
	}
	return int32(v), nil
}

func pageParams(r *http.Request) (int32, int32, error) {
	page, err := queryInt32(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	size, err := queryInt32(r, "page_size", 20)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, domain.ErrInvalidDate.WithMessage("date is required, expected yyyy-mm-dd")
	}
	return utils.ParseDate(raw)
}
