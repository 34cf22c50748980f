package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body must not be empty")

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("internal server error", "method", r.Method, "path", r.URL.Path, "error", err)
}

// readJSON decodes the request body into v. Unknown fields and trailing data are rejected.
func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var syntaxError *json.SyntaxError
		var typeError *json.UnmarshalTypeError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.As(err, &syntaxError), errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("request body contains malformed JSON")
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return domain.NewFieldError(typeError.Field, fmt.Sprintf("must be of type %s", typeError.Type))
			}
			return errors.New("request body contains a value of the wrong type")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			return domain.NewFieldError(field, "unknown field")
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("request body must not be larger than %d bytes", maxBytesError.Limit)
		default:
			return err
		}
	}

	if dec.More() {
		return errors.New("request body must only contain a single JSON value")
	}

	return nil
}

// readOptionalJSON is readJSON for endpoints whose body may be omitted.
func (h *Handler) readOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := h.readJSON(w, r, v); err != nil && !errors.Is(err, errEmptyBody) {
		return err
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

// badRequest answers 400. Validator errors are translated and keyed by field, the first
// one becomes the message.
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	var fieldError *domain.FieldError

	switch {
	case errors.As(err, &validationErrors):
		fields := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			key := fe.Field()
			if _, ok := fields[key]; !ok {
				fields[key] = fe.Translate(h.translator)
			}
		}
		h.writeJSON(w, r, http.StatusBadRequest, Response{
			Success: false,
			Message: validationErrors[0].Translate(h.translator),
			Errors:  fields,
		})
	case errors.As(err, &fieldError):
		h.writeJSON(w, r, http.StatusBadRequest, Response{
			Success: false,
			Message: fieldError.Error(),
			Errors:  fieldError.Fields,
		})
	default:
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	h.errorResponse(w, r, http.StatusUnauthorized, msg)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusForbidden, "you do not have permission to perform this action")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusNotFound, msg)
}

func (h *Handler) conflict(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusConflict, "the record was modified by another request, please retry")
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "internal server error",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func (h *Handler) createdResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusCreated, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// constraintFields maps database constraint names to the request field they concern.
var constraintFields = map[string]struct {
	field string
	msg   string
}{
	"users_username_key":               {"username", "a user with this username already exists"},
	"users_email_key":                  {"email", "a user with this email already exists"},
	"companies_name_key":               {"name", "a company with this name already exists"},
	"departments_company_id_name_key":  {"name", "the company already has a department with this name"},
	"employees_user_id_key":            {"user", "this user already has an employee profile"},
	"projects_date_range_check":        {"endDate", "end date must not be before start date"},
	"performance_reviews_rating_check": {"rating", "rating must be between 1 and 5"},
}

type transitionErrorData struct {
	From    domain.Stage   `json:"from"`
	To      domain.Stage   `json:"to"`
	Allowed []domain.Stage `json:"allowed"`
}

// handleError maps an error from the domain or storage layer to a response.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var transitionError *domain.InvalidTransitionError
	var pgErr *pgconn.PgError

	switch {
	case errors.As(err, &transitionError):
		allowed := transitionError.Allowed()
		if allowed == nil {
			allowed = []domain.Stage{}
		}
		h.writeJSON(w, r, http.StatusBadRequest, Response{
			Success: false,
			Message: transitionError.Error(),
			Data: transitionErrorData{
				From:    transitionError.From,
				To:      transitionError.To,
				Allowed: allowed,
			},
		})
	case errors.Is(err, domain.ErrValidation):
		h.badRequest(w, r, err)
	case errors.Is(err, domain.ErrUnauthenticated):
		h.unauthorized(w, r, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		h.forbidden(w, r)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		h.notFound(w, r, "resource not found")
	case errors.Is(err, domain.ErrConflict):
		h.conflict(w, r)
	case errors.As(err, &pgErr):
		if cf, ok := constraintFields[pgErr.ConstraintName]; ok {
			h.badRequest(w, r, domain.NewFieldError(cf.field, cf.msg))
			return
		}
		// foreign_key_violation
		if pgErr.Code == "23503" {
			h.badRequest(w, r, errors.New("a referenced record does not exist"))
			return
		}
		h.internalServerError(w, r, err)
	default:
		h.internalServerError(w, r, err)
	}
}

// staleAsConflict turns the no-rows result of a version guarded write into ErrConflict.
func staleAsConflict(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrConflict
	}
	return err
}
