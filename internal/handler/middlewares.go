package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("request handled", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // slog would mangle the multi-line trace
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// auth validates the access token and attaches the requester to the context: the user as
// stored now, plus its employee profile and project assignments for the policy layer.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			h.unauthorized(w, r, "authentication credentials were not provided")
			return
		}

		claims, err := h.tokens.ParseAccess(tokenString)
		if err != nil {
			h.unauthorized(w, r, "invalid or expired token")
			return
		}
		userID, _ := claims.UserID()

		user, err := h.repository.GetUserByID(r.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.unauthorized(w, r, "user not found")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		if !user.IsActive {
			h.unauthorized(w, r, "user account is disabled")
			return
		}

		principal := &policy.Principal{UserID: user.ID, Role: user.Role}

		employee, err := h.repository.GetEmployeeByUserID(r.Context(), user.ID)
		switch {
		case err == nil:
			principal.Employee = employee
			principal.AssignedProjectIDs, err = h.repository.GetAssignedProjectIDs(r.Context(), employee.ID)
			if err != nil {
				h.internalServerError(w, r, err)
				return
			}
		case errors.Is(err, sql.ErrNoRows):
			// no linked profile
		default:
			h.internalServerError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalCtx, principal)
		ctx = context.WithValue(ctx, MyInfoCtx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireCreate answers 403 unless the requester's role may create the resource.
func (h *Handler) requireCreate(resource policy.Resource) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.Can(principalFrom(r), policy.ActionWrite, resource, nil) {
				h.forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorize answers 403 and returns false when the requester may not act on the target.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, action policy.Action, resource policy.Resource, target *policy.Target) bool {
	if !policy.Can(principalFrom(r), action, resource, target) {
		h.forbidden(w, r)
		return false
	}
	return true
}

// loadResource builds a middleware that loads the object named by the {id} URL parameter
// and stores it under key. Objects the requester may not read answer 404 like missing ones.
func loadResource[T any](
	h *Handler,
	key ContextKey,
	resource policy.Resource,
	name string,
	get func(ctx context.Context, id int64) (T, error),
	target func(T) *policy.Target,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
			if err != nil || id <= 0 {
				h.notFound(w, r, fmt.Sprintf("invalid %s id", name))
				return
			}

			obj, err := get(r.Context(), id)
			if err != nil {
				switch {
				case errors.Is(err, sql.ErrNoRows):
					h.notFound(w, r, fmt.Sprintf("%s not found", name))
				default:
					h.internalServerError(w, r, err)
				}
				return
			}

			if !policy.Can(principalFrom(r), policy.ActionRead, resource, target(obj)) {
				h.notFound(w, r, fmt.Sprintf("%s not found", name))
				return
			}

			ctx := context.WithValue(r.Context(), key, obj)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (h *Handler) company(next http.Handler) http.Handler {
	return loadResource(h, CompanyCtx, policy.ResourceCompany, "company", h.repository.GetCompanyByID, companyTarget)(next)
}

func (h *Handler) department(next http.Handler) http.Handler {
	return loadResource(h, DepartmentCtx, policy.ResourceDepartment, "department", h.repository.GetDepartmentByID, departmentTarget)(next)
}

func (h *Handler) employee(next http.Handler) http.Handler {
	return loadResource(h, EmployeeCtx, policy.ResourceEmployee, "employee", h.repository.GetEmployeeByID, employeeTarget)(next)
}

func (h *Handler) project(next http.Handler) http.Handler {
	return loadResource(h, ProjectCtx, policy.ResourceProject, "project", h.repository.GetProjectByID, projectTarget)(next)
}

func (h *Handler) review(next http.Handler) http.Handler {
	return loadResource(h, ReviewCtx, policy.ResourceReview, "performance review", h.repository.GetReviewByID, reviewTarget)(next)
}

// myEmployee exposes the requester's own employee profile under EmployeeCtx and marks the
// request as an own-profile edit.
func (h *Handler) myEmployee(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := principalFrom(r)
		if p == nil || p.Employee == nil {
			h.notFound(w, r, "no employee profile is linked to your account")
			return
		}

		ctx := context.WithValue(r.Context(), EmployeeCtx, p.Employee)
		ctx = context.WithValue(ctx, OwnProfileCtx, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
