package handler

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/config"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/notify"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/repository"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/token"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	tokens      *token.Manager
	publisher   notify.Publisher
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, tokens *token.Manager, publisher notify.Publisher, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their json names so error keys match the request body
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		tokens:      tokens,
		publisher:   publisher,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.notFound(w, r, "resource not found")
	})
	h.Mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.errorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	// authentication
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/token/refresh", h.RefreshToken)
		r.With(h.auth).Post("/logout", h.Logout)
	})

	// everything below requires a valid access token
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/", h.GetProfile)
			r.Patch("/", h.UpdateProfile)
			r.Patch("/password", h.UpdateMyPassword)
			r.Route("/verify-email", func(r chi.Router) {
				r.Post("/require", h.RequireVerifyEmail)
				r.Post("/confirm", h.ConfirmVerifyEmail)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
			r.Get("/", h.GetAllUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.userInfo)
				r.Get("/", h.GetUser)
				r.With(h.preventOperateInitialAdmin).Patch("/", h.UpdateUser)
			})
		})

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.GetAllCompanies)
			r.With(h.requireCreate(policy.ResourceCompany)).Post("/", h.CreateCompany)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.company)
				r.Get("/", h.GetCompany)
				r.Patch("/", h.UpdateCompany)
				r.Delete("/", h.DeleteCompany)
			})
		})

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.GetAllDepartments)
			r.With(h.requireCreate(policy.ResourceDepartment)).Post("/", h.CreateDepartment)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.department)
				r.Get("/", h.GetDepartment)
				r.Patch("/", h.UpdateDepartment)
				r.Delete("/", h.DeleteDepartment)
			})
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.GetAllEmployees)
			r.With(h.requireCreate(policy.ResourceEmployee)).Post("/", h.CreateEmployee)
			r.Route("/profile", func(r chi.Router) {
				r.Use(h.myEmployee)
				r.Get("/", h.GetEmployee)
				r.Patch("/", h.UpdateEmployee)
			})
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.employee)
				r.Get("/", h.GetEmployee)
				r.Patch("/", h.UpdateEmployee)
				r.Delete("/", h.DeleteEmployee)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.GetAllProjects)
			r.With(h.requireCreate(policy.ResourceProject)).Post("/", h.CreateProject)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.project)
				r.Get("/", h.GetProject)
				r.Patch("/", h.UpdateProject)
				r.Delete("/", h.DeleteProject)
				r.Put("/assignees", h.ReplaceProjectAssignees)
			})
		})

		r.Route("/performance-reviews", func(r chi.Router) {
			r.Get("/", h.GetAllReviews)
			r.With(h.requireCreate(policy.ResourceReview)).Post("/", h.CreateReview)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.review)
				r.Get("/", h.GetReview)
				r.Patch("/", h.UpdateReview)
				r.Delete("/", h.DeleteReview)
				r.Post("/transition", h.TransitionReview)
			})
		})
	})
}

func (h *Handler) redisContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationTimeout)*time.Second)
}
