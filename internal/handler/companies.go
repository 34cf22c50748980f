package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/policy"
)

var companyListFilters = listFilters{texts: []string{"name"}}

func (h *Handler) GetAllCompanies(w http.ResponseWriter, r *http.Request) {
	p, err := h.readListParams(r, companyListFilters)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	scope := policy.ListScope(principalFrom(r), policy.ResourceCompany)
	page, err := h.repository.ListCompanies(r.Context(), scope, p)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "companies retrieved", page)
}

func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=255"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	company := &domain.Company{Name: req.Name}
	if err := h.repository.CreateCompany(r.Context(), company); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.createdResponse(w, r, "company created", company)
}

func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company := r.Context().Value(CompanyCtx).(*domain.Company)
	h.successResponse(w, r, "company retrieved", company)
}

func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	company := r.Context().Value(CompanyCtx).(*domain.Company)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceCompany, companyTarget(company)) {
		return
	}

	var req struct {
		Name *string `json:"name" validate:"omitnil,min=1,max=255"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		company.Name = *req.Name
	}

	if err := h.repository.UpdateCompany(r.Context(), company); err != nil {
		h.handleError(w, r, staleAsConflict(err))
		return
	}

	h.successResponse(w, r, "company updated", company)
}

func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	company := r.Context().Value(CompanyCtx).(*domain.Company)
	if !h.authorize(w, r, policy.ActionWrite, policy.ResourceCompany, companyTarget(company)) {
		return
	}

	if err := h.repository.DeleteCompany(r.Context(), company.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "company deleted", nil)
}
