package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
	"github.com/noah-isme/campus-records-api/pkg/response"
)

type accountService interface {
	ListStudents(ctx context.Context) ([]models.Student, error)
	ListStaff(ctx context.Context, role models.UserRole) ([]models.Staff, error)
	Create(ctx context.Context, actor models.Actor, role models.UserRole, req models.AccountRequest) (*models.Account, error)
	Update(ctx context.Context, actor models.Actor, role models.UserRole, id string, req models.AccountRequest) (*models.Account, error)
	Delete(ctx context.Context, actor models.Actor, role models.UserRole, id string) error
	StudentProfile(ctx context.Context, actor models.Actor) (*models.StudentProfile, error)
}

// AccountHandler exposes account administration and the student profile.
type AccountHandler struct {
	service accountService
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(svc accountService) *AccountHandler {
	return &AccountHandler{service: svc}
}

// List godoc
// @Summary List students, teachers or administrators
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param role path string true "student, teacher or admin"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/users/{role} [get]
func (h *AccountHandler) List(c *gin.Context) {
	role, ok := accountRole(c)
	if !ok {
		return
	}
	if role == models.RoleStudent {
		students, err := h.service.ListStudents(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, students, nil)
		return
	}
	staff, err := h.service.ListStaff(c.Request.Context(), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, staff, nil)
}

// Create godoc
// @Summary Create an account
// @Description Without a password the account gets the default import password
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role path string true "student, teacher or admin"
// @Param payload body models.AccountRequest true "Account"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users/{role} [post]
func (h *AccountHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	role, ok := accountRole(c)
	if !ok {
		return
	}
	var req models.AccountRequest
	if err := bindJSON(c, &req, "invalid account payload"); err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.service.Create(c.Request.Context(), actor, role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// Update godoc
// @Summary Update an account
// @Description The password is only replaced when one is supplied
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role path string true "student, teacher or admin"
// @Param id path string true "Account ID"
// @Param payload body models.AccountRequest true "Account"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{role}/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	role, ok := accountRole(c)
	if !ok {
		return
	}
	var req models.AccountRequest
	if err := bindJSON(c, &req, "invalid account payload"); err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.service.Update(c.Request.Context(), actor, role, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Delete godoc
// @Summary Delete an account and its profile
// @Tags Admin
// @Security BearerAuth
// @Param role path string true "student, teacher or admin"
// @Param id path string true "Account ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{role}/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	role, ok := accountRole(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, role, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Profile godoc
// @Summary Get my year, scholarship and graduation status
// @Tags Student
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /student/profile [get]
func (h *AccountHandler) Profile(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.service.StudentProfile(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

func accountRole(c *gin.Context) (models.UserRole, bool) {
	role, ok := models.ParseRole(c.Param("role"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown account role"))
		return "", false
	}
	return role, true
}
