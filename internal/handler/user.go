package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/edugenius/edugenius-api/internal/apperror"
	"github.com/edugenius/edugenius-api/internal/middleware"
	"github.com/edugenius/edugenius-api/internal/model"
	"github.com/edugenius/edugenius-api/internal/service"
)

// UserHandler bundles dependencies for profile and user-management
// endpoints.  The admin routes reuse AuthService.Register so account
// creation follows the same duplicate rules everywhere.
type UserHandler struct {
	Users *service.UserService
	Auth  *service.AuthService
}

func NewUserHandler(users *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{Users: users, Auth: auth}
}

// ----- DTOs -----

type updateProfileReq struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

type adminCreateUserReq struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Bio      string `json:"bio"`
}

type adminUpdateUserReq struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

// Me returns the authenticated caller's record.
func (h *UserHandler) Me(c echo.Context) error {
	id, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.New(apperror.Unauthorized, "Authentication is needed before authorization")
	}
	user, err := h.Users.Me(c.Request().Context(), id.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Success!", user)
}

// UpdateProfile updates the caller's own name, bio and avatar.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	id, ok := middleware.CurrentUser(c)
	if !ok {
		return apperror.New(apperror.Unauthorized, "Authentication is needed before authorization")
	}

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}

	user, err := h.Users.UpdateProfile(c.Request().Context(), id.Email, req.Name, req.Bio, req.AvatarURL)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Update resource successfully!", user)
}

// GetAllUsers lists every user.  Admin only.
func (h *UserHandler) GetAllUsers(c echo.Context) error {
	users, err := h.Users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Success!", users)
}

// CreateUser registers an account on someone's behalf.  Admin only.
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req adminCreateUserReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}

	user, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Provider: model.ProviderLocal,
		Role:     req.Role,
		Bio:      req.Bio,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Create new resource successfully!", user)
}

// GetUserByID returns one user.  Admin only.
func (h *UserHandler) GetUserByID(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	user, err := h.Users.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Success!", user)
}

// UpdateUserByID overwrites a user's administrative fields.  Admin only.
func (h *UserHandler) UpdateUserByID(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	var req adminUpdateUserReq
	if err := c.Bind(&req); err != nil {
		return apperror.New(apperror.BadRequest, "Invalid request parameters!")
	}

	user, err := h.Users.UpdateUser(c.Request().Context(), id, service.AdminUpdateInput{
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Role:      req.Role,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Update resource successfully!", user)
}

// DeleteUserByID removes a user.  Admin only.
func (h *UserHandler) DeleteUserByID(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := h.Users.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Delete resource successfully!", nil)
}

func userIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.New(apperror.BadRequest, "Invalid user id")
	}
	return id, nil
}
