package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/authz"
	"github.com/taskforge/taskforge/pkg/task"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string     `json:"accessToken"`
	User        *auth.User `json:"user"`
}

type createUserRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Role      authz.Role `json:"role"`
}

type userPageResponse struct {
	Data  []auth.User `json:"data"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

type createTaskRequest struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	AssignedToID string        `json:"assignedToId"`
	Priority     task.Priority `json:"priority"`
	DueDate      *time.Time    `json:"dueDate"`
}

type updateTaskRequest struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	AssignedToID *string        `json:"assignedToId"`
	Status       *task.Status   `json:"status"`
	Priority     *task.Priority `json:"priority"`
	DueDate      *time.Time     `json:"dueDate"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := s.auth.Register(c.Request().Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	token, u, err := s.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, loginResponse{AccessToken: token, User: u})
}

func (s *Server) handleProfile(c echo.Context) error {
	caller, _ := CallerFrom(c)

	u, err := s.auth.Profile(c.Request().Context(), caller.ID)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// handleLogout acknowledges a logout. Access tokens are stateless, so
// the client discards its copy; there is nothing to revoke server-side.
func (s *Server) handleLogout(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "logout successful"})
}

func (s *Server) handleListUsers(c echo.Context) error {
	caller, _ := CallerFrom(c)
	if caller.Role != authz.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return err
	}

	users, total, err := s.auth.Users(c.Request().Context(), page, limit)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, userPageResponse{Data: users, Total: total, Page: page, Limit: limit})
}

func (s *Server) handleGetUser(c echo.Context) error {
	caller, _ := CallerFrom(c)

	id := c.Param("id")
	if caller.ID != id && caller.Role != authz.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	u, err := s.auth.Profile(c.Request().Context(), id)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) handleCreateUser(c echo.Context) error {
	caller, _ := CallerFrom(c)
	if caller.Role != authz.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	u, err := s.auth.Create(c.Request().Context(), auth.CreateInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

func (s *Server) handleListTasks(c echo.Context) error {
	caller, _ := CallerFrom(c)

	var f task.Filter
	if v := c.QueryParam("status"); v != "" {
		st := task.Status(v)
		if !st.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		f.Status = &st
	}
	if v := c.QueryParam("priority"); v != "" {
		p := task.Priority(v)
		if !p.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid priority filter")
		}
		f.Priority = &p
	}

	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}

	result, err := s.tasks.List(c.Request().Context(), caller.ID, caller.Role, f, page, limit)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetTask(c echo.Context) error {
	caller, _ := CallerFrom(c)

	t, err := s.tasks.Get(c.Request().Context(), c.Param("id"), caller.ID, caller.Role)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	caller, _ := CallerFrom(c)

	var req createTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	t, err := s.tasks.Create(c.Request().Context(), task.CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedToID,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
	}, caller.ID)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	caller, _ := CallerFrom(c)

	var req updateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	t, err := s.tasks.Update(c.Request().Context(), c.Param("id"), task.Patch{
		Title:        req.Title,
		Description:  req.Description,
		AssignedToID: req.AssignedToID,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
	}, caller.ID, caller.Role)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	caller, _ := CallerFrom(c)

	if err := s.tasks.Delete(c.Request().Context(), c.Param("id"), caller.ID, caller.Role); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleHealthz(c echo.Context) error {
	ctx := c.Request().Context()

	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Health check failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}

	// A dead cache degrades reads, it does not make the service
	// unhealthy.
	cacheState := "ok"
	if s.cachePing != nil {
		if err := s.cachePing(ctx); err != nil {
			cacheState = "degraded"
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "cache": cacheState})
}

// mapError translates domain errors into HTTP responses. Upstream
// failures stay opaque: the client sees a generic 500 while the cause
// is logged server-side.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, task.ErrNotFound), errors.Is(err, auth.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, task.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, task.ErrInvalidInput), errors.Is(err, auth.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	default:
		s.logger.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}
