package intake

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/prakriti/intake/internal/platform/session"
)

type Handler struct {
	svc          *Service
	tokens       *session.Issuer
	secureCookie bool
}

// NewHandler builds the intake routes. secureCookie marks the session cookie
// Secure and should be set whenever the kiosk is served over TLS.
func NewHandler(svc *Service, tokens *session.Issuer, secureCookie bool) *Handler {
	return &Handler{svc: svc, tokens: tokens, secureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/intake")
	g.GET("/vocabulary", h.GetVocabulary)
	g.POST("/sessions", h.StartSession)

	s := g.Group("", session.Middleware(h.tokens))
	s.GET("/draft", h.GetDraft)
	s.PUT("/draft", h.ReplaceDraft)
	s.PUT("/draft/fields/:field", h.SetField)
	s.POST("/draft/symptoms", h.ToggleSymptom)
	s.POST("/submit", h.Submit)
	s.POST("/restart", h.Restart)
	s.GET("/result", h.GetResult)
}

type sessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   *Session  `json:"session"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

type symptomRequest struct {
	Symptom string `json:"symptom"`
	Present bool   `json:"present"`
}

type failureResponse struct {
	Code    string `json:"code"`
	Group   string `json:"group"`
	Message string `json:"message"`
}

type submitResponse struct {
	Message string   `json:"message"`
	Receipt *Receipt `json:"receipt"`
}

func (h *Handler) GetVocabulary(c echo.Context) error {
	return c.JSON(http.StatusOK, DescribeVocabulary())
}

func (h *Handler) StartSession(c echo.Context) error {
	sess, err := h.svc.StartSession(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	token, exp, err := h.tokens.Issue(sess.ID, h.svc.SessionTTL())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.SetCookie(&http.Cookie{
		Name:     session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return c.JSON(http.StatusCreated, sessionResponse{Token: token, ExpiresAt: exp, Session: sess})
}

func (h *Handler) GetDraft(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ReplaceDraft(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var draft Record
	if err := c.Bind(&draft); err != nil {
		return bindError(err)
	}
	sess, err := h.svc.ReplaceDraft(c.Request().Context(), id, draft)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) SetField(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req fieldRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	sess, err := h.svc.SetField(c.Request().Context(), id, c.Param("field"), req.Value)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ToggleSymptom(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req symptomRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	sess, err := h.svc.ToggleSymptom(c.Request().Context(), id, req.Symptom, req.Present)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) Submit(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.Submit(c.Request().Context(), id)
	if err != nil {
		var failure ValidationFailure
		if errors.As(err, &failure) {
			return c.JSON(http.StatusUnprocessableEntity, failureResponse{
				Code:    failure.Code(),
				Group:   failure.Group(),
				Message: failure.Error(),
			})
		}
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, submitResponse{
		Message: "Patient data submitted successfully!",
		Receipt: sess.Receipt,
	})
}

func (h *Handler) Restart(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.Restart(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	rec, ok := h.svc.Result(c.Request().Context(), id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no assessment submitted yet")
	}
	return c.JSON(http.StatusOK, rec)
}

func sessionID(c echo.Context) (uuid.UUID, error) {
	id, ok := session.IDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "missing session")
	}
	return id, nil
}

// bindError keeps statuses raised while reading the body, such as 413 from
// the body limit, and reports anything else as a bad request.
func bindError(err error) error {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if he, ok := e.(*echo.HTTPError); ok && he.Code != http.StatusBadRequest {
			return he
		}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request timed out").SetInternal(err)
	case errors.Is(err, ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrSessionCommitted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}
