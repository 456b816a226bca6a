// Package stubapi is an in-memory stand-in for the console REST backend.
// It serves the board endpoints, enforces the same permission table as the
// console and can be told to fail mutations.
package stubapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"siteboard/domain"
	"siteboard/notify"
	"siteboard/session"
	"siteboard/views"
)

const headerIdempotencyKey = "Idempotency-Key"

// Authenticator resolves the caller of a request.
type Authenticator interface {
	IdentityFromHeader(h string) (session.Identity, error)
}

// Notifier announces changed boards.
type Notifier interface {
	Publish(ctx context.Context, ev notify.Event) error
}

// Server bundles the stub's collaborators.
type Server struct {
	Store    *Store
	Auth     Authenticator
	Deduper  Deduper
	Faults   *Faults
	Notifier Notifier
	Logger   *log.Logger
}

// Register wires up all stub routes on the provided Echo instance.
func Register(e *echo.Echo, s *Server) {
	if s.Deduper == nil {
		s.Deduper = NewMemoryDeduper()
	}
	if s.Faults == nil {
		s.Faults = &Faults{}
	}
	if s.Logger == nil {
		s.Logger = log.StandardLogger()
	}
	e.GET("/healthz", healthz())
	e.GET("/api/projects", getDirectory(s, s.Store.Projects))
	e.GET("/api/users", getDirectory(s, s.Store.Users))
	e.GET("/api/sites/:site/:resource", listItems(s))
	e.PATCH("/api/sites/:site/:resource/:id", patchStatus(s))
	e.DELETE("/api/sites/:site/:resource/:id", deleteItem(s))
	e.POST("/stub/faults", postFaults(s))
}

type listResponse struct {
	Items any `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type faultsRequest struct {
	Count   int `json:"count"`
	Code    int `json:"code"`
	DelayMs int `json:"delayMs"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func (s *Server) identity(c echo.Context) (session.Identity, error) {
	return s.Auth.IdentityFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
}

func definition(c echo.Context) (*views.Definition, error) {
	def, ok := views.Lookup(c.Param("resource"))
	if !ok {
		return nil, c.String(http.StatusNotFound, "unknown resource")
	}
	return def, nil
}

func getDirectory(s *Server, list func() []domain.Ref) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := s.identity(c); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		return c.JSON(http.StatusOK, list())
	}
}

func listItems(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := s.identity(c); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		def, err := definition(c)
		if def == nil {
			return err
		}
		items := s.Store.List(c.Param("site"), def)
		return c.JSON(http.StatusOK, listResponse{Items: def.Encode(items)})
	}
}

func patchStatus(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := s.identity(c)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		def, err := definition(c)
		if def == nil {
			return err
		}
		var body statusRequest
		if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		status, ok := def.ParseStatus(body.Status)
		if !ok {
			return c.String(http.StatusUnprocessableEntity, "unknown status")
		}
		site, itemID := c.Param("site"), c.Param("id")
		item, found := s.Store.Get(site, def, itemID)
		if !found {
			return c.String(http.StatusNotFound, errNotFound.Error())
		}
		if !def.Permits(id.Role, item, views.ActionTransition) {
			return c.String(http.StatusForbidden, "forbidden")
		}

		key := c.Request().Header.Get(headerIdempotencyKey)
		if key != "" {
			added, err := s.Deduper.Add(ctx, id.UserID, key)
			if err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, err.Error())
			}
			if !added {
				return c.NoContent(http.StatusNoContent)
			}
		}
		if code := s.fault(ctx); code != 0 {
			if key != "" {
				_ = s.Deduper.Remove(ctx, id.UserID, key)
			}
			return c.String(code, "injected failure")
		}
		if err := s.Store.SetStatus(site, def, itemID, status); err != nil {
			if key != "" {
				_ = s.Deduper.Remove(ctx, id.UserID, key)
			}
			if errors.Is(err, errNotFound) {
				return c.String(http.StatusNotFound, err.Error())
			}
			return c.String(http.StatusUnprocessableEntity, err.Error())
		}
		s.Logger.WithFields(log.Fields{
			"site":     site,
			"resource": def.Resource,
			"item":     itemID,
			"from":     item.Status,
			"to":       status,
			"user":     id.UserID,
		}).Info("stub.transition")
		s.publish(ctx, site, def)
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteItem(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := s.identity(c)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		def, err := definition(c)
		if def == nil {
			return err
		}
		site, itemID := c.Param("site"), c.Param("id")
		item, found := s.Store.Get(site, def, itemID)
		if !found {
			return c.String(http.StatusNotFound, errNotFound.Error())
		}
		if !def.Permits(id.Role, item, views.ActionDelete) {
			return c.String(http.StatusForbidden, "forbidden")
		}
		if code := s.fault(ctx); code != 0 {
			return c.String(code, "injected failure")
		}
		if err := s.Store.Delete(site, def, itemID); err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		s.Logger.WithFields(log.Fields{"site": site, "resource": def.Resource, "item": itemID, "user": id.UserID}).Info("stub.delete")
		s.publish(ctx, site, def)
		return c.NoContent(http.StatusNoContent)
	}
}

func postFaults(s *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body faultsRequest
		if err := sonic.ConfigStd.NewDecoder(c.Request().Body).Decode(&body); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		s.Faults.Inject(body.Count, body.Code)
		s.Faults.SetDelay(time.Duration(body.DelayMs) * time.Millisecond)
		return c.NoContent(http.StatusNoContent)
	}
}

func (s *Server) fault(ctx context.Context) int {
	code, delay := s.Faults.next()
	if delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}
	return code
}

func (s *Server) publish(ctx context.Context, site string, def *views.Definition) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, notify.Event{Site: site, Resource: def.Resource}); err != nil {
		s.Logger.Warnf("publish board update: %v", err)
	}
}
