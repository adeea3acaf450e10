package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/logger"
	"github.com/iliyamo/pedido-service/internal/middleware"
	"github.com/iliyamo/pedido-service/internal/repository"
	"github.com/iliyamo/pedido-service/internal/validator"
)

// requestTimeout bounds the persistence work of one request.  Order
// submission is not wrapped: dispatch has its own client timeout.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respondError writes err as {"error": msg}.  Client errors carry their
// own message; anything unexpected is logged and reported as a bare 500.
func respondError(c echo.Context, err error) error {
	if ae, ok := apperrors.As(err); ok && ae.Kind != apperrors.KindInternal {
		return c.JSON(ae.HTTPStatus(), echo.Map{"error": ae.Message})
	}
	var ve *validator.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error()})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrUnknownColumn):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": errUnknownColumns.Message})
	}

	logger.L().Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"err", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// getUserID returns the id JWTAuth put on the context.
func getUserID(c echo.Context) (uint64, error) {
	if id := middleware.UserID(c); id != 0 {
		return id, nil
	}
	return 0, apperrors.Unauthorized("missing token")
}

func parseID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.BadRequest("id inválido")
	}
	return id, nil
}

// bindValid binds the body into dst and runs the registered validator.
// Any failure becomes a BadRequest carrying msg.
func bindValid(c echo.Context, dst any, msg string) error {
	if err := c.Bind(dst); err != nil {
		return apperrors.BadRequest(msg)
	}
	if err := c.Validate(dst); err != nil {
		return apperrors.Wrap(err, apperrors.KindBadRequest, msg)
	}
	return nil
}

// decodeFields reads a JSON object body for generic updates and returns
// its keys sorted.  An empty body is an empty update.
func decodeFields(c echo.Context) (map[string]any, []string, error) {
	fields := map[string]any{}
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, apperrors.BadRequest("corpo inválido")
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fields, keys, nil
}
