package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/config"
	"github.com/iliyamo/pedido-service/internal/model"
	"github.com/iliyamo/pedido-service/internal/repository"
	"github.com/iliyamo/pedido-service/internal/service"
)

// PedidoStore is implemented by repository.PedidoRepo.
type PedidoStore interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.Pedido, error)
	GetByID(ctx context.Context, id uint64) (*model.Pedido, error)
	Update(ctx context.Context, id uint64, fields map[string]any) (*model.Pedido, error)
	SetStatus(ctx context.Context, id uint64, status string) (*model.Pedido, error)
	Delete(ctx context.Context, id uint64) error
}

// Submitter is implemented by service.PedidoService.
type Submitter interface {
	Submit(ctx context.Context, userID uint64, in service.SubmitInput) (service.SubmitResult, error)
}

// PedidoHandler serves /pedidos.
type PedidoHandler struct {
	Pedidos   PedidoStore
	Submitter Submitter
	Columns   config.ColumnSet
}

func NewPedidoHandler(pedidos PedidoStore, submitter Submitter, columns config.ColumnSet) *PedidoHandler {
	return &PedidoHandler{Pedidos: pedidos, Submitter: submitter, Columns: columns}
}

// createPedidoReq keeps produtos raw: its shape is decided by the service.
// Any other base field in the body is ignored; ownership always comes from
// the token.
type createPedidoReq struct {
	Produtos json.RawMessage `json:"produtos"`
	Status   string          `json:"status"`
}

var errPedidoNotFound = apperrors.NotFound("Pedido não encontrado.")

// Create splits the submission into one pedido per product and dispatches
// each.  It answers 201 even when some dispatches failed.
func (h *PedidoHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createPedidoReq
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperrors.BadRequest("Produtos são obrigatórios."))
	}

	res, err := h.Submitter.Submit(c.Request().Context(), uid, service.SubmitInput{
		Items:  req.Produtos,
		Status: req.Status,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// List returns the caller's pedidos, newest first.
func (h *PedidoHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	list, err := h.Pedidos.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []model.Pedido{}
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns one pedido with its items.
func (h *PedidoHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Pedidos.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, errPedidoNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Update applies a generic update limited to the pedido allow-list.
func (h *PedidoHandler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	fields, keys, err := decodeFields(c)
	if err != nil {
		return respondError(c, err)
	}
	if _, ok := h.Columns.Allows(keys); !ok {
		return respondError(c, errUnknownColumns)
	}
	if err := normalizePedidoFields(fields); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Pedidos.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, errPedidoNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Pedido atualizado!", "data": p})
}

// normalizePedidoFields converts JSON values into what the columns store.
func normalizePedidoFields(fields map[string]any) error {
	for k, v := range fields {
		switch k {
		case "status":
			s, ok := v.(string)
			if !ok || strings.TrimSpace(s) == "" {
				return apperrors.BadRequest("status inválido")
			}
			fields[k] = strings.TrimSpace(s)
		case "userId":
			id, ok := toUserID(v)
			if !ok {
				return apperrors.BadRequest("userId inválido")
			}
			fields[k] = id
		case "createdAt", "updatedAt":
			s, _ := v.(string)
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return apperrors.BadRequest(k + " inválido")
			}
			fields[k] = t.UTC()
		}
	}
	return nil
}

func toUserID(v any) (uint64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = t
	default:
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	return id, err == nil && id > 0
}

// Delete removes a pedido together with its item rows.
func (h *PedidoHandler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Pedidos.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, errPedidoNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Pedido deletado com sucesso!"})
}

// UpdateStatus is the callback target handed to the fulfillment queue.
// The status comes from ?status= or the JSON body; any value is accepted.
func (h *PedidoHandler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	status := strings.TrimSpace(c.QueryParam("status"))
	if status == "" {
		var body struct {
			Status string `json:"status"`
		}
		_ = json.NewDecoder(c.Request().Body).Decode(&body)
		status = strings.TrimSpace(body.Status)
	}
	if status == "" {
		return respondError(c, apperrors.BadRequest("status é obrigatório"))
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Pedidos.SetStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, errPedidoNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Pedido atualizado!", "data": p})
}
