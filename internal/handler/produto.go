package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/config"
	"github.com/iliyamo/pedido-service/internal/logger"
	"github.com/iliyamo/pedido-service/internal/model"
	"github.com/iliyamo/pedido-service/internal/repository"
)

// ProductStore is implemented by repository.ProductRepo.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, id uint64, fields map[string]any) (*model.Product, error)
	Delete(ctx context.Context, id uint64) error
}

// ProductHandler serves /produtos.  Invalidate, when set, runs after every
// successful write so cached listings never outlive a change.
type ProductHandler struct {
	Products   ProductStore
	Columns    config.ColumnSet
	Invalidate func(ctx context.Context) error
}

func NewProductHandler(products ProductStore, columns config.ColumnSet, invalidate func(ctx context.Context) error) *ProductHandler {
	return &ProductHandler{Products: products, Columns: columns, Invalidate: invalidate}
}

type createProductReq struct {
	Size    string `json:"tamanho" validate:"required"`
	Model   string `json:"modelo" validate:"required"`
	Fabric  string `json:"tecido" validate:"required"`
	Color   string `json:"cor" validate:"required"`
	Pattern string `json:"estampa" validate:"required"`
	Block   string `json:"bloco" validate:"required"`
}

var (
	errProductNotFound = apperrors.NotFound("Produto não encontrado!")
	errProductNotOwned = apperrors.Forbidden("Produto não pertence ao usuário")
	errUnknownColumns  = apperrors.BadRequest("Colunas não existentes")
)

func (h *ProductHandler) invalidate(ctx context.Context) {
	if h.Invalidate == nil {
		return
	}
	if err := h.Invalidate(context.WithoutCancel(ctx)); err != nil {
		logger.L().Warn("product cache invalidation failed", "err", err)
	}
}

// Create adds a product owned by the caller.
func (h *ProductHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createProductReq
	if err := bindValid(c, &req, "Todos os campos de produto são obrigatórios."); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	p := &model.Product{
		UserID:  uid,
		Size:    strings.TrimSpace(req.Size),
		Model:   strings.TrimSpace(req.Model),
		Fabric:  strings.TrimSpace(req.Fabric),
		Color:   strings.TrimSpace(req.Color),
		Pattern: strings.TrimSpace(req.Pattern),
		Block:   strings.TrimSpace(req.Block),
	}
	if err := h.Products.Create(ctx, p); err != nil {
		return respondError(c, err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusCreated, p)
}

// List returns the whole catalog.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	list, err := h.Products.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	if list == nil {
		list = []model.Product{}
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns one product.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, errProductNotFound)
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// owned loads product id and checks the caller owns it.
func (h *ProductHandler) owned(ctx context.Context, id, uid uint64) error {
	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errProductNotFound
		}
		return err
	}
	if p.UserID != uid {
		return errProductNotOwned
	}
	return nil
}

// Update applies a partial update restricted to the product allow-list.
// Ownership is checked before anything is written.
func (h *ProductHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
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
	for _, k := range keys {
		s, ok := fields[k].(string)
		if !ok || strings.TrimSpace(s) == "" {
			return respondError(c, apperrors.BadRequest("Valor inválido para "+k))
		}
		fields[k] = strings.TrimSpace(s)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.owned(ctx, id, uid); err != nil {
		return respondError(c, err)
	}
	p, err := h.Products.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondError(c, errProductNotFound)
		}
		return respondError(c, err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "Produto atualizado!", "data": p})
}

// Delete removes a product the caller owns.  Products still referenced by
// a pedido are kept and reported as a conflict.
func (h *ProductHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.owned(ctx, id, uid); err != nil {
		return respondError(c, err)
	}
	if err := h.Products.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return respondError(c, errProductNotFound)
		case errors.Is(err, repository.ErrConflict):
			return respondError(c, apperrors.Conflict("Produto possui pedidos vinculados"))
		}
		return respondError(c, err)
	}
	h.invalidate(ctx)
	return c.JSON(http.StatusOK, echo.Map{"message": "Produto deletado com sucesso!"})
}
