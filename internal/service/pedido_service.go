package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/pedido-service/internal/apperrors"
	"github.com/iliyamo/pedido-service/internal/dispatch"
	"github.com/iliyamo/pedido-service/internal/logger"
	"github.com/iliyamo/pedido-service/internal/model"
	"github.com/iliyamo/pedido-service/internal/queue"
)

// ProductFinder resolves catalog ids in one batched lookup.
type ProductFinder interface {
	FindByIDs(ctx context.Context, ids []uint64) ([]model.Product, error)
}

// PedidoCreator persists a pedido together with its single item row.
type PedidoCreator interface {
	CreateWithItem(ctx context.Context, p *model.Pedido, item model.PedidoItem) error
}

// Dispatcher forwards one pedido to the fulfillment queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, pedidoID uint64, items []dispatch.Item) error
}

// SubmitInput is the body of a submission after the handler has split it.
type SubmitInput struct {
	Items  json.RawMessage
	Status string
}

// Result is the per-pedido outcome of a submission.
type Result struct {
	PedidoID uint64 `json:"pedidoId"`
	OK       bool   `json:"ok"`
}

// SubmitResult is returned to the caller with 201 even when some
// dispatches failed.
type SubmitResult struct {
	Message string   `json:"message"`
	Results []Result `json:"results"`
}

type resolvedItem struct {
	product  model.Product
	quantity int
}

// PedidoService turns a produtos list into pedidos and dispatches them.
type PedidoService struct {
	products   ProductFinder
	pedidos    PedidoCreator
	dispatcher Dispatcher
	events     EventPublisher
	workers    int
	now        func() time.Time
}

// NewPedidoService wires the pipeline.  events may be nil.  workers bounds
// the number of dispatch calls in flight for one submission.
func NewPedidoService(products ProductFinder, pedidos PedidoCreator, d Dispatcher, events EventPublisher, workers int) *PedidoService {
	if workers < 1 {
		workers = 1
	}
	return &PedidoService{
		products:   products,
		pedidos:    pedidos,
		dispatcher: d,
		events:     events,
		workers:    workers,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit materializes one pedido per distinct, existing product in the
// input and dispatches each of them.
//
// Pedidos are created one at a time in input order, each header and item
// in its own transaction.  As soon as a pedido exists its dispatch is
// started on a bounded pool, so dispatch overlaps with the remaining
// writes.  A failed dispatch only flips that pedido's result to ok=false;
// nothing is rolled back.  A persistence failure stops the submission with
// an internal error after in-flight dispatches finish; pedidos created
// before it stay.
func (s *PedidoService) Submit(ctx context.Context, userID uint64, in SubmitInput) (SubmitResult, error) {
	set, err := ParseItems(in.Items)
	if err != nil {
		return SubmitResult{}, err
	}
	items, err := s.resolve(ctx, set)
	if err != nil {
		return SubmitResult{}, err
	}

	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = model.StatusReceived
	}

	// Dispatch must outlive a client that hangs up; the HTTP client
	// timeout bounds it instead.
	dctx := context.WithoutCancel(ctx)

	results := make([]Result, len(items))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, it := range items {
		p := &model.Pedido{Status: status, UserID: userID}
		if err := s.pedidos.CreateWithItem(ctx, p, model.PedidoItem{ProductID: it.product.ID, Quantity: it.quantity}); err != nil {
			_ = g.Wait()
			return SubmitResult{}, apperrors.Internal(err)
		}
		results[i].PedidoID = p.ID

		pedidoID := p.ID
		g.Go(func() error {
			results[i].OK = s.dispatch(dctx, userID, pedidoID, it)
			return nil
		})
	}
	_ = g.Wait()

	return SubmitResult{Message: "Pedidos criados", Results: results}, nil
}

// resolve loads the products named in set and returns them in the set's
// order.  Ids without a catalog row are dropped silently; an empty result
// is a bad request.
func (s *PedidoService) resolve(ctx context.Context, set ItemSet) ([]resolvedItem, error) {
	if set.Len() == 0 {
		return nil, apperrors.BadRequest("Nenhum produto encontrado.")
	}
	found, err := s.products.FindByIDs(ctx, set.IDs)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	byID := make(map[uint64]model.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	out := make([]resolvedItem, 0, len(found))
	for _, id := range set.IDs {
		p, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, resolvedItem{product: p, quantity: set.Quantity[id]})
	}
	if len(out) == 0 {
		return nil, apperrors.BadRequest("Nenhum produto encontrado.")
	}
	return out, nil
}

func (s *PedidoService) dispatch(ctx context.Context, userID, pedidoID uint64, it resolvedItem) bool {
	log := logger.With("pedido_id", pedidoID, "product_id", it.product.ID, "block", it.product.Block)

	err := s.dispatcher.Dispatch(ctx, pedidoID, []dispatch.Item{{Block: it.product.Block, Quantity: it.quantity}})
	if err != nil {
		log.Error("dispatch to fulfillment queue failed",
			"err", apperrors.Wrap(err, apperrors.KindDispatchFailure, "dispatch failed"))
	} else {
		log.Info("dispatched to fulfillment queue", "quantity", it.quantity)
	}

	if s.events != nil {
		ev := queue.PedidoDispatchedEvent{
			PedidoID:     pedidoID,
			UserID:       userID,
			ProductID:    it.product.ID,
			Block:        it.product.Block,
			Quantity:     it.quantity,
			OK:           err == nil,
			DispatchedAt: s.now().Format(time.RFC3339),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_ = s.events.PublishPedidoDispatched(pctx, ev)
		cancel()
	}
	return err == nil
}
