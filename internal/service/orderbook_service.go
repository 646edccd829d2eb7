package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evetabi/easybet/internal/domain"
	"github.com/evetabi/easybet/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderBookService runs the secondary market. It moves custody and sale
// proceeds only; stake, odds and pool state are never read or written here.
type OrderBookService struct {
	store  store.Store
	escrow *EscrowLedger
	clock  Clock
	notifier
}

// NewOrderBookService creates an OrderBookService.
func NewOrderBookService(st store.Store, escrow *EscrowLedger, clock Clock, logger *slog.Logger) *OrderBookService {
	return &OrderBookService{
		store:    st,
		escrow:   escrow,
		clock:    clock,
		notifier: notifier{log: logger},
	}
}

// SetPublisher injects the event sink post-construction.
func (s *OrderBookService) SetPublisher(p Publisher) { s.pub = p }

// ──────────────────────────────────────────────────────────────────────────────
// CreateOrder
// ──────────────────────────────────────────────────────────────────────────────

// CreateOrder lists ticketID for sale at price. The ticket moves into escrow
// custody for as long as the order stays active.
func (s *OrderBookService) CreateOrder(ctx context.Context, ticketID int64, price decimal.Decimal, seller uuid.UUID) (*domain.Order, error) {
	now := s.clock.Now()
	var order *domain.Order

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetTicket(ctx, ticketID); err != nil {
			return err
		}
		owner, err := tx.OwnerOf(ctx, ticketID)
		if err != nil {
			return err
		}
		if owner != seller {
			return domain.ErrNotOwner
		}
		if err := domain.ValidatePrice(price); err != nil {
			return err
		}

		if err := s.escrow.HoldTicket(ctx, tx, ticketID, seller); err != nil {
			return err
		}
		order = &domain.Order{
			TicketID:  ticketID,
			Seller:    seller,
			Price:     price,
			Active:    true,
			Status:    domain.OrderOpen,
			CreatedAt: now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTx("orderbook_service.CreateOrder", err)
	}

	s.emit(ctx, domain.EventOrderCreated, domain.OrderCreatedPayload{
		OrderID:  order.ID,
		TicketID: ticketID,
		Seller:   seller,
		Price:    price,
	}, now)
	return order, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// FillOrder
// ──────────────────────────────────────────────────────────────────────────────

// FillOrder buys an active order. The price moves from buyer to seller
// against the buyer's allowance to escrow, the ticket moves from escrow to
// buyer, and the order closes, all in one transaction.
func (s *OrderBookService) FillOrder(ctx context.Context, orderID int64, buyer uuid.UUID) (*domain.Order, error) {
	now := s.clock.Now()
	var order *domain.Order

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Active {
			return domain.ErrOrderInactive
		}

		if err := s.escrow.SettleSale(ctx, tx, buyer, o.Seller, o.Price, o.ID, now); err != nil {
			return err
		}
		if err := s.escrow.ReleaseTicket(ctx, tx, o.TicketID, buyer); err != nil {
			return fmt.Errorf("release ticket: %w", err)
		}

		b := buyer
		o.Close(domain.OrderFilled, &b, now)
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("close order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, wrapTx("orderbook_service.FillOrder", err)
	}

	s.emit(ctx, domain.EventOrderFilled, domain.OrderFilledPayload{
		OrderID:  order.ID,
		TicketID: order.TicketID,
		Buyer:    buyer,
		Seller:   order.Seller,
		Price:    order.Price,
	}, now)
	return order, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CancelOrder
// ──────────────────────────────────────────────────────────────────────────────

// CancelOrder withdraws an active order and returns the ticket to its seller.
func (s *OrderBookService) CancelOrder(ctx context.Context, orderID int64, caller uuid.UUID) (*domain.Order, error) {
	now := s.clock.Now()
	var order *domain.Order

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Active {
			return domain.ErrOrderInactive
		}
		if o.Seller != caller {
			return domain.ErrUnauthorized
		}

		if err := s.escrow.ReleaseTicket(ctx, tx, o.TicketID, o.Seller); err != nil {
			return fmt.Errorf("release ticket: %w", err)
		}
		o.Close(domain.OrderCancelled, nil, now)
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("close order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, wrapTx("orderbook_service.CancelOrder", err)
	}

	s.emit(ctx, domain.EventOrderCancelled, domain.OrderCancelledPayload{
		OrderID:  order.ID,
		TicketID: order.TicketID,
		Seller:   order.Seller,
	}, now)
	return order, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// GetOrder returns one order in any status.
func (s *OrderBookService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// GetOrderBook returns the active listings for a ticket, flagged when the
// ticket's activity has already been settled.
func (s *OrderBookService) GetOrderBook(ctx context.Context, ticketID int64) ([]domain.OrderBookEntry, error) {
	t, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetActivity(ctx, t.ActivityID)
	if err != nil {
		return nil, fmt.Errorf("orderbook_service.GetOrderBook: activity: %w", err)
	}
	orders, err := s.store.ListActiveOrdersByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("orderbook_service.GetOrderBook: %w", err)
	}
	book := make([]domain.OrderBookEntry, 0, len(orders))
	for _, o := range orders {
		book = append(book, domain.OrderBookEntry{OrderID: o.ID, Price: o.Price, ActivitySettled: a.Settled})
	}
	return book, nil
}

// ListActiveOrders returns a page of open listings, oldest first.
func (s *OrderBookService) ListActiveOrders(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	limit, offset = clampPage(limit, offset)
	orders, err := s.store.ListActiveOrders(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("orderbook_service.ListActiveOrders: %w", err)
	}
	return orders, nil
}
