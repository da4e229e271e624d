package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"marketplace-service/internal/domain"
	"marketplace-service/internal/store"
)

// InboxView is either a SellerInboxView or a BuyerInboxView.
type InboxView interface {
	Role() domain.Role
	inboxView()
}

// BuyerRef is a buyer who wrote to a seller about a product.
type BuyerRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// SellerThread groups the buyers who wrote about one of the seller's products.
type SellerThread struct {
	Product     domain.Product `json:"product"`
	Buyers      []BuyerRef     `json:"buyers"`
	UnreadCount int            `json:"unread_messages_count"`
}

// SellerInboxView lists the seller's products that have buyer messages.
type SellerInboxView struct {
	Threads []SellerThread `json:"products"`
}

func (SellerInboxView) Role() domain.Role { return domain.RoleSeller }
func (SellerInboxView) inboxView()        {}

// BuyerThread is the latest message a buyer exchanged about one product.
type BuyerThread struct {
	Product       domain.Product `json:"product"`
	LastMessage   string         `json:"last_message"`
	LastMessageAt time.Time      `json:"timestamp"`
}

// BuyerInboxView lists the products a buyer has messaged about.
type BuyerInboxView struct {
	Threads []BuyerThread `json:"products"`
}

func (BuyerInboxView) Role() domain.Role { return domain.RoleBuyer }
func (BuyerInboxView) inboxView()        {}

// MessagingService builds inboxes and reads and writes conversations.
type MessagingService struct {
	repo store.Repository
}

func NewMessagingService(repo store.Repository) *MessagingService {
	return &MessagingService{repo: repo}
}

// BuildInbox returns the inbox of actor, shaped by its role.
func (s *MessagingService) BuildInbox(ctx context.Context, actor domain.Actor) (InboxView, error) {
	switch actor.Role {
	case domain.RoleSeller:
		view, err := s.sellerInbox(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return view, nil
	case domain.RoleBuyer:
		view, err := s.buyerInbox(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		return view, nil
	default:
		return nil, permissionDeniedf("unknown role %q", actor.Role)
	}
}

func (s *MessagingService) sellerInbox(ctx context.Context, sellerID int64) (*SellerInboxView, error) {
	products, err := s.repo.ListProductsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("seller inbox: %w", err)
	}
	view := &SellerInboxView{Threads: []SellerThread{}}
	for _, product := range products {
		messages, err := s.repo.ListProductMessages(ctx, product.ID)
		if err != nil {
			return nil, fmt.Errorf("seller inbox: %w", err)
		}
		var buyers []BuyerRef
		seen := make(map[int64]bool)
		for _, m := range messages {
			if m.SenderID == sellerID || seen[m.SenderID] {
				continue
			}
			seen[m.SenderID] = true
			buyers = append(buyers, BuyerRef{ID: m.SenderID, Username: m.SenderUsername})
		}
		if len(buyers) == 0 {
			continue
		}
		unread, err := s.repo.CountUnread(ctx, product.ID, sellerID)
		if err != nil {
			return nil, fmt.Errorf("seller inbox: %w", err)
		}
		view.Threads = append(view.Threads, SellerThread{Product: product, Buyers: buyers, UnreadCount: unread})
	}
	return view, nil
}

func (s *MessagingService) buyerInbox(ctx context.Context, buyerID int64) (*BuyerInboxView, error) {
	messages, err := s.repo.ListUserMessages(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("buyer inbox: %w", err)
	}
	var (
		order  []int64
		latest = make(map[int64]domain.Message)
	)
	for _, m := range messages {
		if m.ProductID == nil {
			continue
		}
		if _, ok := latest[*m.ProductID]; ok {
			continue
		}
		latest[*m.ProductID] = m
		order = append(order, *m.ProductID)
	}
	products, err := s.repo.ListProductsByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("buyer inbox: %w", err)
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	view := &BuyerInboxView{Threads: []BuyerThread{}}
	for _, id := range order {
		product, ok := byID[id]
		if !ok {
			continue
		}
		m := latest[id]
		view.Threads = append(view.Threads, BuyerThread{
			Product:       product,
			LastMessage:   m.Content,
			LastMessageAt: m.CreatedAt,
		})
	}
	return view, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return validationErrorf("message content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return validationErrorf("message exceeds %d characters", domain.MaxMessageLength)
	}
	return nil
}

// PostMessage sends content from actor to counterpartID about productID.
func (s *MessagingService) PostMessage(ctx context.Context, actor domain.Actor, productID, counterpartID int64, content string) (*domain.Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if counterpartID == actor.ID {
		return nil, invalidOperationf("cannot message yourself")
	}
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	if _, err := s.repo.GetUserByID(ctx, counterpartID); err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	msg, err := s.repo.CreateMessage(ctx, &domain.Message{
		SenderID:   actor.ID,
		ReceiverID: counterpartID,
		ProductID:  &productID,
		Content:    content,
	})
	if err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	log.Debug("message posted", "message_id", msg.ID, "product_id", productID)
	return msg, nil
}

// SendToSeller opens or continues a buyer's thread with a product's seller.
func (s *MessagingService) SendToSeller(ctx context.Context, actor domain.Actor, productID int64, content string) (*domain.Message, error) {
	if !actor.IsBuyer() {
		return nil, permissionDeniedf("only buyers can message a seller about a product")
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("send to seller: %w", err)
	}
	return s.PostMessage(ctx, actor, productID, product.SellerID, content)
}

// GetConversation returns the messages between actor and counterpartID about
// productID, oldest first. A seller reading the thread marks the messages
// addressed to them as read in the same transaction; the result reflects it.
func (s *MessagingService) GetConversation(ctx context.Context, actor domain.Actor, productID, counterpartID int64) ([]domain.Message, error) {
	if _, err := s.repo.GetProductByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	if _, err := s.repo.GetUserByID(ctx, counterpartID); err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	var messages []domain.Message
	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		var err error
		messages, err = tx.ListConversation(ctx, productID, actor.ID, counterpartID)
		if err != nil || !actor.IsSeller() {
			return err
		}
		var unread []int64
		for _, m := range messages {
			if m.ReceiverID == actor.ID && !m.IsRead {
				unread = append(unread, m.ID)
			}
		}
		if len(unread) == 0 {
			return nil
		}
		if _, err := tx.MarkRead(ctx, unread); err != nil {
			return err
		}
		for i := range messages {
			if messages[i].ReceiverID == actor.ID {
				messages[i].IsRead = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	return messages, nil
}
