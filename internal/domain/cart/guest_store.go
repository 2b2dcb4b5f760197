package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const maxGuestCartRetries = 5

// GuestStore keeps a guest cart as one JSON document per session in redis
type GuestStore struct {
	client *redis.Client
	ttl    time.Duration
	log    logrus.FieldLogger
}

// NewGuestStore creates a redis-backed cart store
func NewGuestStore(client *redis.Client, ttl time.Duration, log logrus.FieldLogger) *GuestStore {
	return &GuestStore{client: client, ttl: ttl, log: log}
}

func guestCartKey(sessionID string) string {
	return fmt.Sprintf("cart:session:%s", sessionID)
}

func (s *GuestStore) List(ctx context.Context, id Identity) ([]Item, error) {
	if id.SessionID == "" {
		return []Item{}, nil
	}

	cart, err := s.load(ctx, s.client, id.SessionID)
	if err != nil {
		return nil, err
	}
	return cart.Items, nil
}

func (s *GuestStore) Add(ctx context.Context, id Identity, item Item) error {
	return s.mutate(ctx, id.SessionID, func(cart *GuestCart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID == item.ProductID {
				cart.Items[i].Quantity += item.Quantity
				cart.Items[i].Price = item.Price
				return nil
			}
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = time.Now().UTC()
		}
		cart.Items = append(cart.Items, item)
		return nil
	})
}

func (s *GuestStore) SetQuantity(ctx context.Context, id Identity, productID uint, quantity int) error {
	return s.mutate(ctx, id.SessionID, func(cart *GuestCart) error {
		for i := range cart.Items {
			if cart.Items[i].ProductID == productID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
		return ErrItemNotFound
	})
}

func (s *GuestStore) Remove(ctx context.Context, id Identity, productID uint) error {
	return s.mutate(ctx, id.SessionID, func(cart *GuestCart) error {
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		cart.Items = kept
		return nil
	})
}

func (s *GuestStore) Clear(ctx context.Context, id Identity) error {
	if id.SessionID == "" {
		return nil
	}
	if err := s.client.Del(ctx, guestCartKey(id.SessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}

// mutate applies fn under WATCH so concurrent requests on one session do not lose updates
func (s *GuestStore) mutate(ctx context.Context, sessionID string, fn func(*GuestCart) error) error {
	if sessionID == "" {
		return errors.New("session ID required for guest cart")
	}
	key := guestCartKey(sessionID)

	txf := func(tx *redis.Tx) error {
		cart, err := s.load(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}

		cart.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(cart)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxGuestCartRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrItemNotFound) {
			return fmt.Errorf("failed to save guest cart: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to save guest cart: too much contention on %s", key)
}

// load treats a missing or unreadable document as an empty cart
func (s *GuestStore) load(ctx context.Context, r redis.Cmdable, sessionID string) (*GuestCart, error) {
	empty := &GuestCart{SessionID: sessionID, Items: []Item{}}

	data, err := r.Get(ctx, guestCartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	var cart GuestCart
	if err := json.Unmarshal(data, &cart); err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Discarding unreadable guest cart")
		return empty, nil
	}

	// Lines for the same product fold together the way Add does
	valid := make([]Item, 0, len(cart.Items))
	seen := make(map[uint]int, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			continue
		}
		if i, ok := seen[item.ProductID]; ok {
			valid[i].Quantity += item.Quantity
			valid[i].Price = item.Price
			continue
		}
		seen[item.ProductID] = len(valid)
		valid = append(valid, item)
	}
	cart.Items = valid
	cart.SessionID = sessionID
	return &cart, nil
}
