package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wboard/connector/kv"
)

var ErrTokenNotFound = errors.New("autologin token not found")

// AutologinStore maps single-use tokens to user ids.
type AutologinStore struct {
	store  kv.Store
	prefix string
}

func NewAutologinStore(store kv.Store, prefix string) *AutologinStore {
	if prefix == "" {
		prefix = "wboard"
	}
	return &AutologinStore{
		store:  store,
		prefix: prefix,
	}
}

func (s *AutologinStore) key(token string) string {
	return s.prefix + ":autologin:" + token
}

// Save stores token -> userID for ttl.
func (s *AutologinStore) Save(ctx context.Context, token string, userID int64, ttl time.Duration) error {
	if token == "" {
		return errors.New("empty autologin token")
	}
	if ttl <= 0 {
		return errors.New("autologin token requires a ttl")
	}

	ok, err := s.store.SetNX(ctx, s.key(token), strconv.FormatInt(userID, 10), ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return errors.New("autologin token collision")
	}
	return nil
}

// Consume resolves token and deletes it in the same atomic step. A second
// Consume of the same token always returns ErrTokenNotFound.
func (s *AutologinStore) Consume(ctx context.Context, token string) (int64, error) {
	value, err := s.store.Take(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrTokenNotFound
	}
	return userID, nil
}
