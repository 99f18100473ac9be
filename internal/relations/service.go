// Package relations is the operation surface over the challenge and friend
// machines. Every method returns a result envelope and never an error.
package relations

import (
	"github.com/park285/cheese-social/internal/challenge"
	"github.com/park285/cheese-social/internal/friend"
	"github.com/park285/cheese-social/internal/msgcat"
	"github.com/park285/cheese-social/internal/obslog"
	"github.com/park285/cheese-social/internal/relerr"
	"go.uber.org/zap"
)

type Service struct {
	challenges *challenge.Machine
	friends    *friend.Machine
	cat        *msgcat.Catalog
}

// New wires the machines. cat may be nil, in which case the built-in
// English texts are used.
func New(challenges *challenge.Machine, friends *friend.Machine, cat *msgcat.Catalog) *Service {
	return &Service{challenges: challenges, friends: friends, cat: cat}
}

// text renders a success message from the catalog.
func (s *Service) text(key, fallback string) string {
	return s.cat.Text(key, nil, fallback)
}

// failure classifies err, logs it and returns the user-facing message and code.
func (s *Service) failure(op string, err error) (string, string) {
	e := relerr.As(err)
	if e.Kind == relerr.KindStoreFailure {
		obslog.L().Error("relation_store_error", zap.String("op", op), zap.Error(err))
	} else {
		obslog.L().Debug("relation_rejected", zap.String("op", op), zap.String("kind", string(e.Kind)), zap.String("key", e.Key))
	}
	var data any
	if e.Data != nil {
		data = e.Data
	}
	return s.cat.Text(e.Key, data, e.Msg), string(e.Kind)
}
