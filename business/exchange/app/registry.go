package app

import (
	"github.com/fd1az/depositwatch/business/exchange/domain"
	"github.com/fd1az/depositwatch/internal/apperror"
)

// Registry holds the configured gateways keyed by exchange.
type Registry struct {
	gateways map[domain.ExchangeID]Gateway
}

// NewRegistry builds a registry from the given gateways.
func NewRegistry(gateways ...Gateway) *Registry {
	m := make(map[domain.ExchangeID]Gateway, len(gateways))
	for _, g := range gateways {
		m[g.ID()] = g
	}
	return &Registry{gateways: m}
}

// Lookup returns the gateway for id.
func (r *Registry) Lookup(id domain.ExchangeID) (Gateway, error) {
	g, ok := r.gateways[id]
	if !ok {
		return nil, apperror.New(apperror.CodeExchangeUnknown,
			apperror.WithContext("exchange: "+id.String()))
	}
	return g, nil
}

// IDs returns the configured exchanges in display order.
func (r *Registry) IDs() []domain.ExchangeID {
	var ids []domain.ExchangeID
	for _, id := range domain.All() {
		if _, ok := r.gateways[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Len returns the number of configured gateways.
func (r *Registry) Len() int {
	return len(r.gateways)
}
