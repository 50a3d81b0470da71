// Package shipping maps a requested shipping method to a cost.
//
// The flat table below is a stand-in for a real carrier integration, which is
// an external collaborator: given a destination and weight it returns rated
// services (see RateProvider). The checkout pipeline only needs a cost per
// method, so the collaborator stays behind the Resolver interface.
package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// Method enumerates the supported shipping methods.
type Method string

const (
	MethodStandard Method = "standard"
	MethodExpress  Method = "express"
)

// ParseMethod normalizes a wire-level shipping method string. Unknown or
// empty values fall back to standard shipping.
func ParseMethod(s string) Method {
	if Method(s) == MethodExpress {
		return MethodExpress
	}
	return MethodStandard
}

// Resolver maps a shipping method to its cost for the given destination.
type Resolver interface {
	Cost(ctx context.Context, method Method, country string) (decimal.Decimal, error)
}

// FlatRates is a Resolver backed by a fixed per-method price table.
// Standard shipping is free; express carries a configured premium.
type FlatRates struct {
	Standard decimal.Decimal
	Express  decimal.Decimal
}

// Cost returns the flat cost for the method, ignoring the destination.
func (f FlatRates) Cost(_ context.Context, method Method, _ string) (decimal.Decimal, error) {
	if method == MethodExpress {
		return f.Express, nil
	}
	return f.Standard, nil
}

// Rate is one carrier-quoted service for a shipment.
type Rate struct {
	Cost         decimal.Decimal
	ServiceName  string
	DeliveryDays int
}

// RateProvider is the carrier collaborator contract: given a destination
// country and the total shipment weight in grams, it returns the available
// services ordered by cost. Not used by the flat resolver; a production
// deployment adapts a carrier client to Resolver through it.
type RateProvider interface {
	Rates(ctx context.Context, country string, weightGrams int) ([]Rate, error)
}
