// Package cart implements the volume-constrained cart accumulator. Every
// operation returns a human-readable outcome string: cap overruns, missing
// products and over-removal are normal business outcomes surfaced to the
// conversation, never errors.
package cart

import (
	"context"
	"fmt"
	"math"

	"github.com/cartwheel-ai/cartwheel/session"
)

// DefaultMaxVolume is the default cart volume cap in liters.
const DefaultMaxVolume = 15.0

const (
	additionMessage       = "Product successfully added to the cart!"
	removalMessage        = "Product units successfully removed from the cart!"
	belowZeroMessage      = "The number of units to remove is greater than the number of units in the cart. Therefore, this operation only completely removed the product."
	notFoundMessage       = "Product not found in the cart."
	notRecommendedMessage = "Product not found in the catalog recommendations."
)

// Outcome reports the result of a cart edit. Units is the count actually
// applied, which may be lower than requested when the volume cap truncates
// an addition or a removal exceeds what the cart holds.
type Outcome struct {
	Message string
	Units   int
}

// Engine mutates carts through the session store. Each operation is one
// atomic read-modify-write, so sequential operations within a turn observe
// each other's effects.
type Engine struct {
	store     session.Store
	maxVolume float64
}

// NewEngine creates an Engine with the given volume cap in liters.
// A cap of 0 or less selects DefaultMaxVolume.
func NewEngine(store session.Store, maxVolume float64) *Engine {
	if maxVolume <= 0 {
		maxVolume = DefaultMaxVolume
	}
	return &Engine{store: store, maxVolume: maxVolume}
}

// Add puts units of a recommended product into the cart. When the
// requested count would push the cart past the volume cap, the count is
// truncated to the largest number of whole units that still fits (possibly
// zero) and the outcome says so; the request is never silently dropped.
// Adding a product already in the cart merges into its line item.
func (e *Engine) Add(ctx context.Context, sessionID, productName string, units int) (Outcome, error) {
	var out Outcome
	err := e.store.Update(ctx, sessionID, func(s *session.State) error {
		product, ok := s.FindRecommended(productName)
		if !ok {
			out = Outcome{Message: notRecommendedMessage}
			return nil
		}

		if s.CartVolume()+product.UnitVolume*float64(units) > e.maxVolume {
			remaining := e.maxVolume - s.CartVolume()
			units = int(math.Floor(remaining / product.UnitVolume))
			if units > 0 {
				out.Message = fmt.Sprintf("The maximum volume of %v liters per order has been exceeded. The number of units has been adjusted to %d.\n", e.maxVolume, units)
			} else {
				units = 0
				out.Message = fmt.Sprintf("The maximum volume of %v liters per order has been exceeded. The product was not added to the cart.\n", e.maxVolume)
			}
		} else {
			out.Message = additionMessage
		}

		out.Units = units
		if units > 0 {
			addLine(s, product, units)
		}
		return nil
	})
	return out, err
}

func addLine(s *session.State, product session.Product, units int) {
	for i := range s.Cart {
		if s.Cart[i].Name == product.Name {
			s.Cart[i].Units += units
			return
		}
	}
	s.Cart = append(s.Cart, session.LineItem{
		Name:       product.Name,
		Units:      units,
		UnitPrice:  product.UnitPrice,
		UnitVolume: product.UnitVolume,
	})
}

// Remove takes units of a product out of the cart. Removing at or beyond
// the present count deletes the line item; removing more than present
// additionally reports the over-removal. A product not in the cart yields
// the not-found outcome.
func (e *Engine) Remove(ctx context.Context, sessionID, productName string, units int) (Outcome, error) {
	out := Outcome{Message: notFoundMessage}
	err := e.store.Update(ctx, sessionID, func(s *session.State) error {
		for i := range s.Cart {
			if s.Cart[i].Name != productName {
				continue
			}

			present := s.Cart[i].Units
			left := present - units
			if left <= 0 {
				s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
			} else {
				s.Cart[i].Units = left
			}

			if left < 0 {
				out = Outcome{Message: belowZeroMessage, Units: present}
			} else {
				out = Outcome{Message: removalMessage, Units: units}
			}
			return nil
		}
		return nil
	})
	return out, err
}

// Summary renders the cart as one line per item plus price and volume
// totals.
func (e *Engine) Summary(ctx context.Context, sessionID string) (string, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}

	var totalPrice, totalVolume float64
	summary := "Your cart summary:\n"

	for _, item := range state.Cart {
		totalPrice += item.UnitPrice * float64(item.Units)
		totalVolume += item.UnitVolume * float64(item.Units)

		if item.Units > 1 {
			summary += fmt.Sprintf("- %s, %d units, each at R$%.2f  \n", item.Name, item.Units, item.UnitPrice)
		} else {
			summary += fmt.Sprintf("- %s, 1 unit, at R$%.2f  \n", item.Name, item.UnitPrice)
		}
	}

	summary += fmt.Sprintf("Total cart value: R$%.2f  \n", totalPrice)
	summary += fmt.Sprintf("Total cart volume: %vL", math.Round(totalVolume*1000)/1000)

	return summary, nil
}
