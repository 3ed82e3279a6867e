// Package services – priority resolution
//
// This file maps a customer's loyalty tier to a waitlist priority. The tier
// source is an external collaborator behind the LoyaltyLookup interface; the
// default implementation reads the tier column on the customer record, but a
// deployment can plug in a CRM or analytics client instead.
package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-waitlist-backend/internal/domain"
	"github.com/tbourn/go-waitlist-backend/internal/repo"
)

// LoyaltyLookup resolves a customer's current loyalty tier name. An empty
// string means the customer has no tier.
type LoyaltyLookup interface {
	CustomerTier(ctx context.Context, customerID string) (string, error)
}

// GormLoyaltyLookup reads the loyalty tier straight off the customer row.
type GormLoyaltyLookup struct {
	DB *gorm.DB
}

// CustomerTier implements LoyaltyLookup.
func (l GormLoyaltyLookup) CustomerTier(ctx context.Context, customerID string) (string, error) {
	c, err := repo.GetCustomer(ctx, l.DB, customerID)
	if err != nil {
		return "", err
	}
	return c.LoyaltyTier, nil
}

// ResolvePriority maps a tier name to a queue priority with case-insensitive
// substring matching: "elite" or "platinum" rank highest, "gold" mid, anything
// else base. Lookup failures resolve to the base tier — a broken loyalty
// service must never block a join.
func ResolvePriority(ctx context.Context, lookup LoyaltyLookup, customerID string) domain.Priority {
	tier, err := lookup.CustomerTier(ctx, customerID)
	if err != nil {
		log.Warn().Err(err).Str("customer_id", customerID).Msg("loyalty lookup failed, using base priority")
		return domain.PriorityRegular
	}
	t := strings.ToLower(tier)
	switch {
	case strings.Contains(t, "elite"), strings.Contains(t, "platinum"):
		return domain.PriorityElite
	case strings.Contains(t, "gold"):
		return domain.PriorityGold
	default:
		return domain.PriorityRegular
	}
}
