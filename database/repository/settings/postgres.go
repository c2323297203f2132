package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"faredown/models"

	"github.com/jmoiron/sqlx"
)

// PostgresSettingsRepo implements Repository over sqlx.
type PostgresSettingsRepo struct {
	db *sqlx.DB
}

func NewPostgresSettingsRepo(db *sqlx.DB) *PostgresSettingsRepo {
	return &PostgresSettingsRepo{db: db}
}

// GetSettings loads the base row for the module, then applies the most
// specific matching market rule (city beats country, country beats global).
func (r *PostgresSettingsRepo) GetSettings(ctx context.Context, module, countryCode, city string) (*models.ModuleSettings, error) {
	var base models.ModuleSettings
	err := r.db.GetContext(ctx, &base,
		`SELECT module, enabled, attempts, r1_timer_sec, r2_timer_sec,
		        current_fare_min_pct, current_fare_max_pct,
		        bargain_fare_min_pct, bargain_fare_max_pct, updated_at
		 FROM bargain_settings WHERE module = $1`, module)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no bargain settings found for module %q", module)
		}
		return nil, fmt.Errorf("failed to load bargain settings: %w", err)
	}

	if countryCode == "" && city == "" {
		return &base, nil
	}

	var rule models.MarketRule
	err = r.db.GetContext(ctx, &rule,
		`SELECT module, country_code, city, attempts, r1_timer_sec, r2_timer_sec,
		        current_fare_min_pct, current_fare_max_pct,
		        bargain_fare_min_pct, bargain_fare_max_pct
		 FROM bargain_market_rules
		 WHERE module = $1
		   AND (country_code = $2 OR country_code IS NULL)
		   AND (city = $3 OR city IS NULL)
		 ORDER BY
		   CASE WHEN city IS NOT NULL THEN 1 ELSE 2 END,
		   CASE WHEN country_code IS NOT NULL THEN 1 ELSE 2 END
		 LIMIT 1`, module, countryCode, city)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &base, nil
		}
		return nil, fmt.Errorf("failed to load market rules: %w", err)
	}

	mergeRule(&base, rule)
	return &base, nil
}

// GetPromoCode returns an active promo valid for the module, or nil when
// the code is unknown, inactive, or scoped to a different module.
func (r *PostgresSettingsRepo) GetPromoCode(ctx context.Context, code, module string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.GetContext(ctx, &promo,
		`SELECT code, discount_amount, discount_percent, module, active
		 FROM promo_codes
		 WHERE code = $1 AND active = TRUE AND (module = '' OR module = $2)`,
		code, module)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up promo code: %w", err)
	}
	return &promo, nil
}

func mergeRule(base *models.ModuleSettings, rule models.MarketRule) {
	if rule.Attempts != nil {
		base.Attempts = *rule.Attempts
	}
	if rule.Round1TimerSec != nil {
		base.Round1TimerSec = *rule.Round1TimerSec
	}
	if rule.Round2TimerSec != nil {
		base.Round2TimerSec = *rule.Round2TimerSec
	}
	if rule.CurrentFareMinPct != nil {
		base.CurrentFareMinPct = *rule.CurrentFareMinPct
	}
	if rule.CurrentFareMaxPct != nil {
		base.CurrentFareMaxPct = *rule.CurrentFareMaxPct
	}
	if rule.BargainFareMinPct != nil {
		base.BargainFareMinPct = *rule.BargainFareMinPct
	}
	if rule.BargainFareMaxPct != nil {
		base.BargainFareMaxPct = *rule.BargainFareMaxPct
	}
}
