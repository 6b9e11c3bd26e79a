package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionTier is the billing tier a user belongs to.
type SubscriptionTier string

const (
	TierFree     SubscriptionTier = "free"
	TierOneTime  SubscriptionTier = "one_time"
	TierPro      SubscriptionTier = "pro"
	TierPremium  SubscriptionTier = "premium"
	TierLifetime SubscriptionTier = "lifetime"
)

// Quota-guarded features.
const (
	FeatureSession   = "interview_session"
	FeatureSynthesis = "tts_synthesis"
)

// tierLimits holds the daily per-feature allowance by tier.
// Zero means the feature is not available on the tier; -1 is unlimited.
var tierLimits = map[SubscriptionTier]map[string]int{
	TierFree:     {FeatureSession: 3, FeatureSynthesis: 20},
	TierOneTime:  {FeatureSession: 5, FeatureSynthesis: 50},
	TierPro:      {FeatureSession: 15, FeatureSynthesis: 200},
	TierPremium:  {FeatureSession: 30, FeatureSynthesis: 500},
	TierLifetime: {FeatureSession: -1, FeatureSynthesis: -1},
}

// DailyLimit returns the daily allowance for a tier/feature pair.
// Unknown tiers fall back to free-tier limits.
func DailyLimit(tier SubscriptionTier, feature string) int {
	limits, ok := tierLimits[tier]
	if !ok {
		limits = tierLimits[TierFree]
	}
	return limits[feature]
}

// QuotaRecord is the persisted audit row for a day's usage. The
// authoritative counter lives in Redis; this row mirrors it for
// reporting and admin tooling.
type QuotaRecord struct {
	gorm.Model
	UserID  string    `gorm:"not null;index:idx_quota_user_feature_date,unique" json:"userId"`
	Feature string    `gorm:"not null;index:idx_quota_user_feature_date,unique" json:"feature"`
	Date    string    `gorm:"not null;index:idx_quota_user_feature_date,unique" json:"date"`
	Count   int       `gorm:"not null;default:0" json:"count"`
	Limit   int       `gorm:"column:daily_limit;not null" json:"limit"`
	ResetAt time.Time `json:"resetAt"`
}
