package services

import (
	"github.com/shopspring/decimal"

	"flight-sniper/models"
)

// superDealFactor: a price under this share of the baseline is a super deal.
var superDealFactor = decimal.RequireFromString("0.8")

// Classify assigns a status to a day's price. Rules are checked in order and
// the first match wins: SUPER_DEAL, GOAL_MET, EXPENSIVE, NORMAL.
func Classify(price, target decimal.Decimal, baseline models.Baseline) models.Status {
	switch {
	case baseline.Known && price.LessThan(baseline.Mean.Mul(superDealFactor)):
		return models.StatusSuperDeal
	case price.LessThanOrEqual(target):
		return models.StatusGoalMet
	case baseline.Known && price.GreaterThan(baseline.Mean):
		return models.StatusExpensive
	default:
		return models.StatusNormal
	}
}

// ClassifyOffer attaches the status to a DailyOffer.
func ClassifyOffer(offer models.DailyOffer, target decimal.Decimal, baseline models.Baseline) models.ClassifiedOffer {
	return models.ClassifiedOffer{
		DailyOffer: offer,
		Status:     Classify(offer.Price, target, baseline),
	}
}
