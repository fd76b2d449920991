package settlement

import (
	"math/bits"

	"github.com/mcoot/triviapool/internal/model"
)

// PrizeShares are the percentages of the pool paid to each rank
var PrizeShares = [model.MaxWinners]uint64{80, 15, 5}

// Share returns floor(pool * percent / 100) without intermediate overflow.
// percent must not exceed 100.
func Share(pool model.Amount, percent uint64) model.Amount {
	hi, lo := bits.Mul64(uint64(pool), percent)
	q, _ := bits.Div64(hi, lo, 100)
	return model.Amount(q)
}

// PayoutPlan splits the pool between ranked winners. Zero-valued shares are
// omitted, and the remainder left by truncation stays in escrow.
func PayoutPlan(pool model.Amount, winners []model.Address) []model.Disbursement {
	plan := make([]model.Disbursement, 0, len(winners))
	for i, winner := range winners {
		if i >= len(PrizeShares) {
			break
		}
		amount := Share(pool, PrizeShares[i])
		if amount == 0 {
			continue
		}
		plan = append(plan, model.Disbursement{
			Kind:      model.DisbursementPayout,
			Rank:      i + 1,
			Recipient: winner,
			Amount:    amount,
			Status:    model.DisbursementPending,
		})
	}
	return plan
}

// RefundPlan returns each participant's entry fee in join order
func RefundPlan(fee model.Amount, participants []model.Address) []model.Disbursement {
	plan := make([]model.Disbursement, 0, len(participants))
	for _, p := range participants {
		plan = append(plan, model.Disbursement{
			Kind:      model.DisbursementRefund,
			Recipient: p,
			Amount:    fee,
			Status:    model.DisbursementPending,
		})
	}
	return plan
}
