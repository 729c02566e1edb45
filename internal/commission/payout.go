package commission

import (
	"github.com/iwvelando/commission-reconcile/pkg/constants"
	"github.com/iwvelando/commission-reconcile/pkg/mathutil"
)

// BasisAmount returns the amount the rule's percentage applies to.
// Unrecognised bases fall back to the contract value.
func BasisAmount(basis Basis, deal Deal) float64 {
	switch basis {
	case BasisPerKW:
		return mathutil.Finite(deal.KWSystem) * constants.WattsPerKilowatt
	case BasisNetPrice:
		return mathutil.Finite(deal.NetPricePerWatt) * mathutil.Finite(deal.KWSystem) * constants.WattsPerKilowatt
	default:
		return mathutil.Finite(deal.ContractValue)
	}
}

// CalculatePayout returns the agent commission the rule implies for deal.
// A nil rule yields 0. The result is not rounded.
func CalculatePayout(rule *Rule, deal Deal) float64 {
	if rule == nil {
		return 0
	}
	basis := BasisAmount(rule.CommissionBasis, deal)
	return mathutil.ApplyPercentage(basis, mathutil.ValueOr(rule.AgentCommissionPct)) +
		mathutil.ValueOr(rule.AgentFlatAmount)
}
