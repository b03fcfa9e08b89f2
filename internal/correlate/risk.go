package correlate

import (
	"math"

	"github.com/threatiq/threatiq-backend/model"
)

// Score computes the 0-100 risk score for one (threat, tenant) pair and
// returns the factor set that produced it, retained on the correlation
// record for auditability.
//
//	risk = clamp(round((cvss/10*100) * exploited * endpoints * exposure * criticality), 0, 100)
func Score(cvssScore float64, exploited bool, endpointCount int, internetExposed, businessCritical bool) (int, model.RiskFactors) {
	factors := model.RiskFactors{
		CVSSScore:           cvssScore,
		ExploitedMultiplier: 1.0,
		EndpointCount:       endpointCount,
		InternetExposure:    internetExposed,
		CriticalSystem:      businessCritical,
	}
	if exploited {
		factors.ExploitedMultiplier = 2.0
	}

	endpointFactor := 1.0 + float64(endpointCount-1)*0.1
	if endpointFactor > 2.0 {
		endpointFactor = 2.0
	}

	exposureFactor := 1.0
	if internetExposed {
		exposureFactor = 1.3
	}

	criticalityFactor := 1.0
	if businessCritical {
		criticalityFactor = 1.2
	}

	raw := (cvssScore / 10 * 100) * factors.ExploitedMultiplier * endpointFactor * exposureFactor * criticalityFactor
	score := int(math.Round(raw))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return score, factors
}
