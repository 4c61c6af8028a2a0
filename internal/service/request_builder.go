package service

import (
	"fmt"
	"strings"

	"portfolio-advisor/internal/domain"
)

// Fixed constraints applied to every portfolio request. User-tunable
// constraints are a possible followup once the agent prompt supports them.
var defaultConstraints = domain.PortfolioConstraints{
	MaxTotalRisk:                 0.15,
	MinLiquidityPercentage:       15,
	SectorDiversification:        true,
	MaxIndividualAssetPercentage: 10,
}

// BuildPortfolioRequest validates a user profile and combines it with a
// market snapshot into the request document handed to the agent. It is
// pure: no I/O, no clock reads beyond what the snapshot already carries.
func BuildPortfolioRequest(profile domain.UserProfile, snapshot domain.MarketSnapshot) (domain.PortfolioRequest, error) {
	if err := validateProfile(profile); err != nil {
		return domain.PortfolioRequest{}, err
	}
	return domain.PortfolioRequest{
		UserProfile:          profile,
		MarketData:           snapshot,
		PortfolioConstraints: defaultConstraints,
		ModelPreferences: domain.ModelPreferences{
			OptimizationGoal: "maximize risk-adjusted return",
			TimeHorizon:      profile.FinancialGoals.GoalType,
			ExplanationLevel: "detailed",
			Adaptation:       true,
		},
	}, nil
}

func validateProfile(profile domain.UserProfile) error {
	var missing []string
	if strings.TrimSpace(profile.PersonalInfo.Name) == "" {
		missing = append(missing, "personal_info.name")
	}
	if profile.PersonalInfo.Age <= 0 {
		missing = append(missing, "personal_info.age")
	}
	if strings.TrimSpace(profile.PersonalInfo.Location) == "" {
		missing = append(missing, "personal_info.location")
	}
	if strings.TrimSpace(profile.FinancialGoals.GoalType) == "" {
		missing = append(missing, "financial_goals.goal_type")
	}
	if strings.TrimSpace(profile.RiskProfile.RiskTolerance) == "" {
		missing = append(missing, "risk_profile.risk_tolerance")
	}
	if profile.Capital.InitialInvestment <= 0 {
		missing = append(missing, "capital.initial_investment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: incomplete user profile, missing %s", domain.ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}
