package scoring

import "alpha-sniper/internal/models"

// technicalScore derives momentum from the three price-change windows.
// A flat token sits at 50; short-window moves weigh the most.
func technicalScore(s models.TokenSignal) float64 {
	score := 50.0
	score += clamp(s.PriceChange1h*2, -25, 25)
	score += clamp(s.PriceChange24h, -15, 15)
	score += clamp(s.PriceChange7d/2, -10, 10)
	return clamp(score, 0, 100)
}

// volumeScore buckets the 24h volume to market cap ratio into fixed tiers.
func volumeScore(s models.TokenSignal) float64 {
	ratio := s.Volume24h / s.MarketCap
	switch {
	case ratio >= 2.0:
		return 95
	case ratio >= 1.0:
		return 85
	case ratio >= 0.5:
		return 70
	case ratio >= 0.25:
		return 55
	case ratio >= 0.1:
		return 40
	default:
		return 25
	}
}

// liquidityScore buckets the liquidity to market cap ratio into fixed tiers.
func liquidityScore(s models.TokenSignal) float64 {
	ratio := s.Liquidity / s.MarketCap
	switch {
	case ratio >= 0.5:
		return 95
	case ratio >= 0.3:
		return 85
	case ratio >= 0.2:
		return 75
	case ratio >= 0.1:
		return 60
	case ratio >= 0.05:
		return 40
	default:
		return 20
	}
}

// marketScore judges broad conditions from the daily trend and holder base.
func marketScore(s models.TokenSignal) float64 {
	score := 50.0
	if s.PriceChange24h > 0 {
		score += 10
	} else if s.PriceChange24h < 0 {
		score -= 10
	}
	switch {
	case s.Holders >= 5000:
		score += 25
	case s.Holders >= 1000:
		score += 15
	case s.Holders >= 250:
		score += 5
	case s.Holders < 50:
		score -= 20
	}
	return clamp(score, 0, 100)
}

// timingScore rewards accelerating moves: the last hour outpacing the
// daily average suggests the window is still open.
func timingScore(s models.TokenSignal) float64 {
	accel := s.PriceChange1h - s.PriceChange24h/24
	return clamp(50+clamp(accel*5, -40, 40), 0, 100)
}

// patternScore checks alignment across the three price-change windows.
func patternScore(s models.TokenSignal) float64 {
	up1h := s.PriceChange1h > 0
	up24h := s.PriceChange24h > 0
	up7d := s.PriceChange7d > 0
	switch {
	case up1h && up24h && up7d:
		return 85
	case up1h && up24h:
		return 70
	case up24h:
		return 55
	case !up1h && !up24h && !up7d:
		return 20
	default:
		return 40
	}
}

var bullishTags = map[string]bool{
	"trending":         true,
	"alpha":            true,
	"renounced":        true,
	"locked-liquidity": true,
	"verified":         true,
}

var bearishTags = map[string]bool{
	"rug-risk":   true,
	"honeypot":   true,
	"scam":       true,
	"blacklist":  true,
	"unverified": true,
}

// sentimentScore derives a sub-score from qualitative tags. Returns
// ok=false when no tags are supplied; the composite then normalizes
// without the sentiment weight.
func sentimentScore(tags []string) (float64, bool) {
	if len(tags) == 0 {
		return 0, false
	}
	score := 50.0
	for _, tag := range tags {
		if bullishTags[tag] {
			score += 12
		}
		if bearishTags[tag] {
			score -= 20
		}
	}
	return clamp(score, 0, 100), true
}

// RiskScore estimates downside risk for a signal as an integer in
// [0,100]; higher means riskier. Inverted into the risk factor so that
// risk lowers confidence, and consumed directly by the decision engine's
// risk gate and position sizing.
func RiskScore(signal models.TokenSignal) int {
	s := signal.Normalize()
	risk := 50.0

	liqRatio := s.Liquidity / s.MarketCap
	switch {
	case liqRatio < 0.05:
		risk += 20
	case liqRatio < 0.1:
		risk += 10
	case liqRatio >= 0.3:
		risk -= 15
	}

	switch {
	case s.Holders < 100:
		risk += 15
	case s.Holders < 500:
		risk += 5
	case s.Holders >= 5000:
		risk -= 10
	}

	if s.PriceChange1h > 50 || s.PriceChange1h < -50 {
		risk += 15
	}

	switch {
	case s.MarketCap < 100000:
		risk += 10
	case s.MarketCap >= 5000000:
		risk -= 10
	}

	for _, tag := range s.Tags {
		if bearishTags[tag] {
			risk += 25
			break
		}
	}

	return int(clamp(risk, 0, 100))
}
