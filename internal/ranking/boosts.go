package ranking

// CategoryBoost multiplies the score when the candidate shares a non-empty
// category with any history item.
type CategoryBoost struct {
	Factor float64
}

// Name returns the boost name.
func (b CategoryBoost) Name() string { return "category" }

// Apply multiplies score by Factor on a category match.
func (b CategoryBoost) Apply(ctx *ScoringContext, score float64) (float64, bool) {
	cat := ctx.Candidate.Category
	if cat == "" {
		return score, false
	}
	if _, ok := ctx.HistoryCategories[cat]; !ok {
		return score, false
	}
	return score * b.Factor, true
}

// PairBoost adds a bonus when a history item lists the candidate as a pair.
type PairBoost struct {
	Bonus float64
}

// Name returns the boost name.
func (b PairBoost) Name() string { return "pair" }

// Apply adds Bonus when the candidate id is a pair target.
func (b PairBoost) Apply(ctx *ScoringContext, score float64) (float64, bool) {
	if _, ok := ctx.PairTargets[ctx.Candidate.ID]; !ok {
		return score, false
	}
	return score + b.Bonus, true
}

// BoostChain returns the boosts for o in their fixed order: multiplicative
// category first, then additive pair.
func BoostChain(o Options) []Boost {
	return []Boost{CategoryBoost{Factor: o.CategoryBoost}, PairBoost{Bonus: o.PairBoost}}
}

// ApplyBoosts runs boosts in order and clamps to ScoreCap if any fired.
func ApplyBoosts(ctx *ScoringContext, base float64, boosts []Boost) *ScoreBreakdown {
	bd := &ScoreBreakdown{ID: ctx.Candidate.ID, Name: ctx.Candidate.Name, Base: base}
	score := base
	for _, b := range boosts {
		next, fired := b.Apply(ctx, score)
		if !fired {
			continue
		}
		score = next
		bd.Boosts = append(bd.Boosts, AppliedBoost{Name: b.Name(), Score: score})
	}
	if len(bd.Boosts) > 0 && score > ScoreCap {
		score = ScoreCap
		bd.Clamped = true
	}
	bd.Final = score
	return bd
}
