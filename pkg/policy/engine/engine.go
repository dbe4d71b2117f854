package engine

// Recorder receives evaluation telemetry. Implementations must be safe for
// concurrent use. A nil Recorder disables recording.
type Recorder interface {
	RecordRuleEvaluation(ruleID string, passed bool, severity Severity)
}

// Engine evaluates a context against its configured rules in registration
// order. Engines are immutable after construction and safe for concurrent
// use; swap the whole engine to change configuration (see Manager).
type Engine struct {
	rules    []ruleSpec
	recorder Recorder
}

// SetRecorder attaches a telemetry recorder. Call before the engine is
// shared across goroutines.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Evaluate runs every configured rule and returns one result per rule.
// Rules lacking their required inputs return passing info results with an
// explanatory message, keeping result cardinality stable for auditing.
func (e *Engine) Evaluate(ctx *Context) []Result {
	results := make([]Result, 0, len(e.rules))
	for _, spec := range e.rules {
		result := spec.evaluate(ctx)
		if e.recorder != nil {
			e.recorder.RecordRuleEvaluation(result.RuleID, result.Passed, result.Severity)
		}
		results = append(results, result)
	}
	return results
}

// BlockingResults returns the failed results whose configured severity is
// blocking.
func (e *Engine) BlockingResults(ctx *Context) []Result {
	var blocking []Result
	for _, result := range e.Evaluate(ctx) {
		if result.Blocking() {
			blocking = append(blocking, result)
		}
	}
	return blocking
}

// RuleCount returns the number of configured rules.
func (e *Engine) RuleCount() int {
	return len(e.rules)
}

// DescribeRules returns the canonical ordered description of the loaded
// configuration. The description round-trips every parameter (decimals as
// strings, set parameters sorted) and feeds the policy version hash.
func (e *Engine) DescribeRules() []RuleDescription {
	descriptions := make([]RuleDescription, 0, len(e.rules))
	for _, spec := range e.rules {
		descriptions = append(descriptions, RuleDescription{
			ID:       string(spec.Type),
			Severity: spec.Severity,
			Params:   describeParams(spec),
		})
	}
	return descriptions
}

func describeParams(spec ruleSpec) map[string]any {
	p := map[string]any{}
	switch spec.Type {
	case RuleAdvanceBooking:
		p["days_required"] = spec.Params.DaysRequired
		if spec.Params.DaysRequiredInternational > 0 {
			p["days_required_international"] = spec.Params.DaysRequiredInternational
		}
		if len(spec.Params.InternationalDestinations) > 0 {
			p["international_destinations"] = spec.Params.InternationalDestinations
		}
	case RuleBudgetLimit:
		if spec.Params.TripLimit != nil {
			p["trip_limit"] = spec.Params.TripLimit.String()
		}
		if len(spec.Params.CategoryLimits) > 0 {
			limits := make(map[string]string, len(spec.Params.CategoryLimits))
			for category, limit := range spec.Params.CategoryLimits {
				limits[category] = limit.String()
			}
			p["category_limits"] = limits
		}
	case RuleDurationLimit:
		p["max_consecutive_days"] = spec.Params.MaxConsecutiveDays
	case RuleFareComparison:
		p["max_over_lowest"] = spec.Params.MaxOverLowest.String()
	case RuleCabinClass:
		p["long_haul_hours"] = spec.Params.LongHaulHours
		p["allowed_classes"] = spec.Params.AllowedClasses
	case RuleHotelComparison:
		p["minimum_alternatives"] = spec.Params.MinimumAlternatives
	case RuleLocalOvernight:
		p["min_distance_miles"] = spec.Params.MinDistanceMiles
	case RuleNonReimbursable:
		p["blocked_keywords"] = spec.Params.BlockedKeywords
	}
	return p
}
