package engine

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the declarative rule configuration. Rules is keyed by rule type
// id; each value maps type-specific parameters plus an optional "severity"
// override.
type Config struct {
	Rules map[string]map[string]any `yaml:"rules"`
}

// ruleSchema fixes the parameter surface of one rule type. Parameters outside
// the schema are rejected at load time.
type ruleSchema struct {
	defaultSeverity Severity
	required        []string
	optional        []string
}

var ruleSchemas = map[RuleType]ruleSchema{
	RuleAdvanceBooking: {
		defaultSeverity: SeverityAdvisory,
		required:        []string{"days_required"},
		optional:        []string{"days_required_international", "international_destinations"},
	},
	RuleBudgetLimit: {
		defaultSeverity: SeverityBlocking,
		optional:        []string{"trip_limit", "category_limits"},
	},
	RuleDurationLimit: {
		defaultSeverity: SeverityBlocking,
		required:        []string{"max_consecutive_days"},
	},
	RuleFareComparison: {
		defaultSeverity: SeverityBlocking,
		required:        []string{"max_over_lowest"},
	},
	RuleCabinClass: {
		defaultSeverity: SeverityBlocking,
		required:        []string{"long_haul_hours", "allowed_classes"},
	},
	RuleFareEvidence:    {defaultSeverity: SeverityBlocking},
	RuleDrivingVsFlying: {defaultSeverity: SeverityAdvisory},
	RuleHotelComparison: {
		defaultSeverity: SeverityAdvisory,
		required:        []string{"minimum_alternatives"},
	},
	RuleLocalOvernight: {
		defaultSeverity: SeverityAdvisory,
		required:        []string{"min_distance_miles"},
	},
	RuleMealPerDiem: {defaultSeverity: SeverityAdvisory},
	RuleNonReimbursable: {
		defaultSeverity: SeverityBlocking,
		required:        []string{"blocked_keywords"},
	},
	RuleThirdPartyPaid: {defaultSeverity: SeverityBlocking},
}

// FromYAML parses and validates a rule configuration and builds an Engine.
func FromYAML(content []byte) (*Engine, error) {
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy configuration: %w", err)
	}
	return FromConfig(&cfg)
}

// FromFile loads a rule configuration from an explicit path. There is no
// implicit discovery; the path always comes from the caller.
func FromFile(path string) (*Engine, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy configuration: %w", err)
	}
	return FromYAML(content)
}

// FromConfig validates every rule against its schema and builds an Engine.
// Rules are instantiated in the fixed enumeration order regardless of config
// key order, so two structurally identical configurations always produce the
// same engine. Unknown rule types, unknown parameters, or missing required
// parameters fail fast.
func FromConfig(cfg *Config) (*Engine, error) {
	if cfg == nil || len(cfg.Rules) == 0 {
		return nil, ErrNoRules
	}

	for key := range cfg.Rules {
		if _, ok := ruleSchemas[RuleType(key)]; !ok {
			return nil, &ConfigError{RuleType: key, Cause: ErrUnknownRuleType}
		}
	}

	var specs []ruleSpec
	for _, ruleType := range ruleOrder {
		raw, ok := cfg.Rules[string(ruleType)]
		if !ok {
			continue
		}
		spec, err := buildRule(ruleType, raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	return &Engine{rules: specs}, nil
}

func buildRule(ruleType RuleType, raw map[string]any) (ruleSpec, error) {
	schema := ruleSchemas[ruleType]

	allowed := map[string]bool{"severity": true}
	for _, name := range schema.required {
		allowed[name] = true
	}
	for _, name := range schema.optional {
		allowed[name] = true
	}
	for name := range raw {
		if !allowed[name] {
			return ruleSpec{}, &ConfigError{
				RuleType: string(ruleType),
				Param:    name,
				Cause:    fmt.Errorf("%w: not part of the rule schema", ErrInvalidParameter),
			}
		}
	}
	for _, name := range schema.required {
		if _, ok := raw[name]; !ok {
			return ruleSpec{}, &ConfigError{
				RuleType: string(ruleType),
				Param:    name,
				Cause:    ErrMissingParameter,
			}
		}
	}

	severity, err := severityParam(ruleType, raw, schema.defaultSeverity)
	if err != nil {
		return ruleSpec{}, err
	}

	spec := ruleSpec{Type: ruleType, Severity: severity}
	switch ruleType {
	case RuleAdvanceBooking:
		if spec.Params.DaysRequired, err = intParam(ruleType, raw, "days_required"); err != nil {
			return ruleSpec{}, err
		}
		if _, ok := raw["days_required_international"]; ok {
			if spec.Params.DaysRequiredInternational, err = intParam(ruleType, raw, "days_required_international"); err != nil {
				return ruleSpec{}, err
			}
		}
		if _, ok := raw["international_destinations"]; ok {
			if spec.Params.InternationalDestinations, err = stringListParam(ruleType, raw, "international_destinations"); err != nil {
				return ruleSpec{}, err
			}
		}
	case RuleBudgetLimit:
		if _, ok := raw["trip_limit"]; ok {
			limit, err := decimalParam(ruleType, raw, "trip_limit")
			if err != nil {
				return ruleSpec{}, err
			}
			spec.Params.TripLimit = &limit
		}
		if _, ok := raw["category_limits"]; ok {
			if spec.Params.CategoryLimits, err = decimalMapParam(ruleType, raw, "category_limits"); err != nil {
				return ruleSpec{}, err
			}
		}
		if spec.Params.TripLimit == nil && len(spec.Params.CategoryLimits) == 0 {
			return ruleSpec{}, &ConfigError{
				RuleType: string(ruleType),
				Param:    "trip_limit",
				Cause:    fmt.Errorf("%w: configure trip_limit or category_limits", ErrMissingParameter),
			}
		}
	case RuleDurationLimit:
		if spec.Params.MaxConsecutiveDays, err = intParam(ruleType, raw, "max_consecutive_days"); err != nil {
			return ruleSpec{}, err
		}
		if spec.Params.MaxConsecutiveDays == 0 {
			return ruleSpec{}, invalidParam(ruleType, "max_consecutive_days", 0)
		}
	case RuleFareComparison:
		if spec.Params.MaxOverLowest, err = decimalParam(ruleType, raw, "max_over_lowest"); err != nil {
			return ruleSpec{}, err
		}
	case RuleCabinClass:
		if spec.Params.LongHaulHours, err = floatParam(ruleType, raw, "long_haul_hours"); err != nil {
			return ruleSpec{}, err
		}
		if spec.Params.AllowedClasses, err = stringListParam(ruleType, raw, "allowed_classes"); err != nil {
			return ruleSpec{}, err
		}
	case RuleHotelComparison:
		if spec.Params.MinimumAlternatives, err = intParam(ruleType, raw, "minimum_alternatives"); err != nil {
			return ruleSpec{}, err
		}
	case RuleLocalOvernight:
		if spec.Params.MinDistanceMiles, err = floatParam(ruleType, raw, "min_distance_miles"); err != nil {
			return ruleSpec{}, err
		}
	case RuleNonReimbursable:
		if spec.Params.BlockedKeywords, err = stringListParam(ruleType, raw, "blocked_keywords"); err != nil {
			return ruleSpec{}, err
		}
	}

	return spec, nil
}

func severityParam(ruleType RuleType, raw map[string]any, fallback Severity) (Severity, error) {
	value, ok := raw["severity"]
	if !ok {
		return fallback, nil
	}
	text, ok := value.(string)
	if !ok {
		return "", invalidParam(ruleType, "severity", value)
	}
	switch Severity(text) {
	case SeverityBlocking, SeverityAdvisory:
		return Severity(text), nil
	}
	return "", &ConfigError{
		RuleType: string(ruleType),
		Param:    "severity",
		Cause:    fmt.Errorf("%w: must be %q or %q", ErrInvalidParameter, SeverityBlocking, SeverityAdvisory),
	}
}

func intParam(ruleType RuleType, raw map[string]any, name string) (int, error) {
	switch v := raw[name].(type) {
	case int:
		if v < 0 {
			return 0, invalidParam(ruleType, name, v)
		}
		return v, nil
	case int64:
		if v < 0 {
			return 0, invalidParam(ruleType, name, v)
		}
		return int(v), nil
	}
	return 0, invalidParam(ruleType, name, raw[name])
}

func floatParam(ruleType RuleType, raw map[string]any, name string) (float64, error) {
	var value float64
	switch v := raw[name].(type) {
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case float64:
		value = v
	default:
		return 0, invalidParam(ruleType, name, raw[name])
	}
	if value < 0 {
		return 0, invalidParam(ruleType, name, value)
	}
	return value, nil
}

func decimalParam(ruleType RuleType, raw map[string]any, name string) (decimal.Decimal, error) {
	d, err := decimalValue(raw[name])
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, invalidParam(ruleType, name, raw[name])
	}
	return d, nil
}

func decimalValue(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	}
	return decimal.Decimal{}, fmt.Errorf("unexpected value %v", value)
}

// decimalMapParam parses a mapping of category name to amount limit.
func decimalMapParam(ruleType RuleType, raw map[string]any, name string) (map[string]decimal.Decimal, error) {
	mapping, ok := raw[name].(map[string]any)
	if !ok || len(mapping) == 0 {
		return nil, invalidParam(ruleType, name, raw[name])
	}
	limits := make(map[string]decimal.Decimal, len(mapping))
	for key, value := range mapping {
		d, err := decimalValue(value)
		if err != nil || d.IsNegative() {
			return nil, invalidParam(ruleType, name, value)
		}
		limits[key] = d
	}
	return limits, nil
}

// stringListParam parses a set-valued parameter and returns it sorted so the
// engine description is stable regardless of config ordering.
func stringListParam(ruleType RuleType, raw map[string]any, name string) ([]string, error) {
	list, ok := raw[name].([]any)
	if !ok || len(list) == 0 {
		return nil, invalidParam(ruleType, name, raw[name])
	}
	values := make([]string, 0, len(list))
	for _, item := range list {
		text, ok := item.(string)
		if !ok {
			return nil, invalidParam(ruleType, name, item)
		}
		values = append(values, text)
	}
	sort.Strings(values)
	return values, nil
}

func invalidParam(ruleType RuleType, name string, value any) error {
	return &ConfigError{
		RuleType: string(ruleType),
		Param:    name,
		Cause:    fmt.Errorf("%w: unexpected value %v", ErrInvalidParameter, value),
	}
}
