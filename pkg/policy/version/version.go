package version

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/gowebpki/jcs"

	"github.com/stranske/tripward/pkg/policy/engine"
)

// ErrMalformedLabel indicates a version label that does not parse as a
// semantic version. Malformed labels are load-time configuration errors and
// are never silently defaulted.
var ErrMalformedLabel = errors.New("malformed version label")

// ChangeType classifies the difference between two policy versions.
type ChangeType string

const (
	ChangeNoOp     ChangeType = "no-op"
	ChangeBreaking ChangeType = "breaking"
	ChangeFeature  ChangeType = "feature"
	ChangePatch    ChangeType = "patch"

	// ChangeConfigDrift signals that rule behavior changed without a version
	// bump. Callers should treat it as a configuration hygiene warning.
	ChangeConfigDrift ChangeType = "config-drift"
)

// Version is a semantic policy version paired with the configuration content
// hash that produced it.
type Version struct {
	Major      uint64 `json:"major"`
	Minor      uint64 `json:"minor"`
	Patch      uint64 `json:"patch"`
	ConfigHash string `json:"config_hash"`
}

// HashConfig returns the deterministic SHA-256 digest of the canonical JSON
// form of a rule configuration description.
func HashConfig(descriptions []engine.RuleDescription) (string, error) {
	payload, err := json.Marshal(map[string]any{"rules": descriptions})
	if err != nil {
		return "", fmt.Errorf("serialize rule configuration: %w", err)
	}
	canonical, err := jcs.Transform(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize rule configuration: %w", err)
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:]), nil
}

// FromConfig builds a Version from a human-assigned label and a rule
// configuration description. An empty label defaults to 0.1.0; a label that
// does not parse is a configuration error.
func FromConfig(label string, descriptions []engine.RuleDescription) (Version, error) {
	hash, err := HashConfig(descriptions)
	if err != nil {
		return Version{}, err
	}

	if label == "" {
		return Version{Major: 0, Minor: 1, Patch: 0, ConfigHash: hash}, nil
	}

	parsed, err := semver.NewVersion(label)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedLabel, label)
	}
	return Version{
		Major:      parsed.Major(),
		Minor:      parsed.Minor(),
		Patch:      parsed.Patch(),
		ConfigHash: hash,
	}, nil
}

// FromEngine builds a Version from a loaded engine.
func FromEngine(label string, eng *engine.Engine) (Version, error) {
	return FromConfig(label, eng.DescribeRules())
}

// Label returns the human-readable semantic version string.
func (v Version) Label() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsBackwardCompatibleWith reports whether this version is syntactically
// backward compatible with a previous one: equal major and minor not lower.
// It is not a semantic guarantee about rule behavior.
func (v Version) IsBackwardCompatibleWith(previous Version) bool {
	if v.Major != previous.Major {
		return false
	}
	return v.Minor >= previous.Minor
}

// ChangeType classifies this version against a previous one. Hash equality
// wins over label comparison: identical hashes are a no-op even when the
// labels differ.
func (v Version) ChangeType(previous Version) ChangeType {
	if v.ConfigHash == previous.ConfigHash {
		return ChangeNoOp
	}
	if v.Major != previous.Major {
		return ChangeBreaking
	}
	if v.Minor != previous.Minor {
		return ChangeFeature
	}
	if v.Patch != previous.Patch {
		return ChangePatch
	}
	return ChangeConfigDrift
}
