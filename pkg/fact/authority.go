package fact

import (
	"cmp"
	"maps"
	"strings"
)

// Conventional source authority names.
const (
	AuthorityIntegratedSystem = "INTEGRATED_SYSTEM"
	AuthorityUserUpload       = "USER_UPLOAD"
	AuthorityUserDirect       = "USER_DIRECT"
	AuthorityDocument         = "DOCUMENT"
	AuthorityExternalAPI      = "EXTERNAL_API"
	AuthorityConversational   = "CONVERSATIONAL"
	AuthorityUnknown          = "UNKNOWN"
)

var defaultWeights = map[string]float64{
	AuthorityIntegratedSystem: 1.0,
	"ERP":                     1.0,
	"CRM":                     1.0,
	AuthorityUserUpload:       0.9,
	"UPLOAD":                  0.9,
	AuthorityUserDirect:       0.9,
	AuthorityDocument:         0.8,
	AuthorityExternalAPI:      0.7,
	"API":                     0.7,
	AuthorityConversational:   0.5,
	"CHAT":                    0.5,
	AuthorityUnknown:          0.1,
}

// Weights maps source authorities to comparison weights in [0,1]. Weights are
// only ever compared, never combined into probabilities.
type Weights struct {
	table map[string]float64
}

// DefaultWeights returns the built in authority table.
func DefaultWeights() *Weights {
	return NewWeights(nil)
}

// NewWeights returns the default table with overrides applied. Override
// names are normalized like lookups and values are clamped to [0,1].
func NewWeights(overrides map[string]float64) *Weights {
	table := make(map[string]float64, len(defaultWeights)+len(overrides))
	maps.Copy(table, defaultWeights)
	for name, w := range overrides {
		table[NormalizeAuthority(name)] = min(max(w, 0), 1)
	}
	return &Weights{table: table}
}

// Table returns a copy of the effective name to weight table.
func (w *Weights) Table() map[string]float64 {
	return maps.Clone(w.table)
}

// Weight returns the weight for authority. Unlisted authorities weigh the
// same as UNKNOWN.
func (w *Weights) Weight(authority string) float64 {
	if weight, ok := w.table[NormalizeAuthority(authority)]; ok {
		return weight
	}
	return w.table[AuthorityUnknown]
}

// Compare returns -1, 0 or +1 as authority a weighs less than, the same as,
// or more than authority b.
func (w *Weights) Compare(a, b string) int {
	return cmp.Compare(w.Weight(a), w.Weight(b))
}

// NormalizeAuthority upper-cases an authority name and folds separators to
// underscores: "integrated-system" becomes "INTEGRATED_SYSTEM".
func NormalizeAuthority(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return AuthorityUnknown
	}
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
