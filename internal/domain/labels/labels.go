// Package labels resolves raw label tokens into the canonical class space.
//
// The vocabulary is an immutable value constructed once, before alignment
// begins, and shared read-only by the aligner and the metrics engine.
// Resolution is pure: the same token always resolves to the same class,
// regardless of call order.
package labels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/subnetlab/minerscope/internal/domain/model"
)

// Default token aliases for the subnet's label space. Matching is
// case-insensitive after trimming.
func defaultAliases() map[string]model.Class {
	return map[string]model.Class{
		"real":           model.ClassReal,
		"synthetic":      model.ClassSynthetic,
		"fake":           model.ClassSynthetic,
		"semisynthetic":  model.ClassSemisynthetic,
		"semi-synthetic": model.ClassSemisynthetic,
	}
}

// Option applies a configuration option to the Vocabulary.
type Option func(*Vocabulary)

// WithClasses overrides the class enumeration. Duplicates are removed and
// order is preserved.
func WithClasses(classes ...model.Class) Option {
	return func(v *Vocabulary) {
		seen := make(map[model.Class]bool, len(classes))
		v.classes = v.classes[:0]
		for _, c := range classes {
			if !seen[c] {
				seen[c] = true
				v.classes = append(v.classes, c)
			}
		}
	}
}

// WithAlias registers an extra raw token for a class.
func WithAlias(token string, c model.Class) Option {
	return func(v *Vocabulary) {
		v.aliases[normalize(token)] = c
	}
}

// Vocabulary is the ordered, de-duplicated canonical class enumeration plus
// the token aliases that map into it. Immutable after construction.
type Vocabulary struct {
	classes []model.Class
	aliases map[string]model.Class
	members map[model.Class]bool
}

// New builds a vocabulary over the full canonical space
// {real, synthetic, semisynthetic} with the default token aliases.
func New(opts ...Option) *Vocabulary {
	v := &Vocabulary{
		classes: []model.Class{model.ClassReal, model.ClassSynthetic, model.ClassSemisynthetic},
		aliases: defaultAliases(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.members = make(map[model.Class]bool, len(v.classes))
	for _, c := range v.classes {
		v.members[c] = true
	}
	return v
}

func normalize(token string) string {
	return strings.ToLower(strings.TrimSpace(token))
}

// Resolve maps a raw label token to its canonical class. Unknown tokens fail
// with ErrUnresolvedLabel; they are never coerced to a default class.
func (v *Vocabulary) Resolve(raw string) (model.Class, error) {
	token := normalize(raw)
	if token == "" {
		return 0, fmt.Errorf("%w: empty token", ErrUnresolvedLabel)
	}
	if c, ok := v.aliases[token]; ok && v.members[c] {
		return c, nil
	}
	// Numeric tokens name classes directly, e.g. "0", "1", "2".
	if n, err := strconv.Atoi(token); err == nil {
		if c := model.Class(n); v.members[c] {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnresolvedLabel, raw)
}

// ResolveBinary resolves a token and collapses it into the binary space.
func (v *Vocabulary) ResolveBinary(raw string) (model.Class, error) {
	c, err := v.Resolve(raw)
	if err != nil {
		return 0, err
	}
	return c.ToBinary(), nil
}

// Classes returns a copy of the ordered class enumeration.
func (v *Vocabulary) Classes() []model.Class {
	out := make([]model.Class, len(v.classes))
	copy(out, v.classes)
	return out
}

// Contains reports whether c belongs to the vocabulary.
func (v *Vocabulary) Contains(c model.Class) bool { return v.members[c] }

// Size returns the number of classes in the vocabulary.
func (v *Vocabulary) Size() int { return len(v.classes) }

// ClassFromScores converts a per-class probability vector into the arg-max
// class. Returns false for an empty vector or an arg-max index outside the
// vocabulary; such predictions are marked invalid, not defaulted.
func (v *Vocabulary) ClassFromScores(scores []float64) (model.Class, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	c := model.Class(best)
	if !v.members[c] {
		return 0, false
	}
	return c, true
}

// BinaryScore collapses a per-class probability vector into the probability
// of the positive ("fake") class: the sum of every non-real class entry.
func (v *Vocabulary) BinaryScore(scores []float64) (float64, bool) {
	if len(scores) < 2 {
		return 0, false
	}
	total := 0.0
	for i, s := range scores {
		if model.Class(i) != model.ClassReal {
			total += s
		}
	}
	return total, true
}
