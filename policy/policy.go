// Package policy gates recompilation requests. A nil *Policy admits every
// function.

package policy

import (
	"context"
	"path"
	"strings"

	"github.com/viant/recompiler/model/target"
)

// Recompilation modes.
const (
	ModeAuto = "auto" // recompile admitted functions (default)
	ModeDeny = "deny" // never recompile
)

// ApproveFunc is consulted for every request that passed the lists. Returning
// false rejects the request.
type ApproveFunc func(ctx context.Context, fn *target.Function, p *Policy) bool

// Policy represents recompilation rules.
//
//   - Mode switches recompilation on or off.
//   - AllowList, BlockList filter function names; entries may use path.Match
//     wildcards.
//   - Approve is optional.
type Policy struct {
	Mode      string
	AllowList []string
	BlockList []string
	Approve   ApproveFunc
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// ApproveFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// EffectiveMode returns the configured mode or ModeAuto.
func (p *Policy) EffectiveMode() string {
	if p == nil || p.Mode == "" {
		return ModeAuto
	}
	return strings.ToLower(p.Mode)
}

// IsAllowed evaluates BlockList then AllowList against a function name,
// case-insensitively.
func (p *Policy) IsAllowed(name string) bool {
	if p == nil {
		return true
	}
	normalized := strings.ToLower(name)
	for _, b := range p.BlockList {
		if matches(b, normalized) {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, a := range p.AllowList {
		if matches(a, normalized) {
			return true
		}
	}
	return false
}

// Admit reports whether fn may be recompiled at all.
func (p *Policy) Admit(ctx context.Context, fn *target.Function) bool {
	if p == nil {
		return true
	}
	if p.EffectiveMode() == ModeDeny || !p.IsAllowed(fn.Name) {
		return false
	}
	if p.Approve != nil {
		return p.Approve(ctx, fn, p)
	}
	return true
}

func matches(pattern, name string) bool {
	pattern = strings.ToLower(pattern)
	if pattern == name {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy embedded with WithPolicy.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
