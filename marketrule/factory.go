package marketrule

import (
	"fmt"
	"strings"
	"sync"
)

// Factory is an exhaustive dispatch from a market-type string to a Rule
// constructor, mirroring MarketRulesFactory.create_rules / register_rules
// from the source system. The default registry covers the five built-in
// variants plus a "stock" alias; callers can register additional ones without modifying this
// package.
type Factory struct {
	mu    sync.RWMutex
	rules map[string]func() Rule
}

// NewFactory returns a Factory pre-populated with the built-in market
// variants.
func NewFactory() *Factory {
	f := &Factory{rules: make(map[string]func() Rule)}
	f.Register("china_a", func() Rule { return NewChinaA() })
	f.Register("us_stock", func() Rule { return NewUSStock() })
	f.Register("hk_stock", func() Rule { return NewHKStock() })
	f.Register("crypto", func() Rule { return NewCrypto() })
	f.Register("futures", func() Rule { return NewFutures(0.1) })
	// "stock" defaults to US, matching the source factory's default mapping.
	f.Register("stock", func() Rule { return NewUSStock() })
	return f
}

// Register adds or replaces the constructor for marketType.
func (f *Factory) Register(marketType string, ctor func() Rule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[strings.ToLower(marketType)] = ctor
}

// Create builds a Rule for marketType, or an error listing the supported
// types if marketType is unknown.
func (f *Factory) Create(marketType string) (Rule, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ctor, ok := f.rules[strings.ToLower(marketType)]
	if !ok {
		return nil, fmt.Errorf("marketrule: unsupported market type %q (supported: %s)", marketType, f.supportedLocked())
	}
	return ctor(), nil
}

// CreateWithOverrides builds a Rule for marketType via Create, then applies
// any override entry ov carries for that market type before returning it.
func (f *Factory) CreateWithOverrides(marketType string, ov Overrides) (Rule, error) {
	rule, err := f.Create(marketType)
	if err != nil {
		return nil, err
	}
	ov.ApplyOverrides(strings.ToLower(marketType), rule)
	return rule, nil
}

func (f *Factory) supportedLocked() string {
	types := make([]string, 0, len(f.rules))
	for k := range f.rules {
		types = append(types, k)
	}
	return strings.Join(types, ", ")
}
