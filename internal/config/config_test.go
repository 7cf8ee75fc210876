package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeTempFile(t, dir, "marketrules.yaml", `
markets:
  china_a:
    commission_rate: 0.0002
    min_commission: 5
`)
	mainPath := writeTempFile(t, dir, "backtestcore.yaml", `
Env: dev
DataPath: ./data
TTL:
  Short: 10
  Medium: 60
  Long: 300
Backtest:
  Symbols:
    - AAPL
  Frequency: 1d
  Timezone: UTC
  InitialCapital: 500000
  MarketType: china_a
MarketRules:
  File: marketrules.yaml
`)

	cfg, err := Load(mainPath)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, []string{"AAPL"}, cfg.Backtest.Symbols)
	assert.Equal(t, 500000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, "china_a", cfg.Backtest.MarketType)
	assert.True(t, cfg.Backtest.FillOnNextBar, "fill_on_next_bar should default true")

	ov := cfg.MarketRuleOverrides()
	entry, ok := ov.Markets["china_a"]
	require.True(t, ok)
	require.NotNil(t, entry.CommissionRate)
	assert.Equal(t, 0.0002, *entry.CommissionRate)
}

func TestLoad_MissingMarketRulesFileLeavesOverridesEmpty(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTempFile(t, dir, "backtestcore.yaml", `
Env: test
DataPath: ./data
TTL:
  Short: 10
  Medium: 60
  Long: 300
Backtest:
  MarketType: us_stock
`)

	cfg, err := Load(mainPath)
	require.NoError(t, err)
	assert.Empty(t, cfg.MarketRuleOverrides().Markets)
}

func TestValidate_RejectsUnknownEnv(t *testing.T) {
	cfg := &Config{Env: "staging", DataPath: "./data", TTL: CacheTTL{Short: 1, Medium: 1, Long: 1}}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidate_RejectsOutOfRangeRejectionRate(t *testing.T) {
	cfg := &Config{
		Env:      "test",
		DataPath: "./data",
		TTL:      CacheTTL{Short: 1, Medium: 1, Long: 1},
		Backtest: BacktestConfig{RejectionRate: 1.5},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestResolveConfigPath_SearchesUpwardsFromCwd(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeTempFile(t, root, "backtestcore.yaml", "Env: test\n")

	restoreWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(restoreWd) }()
	require.NoError(t, os.Chdir(sub))

	resolved, ok := resolveConfigPath("backtestcore.yaml")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "backtestcore.yaml"), resolved)
}
