package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Trending.PollInterval)
	assert.Equal(t, DefaultThresholds, cfg.Trending.Thresholds)
	assert.Equal(t, DefaultSupportedNetworks, cfg.Trending.SupportedNetworks)
	assert.Equal(t, "https://api.dexscreener.com", cfg.Providers.DexScreenerURL)
	assert.Equal(t, 10, cfg.Providers.RequestTimeout)
	assert.Equal(t, "data_out", cfg.App.DataDir)
}

func TestLoadConfig_EnvAliases(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TRENDING_CHANNEL_ID", "-1001")
	t.Setenv("ADMIN_IDS", "11, 22")
	t.Setenv("THRESHOLDS", "5,15")
	t.Setenv("SUPPORTED_NETWORKS", "Solana,BASE")
	t.Setenv("POLL_INTERVAL", "30")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, "-1001", cfg.Telegram.ChannelID)
	assert.Equal(t, []int64{11, 22}, cfg.Telegram.AdminIDs)
	assert.Equal(t, []int{5, 15}, cfg.Trending.Thresholds)
	assert.Equal(t, []string{"solana", "base"}, cfg.Trending.SupportedNetworks)
	assert.Equal(t, 30, cfg.Trending.PollInterval)
	assert.True(t, cfg.IsAdmin(22))
	assert.False(t, cfg.IsAdmin(33))
	require.NoError(t, cfg.ValidateBot())
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "30")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--trending.poll_interval=5"}))

	cfg, err := LoadConfig(fs)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Trending.PollInterval)
}

func TestLoadConfig_DuplicateThresholdsCollapse(t *testing.T) {
	t.Setenv("THRESHOLDS", "20,10,10,20,30")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, cfg.Trending.Thresholds)
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	t.Setenv("ADMIN_IDS", "abc")
	_, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.admin_ids")
}

func TestLoadConfig_RejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "0")
	_, err := LoadConfig(nil)
	require.Error(t, err)
}

func TestValidateBot_RequiresToken(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateBot())
}

func TestParseStringList(t *testing.T) {
	assert.Nil(t, parseStringList(nil))
	assert.Nil(t, parseStringList("  "))
	assert.Equal(t, []string{"a", "b"}, parseStringList(" a ,, b"))
	assert.Equal(t, []string{"1", "2"}, parseStringList([]interface{}{1, "2"}))
}
