package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules(t *testing.T) {
	r, err := NewRules(
		[]string{`\.log$`, ""},
		[]string{"saves/", ""},
		[]string{`^Data/Skyrim\.ini$`, ""},
	)
	require.NoError(t, err)

	assert.True(t, r.IgnoreDownload("logs/today.log"))
	assert.False(t, r.IgnoreDownload("logs/today.txt"))

	assert.True(t, r.OnlyIfMissing("game/saves/slot1.sav"))
	assert.False(t, r.OnlyIfMissing("game/save.sav"))

	assert.True(t, r.IgnoreDelete("Data/Skyrim.ini"))
	assert.False(t, r.IgnoreDelete("Data/Skyrim.ini.bak"))
}

func TestRules_EmptyMatchesNothing(t *testing.T) {
	r, err := NewRules(nil, nil, nil)
	require.NoError(t, err)

	for _, rel := range []string{"", "a", "a/b/c.txt"} {
		assert.False(t, r.IgnoreDownload(rel))
		assert.False(t, r.OnlyIfMissing(rel))
		assert.False(t, r.IgnoreDelete(rel))
	}

	var zero Rules
	assert.False(t, zero.IgnoreDelete("x"))
}

func TestRules_InvalidPattern(t *testing.T) {
	_, err := NewRules([]string{"("}, nil, nil)
	assert.ErrorContains(t, err, "download ignore")

	_, err = NewRules(nil, nil, []string{"[a-"})
	assert.ErrorContains(t, err, "delete ignore")
}
