package steamuser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLoginUsers = `"users"
{
	"76561198000000001"
	{
		"AccountName"		"olduser"
		"PersonaName"		"Old User"
		"RememberPassword"		"1"
		"MostRecent"		"0"
		"Timestamp"		"1690000000"
	}
	"76561198123456789"
	{
		"AccountName"		"activeuser"
		"PersonaName"		"Active User"
		"RememberPassword"		"1"
		"MostRecent"		"1"
		"Timestamp"		"1720000000"
	}
}
`

func writeLoginUsers(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loginusers.vdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMostRecentUser(t *testing.T) {
	user, err := MostRecentUser(writeLoginUsers(t, sampleLoginUsers))
	require.NoError(t, err)

	assert.Equal(t, uint64(76561198123456789), user.SteamID64)
	assert.Equal(t, "activeuser", user.AccountName)
	assert.Equal(t, "Active User", user.PersonaName)
	assert.True(t, user.MostRecent)
}

func TestAccountIDIsLow32Bits(t *testing.T) {
	user := User{SteamID64: 76561198123456789}
	assert.Equal(t, uint32(163191061), user.AccountID())
}

func TestMostRecentUserFallsBackToFirst(t *testing.T) {
	content := `"users"
{
	"76561198000000001"
	{
		"AccountName"	"only"
		"MostRecent"	"0"
	}
}
`
	user, err := MostRecentUser(writeLoginUsers(t, content))
	require.NoError(t, err)
	assert.Equal(t, "only", user.AccountName)
}

func TestMostRecentUserEmptyFile(t *testing.T) {
	_, err := MostRecentUser(writeLoginUsers(t, `"users" { }`))
	assert.Error(t, err)
}

func TestMostRecentUserMissingFile(t *testing.T) {
	_, err := MostRecentUser(filepath.Join(t.TempDir(), "nope.vdf"))
	assert.Error(t, err)
}

func TestParseSkipsMalformedAccountBlocks(t *testing.T) {
	content := `"users"
{
	"not-a-steamid"
	{
		"AccountName"	"ghost"
	}
	"76561198000000002"
	{
		"AccountName"	"real"
		"MostRecent"	"1"
	}
}
`
	user, err := MostRecentUser(writeLoginUsers(t, content))
	require.NoError(t, err)
	assert.Equal(t, "real", user.AccountName)
}
