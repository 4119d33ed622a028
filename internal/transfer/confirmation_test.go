package transfer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmation_Text(t *testing.T) {
	atime := time.Date(2024, 3, 4, 9, 5, 7, 0, time.UTC)
	mtime := time.Date(2024, 3, 4, 9, 5, 1, 0, time.UTC)

	c := NewConfirmation(FileAttributes{
		Name:       "Acme_Corp_2024-02-01_2024-02-29.zip",
		AccessTime: atime,
		ModifyTime: mtime,
		Size:       1234567,
	}, "ftp2.example.com", "/incoming", time.UTC)

	lines := strings.Split(c.Text(), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "File Name: Acme_Corp_2024-02-01_2024-02-29.zip", lines[0])
	assert.Equal(t, "\tLocation on ftp Server ->    ftp2.example.com    :           /incoming", lines[1])
	assert.Equal(t, "\tLast Access Time                                 :Mon Mar  4 09:05:07 2024", lines[2])
	assert.Equal(t, "\tCreated or Last Modified Time                    :Mon Mar  4 09:05:01 2024", lines[3])
	assert.Equal(t, "\tFile Size                                        :1,234,567 bytes", lines[4])
	assert.Equal(t, []byte(c.Text()), c.Bytes())
}

func TestNewConfirmation_Location(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	c := NewConfirmation(FileAttributes{Name: "x.zip", ModifyTime: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)}, "h", "/", loc)
	assert.Equal(t, 22, c.ModifyTime.Hour())
}

func TestFindAttributes(t *testing.T) {
	entries := []FileAttributes{{Name: "a.zip", Size: 1}, {Name: "b.zip", Size: 2}}

	got, ok := FindAttributes(entries, "b.zip")
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Size)

	_, ok = FindAttributes(entries, "c.zip")
	assert.False(t, ok)
}

func TestEndpoint_Host(t *testing.T) {
	assert.Equal(t, "ftp2.example.com", Endpoint{Address: "ftp2.example.com:22"}.Host())
	assert.Equal(t, "ftp2.example.com", Endpoint{Address: "ftp2.example.com"}.Host())
}
