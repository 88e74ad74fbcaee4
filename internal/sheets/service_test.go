package sheets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_9xYz/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_9xYz", id)

	_, err = extractSpreadsheetID("https://example.com/not-a-sheet")
	assert.Error(t, err)
}

func TestColumnRange(t *testing.T) {
	r, err := columnRange("Financial_Report", 10)
	require.NoError(t, err)
	assert.Equal(t, "Financial_Report!A:J", r)

	r, err = columnRange("S", 28)
	require.NoError(t, err)
	assert.Equal(t, "S!A:AB", r)

	_, err = columnRange("S", 0)
	assert.Error(t, err)
}

func TestLoadCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("GOOGLE_CREDENTIALS", "")
	_, err := loadCredentials()
	assert.Error(t, err)

	t.Setenv("GOOGLE_CREDENTIALS", `{"type":"service_account"}`)
	creds, err := loadCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(creds))

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o600))
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	creds, err = loadCredentials()
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(creds))
}
