package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVParser_Parse(t *testing.T) {
	parser := NewCSVParser()

	t.Run("standard headers", func(t *testing.T) {
		path := writeTempCSV(t, "name,phone,email\nAna,5511999990001,ana@example.com\nBruno,5511999990002,\n")

		contacts, err := parser.Parse(context.Background(), path, "csv", nil)
		require.NoError(t, err)
		require.Len(t, contacts, 2)

		assert.Equal(t, "Ana", contacts[0].Name)
		assert.Equal(t, "5511999990001", contacts[0].Phone)
		assert.Equal(t, "ana@example.com", contacts[0].Email)
		assert.Equal(t, "Bruno", contacts[1].Name)
		assert.Empty(t, contacts[1].Email)
	})

	t.Run("field mapping and metadata fallback", func(t *testing.T) {
		path := writeTempCSV(t, "nome,telefone,labels,city\nAna,5511999990001,vip;beta,Recife\n")

		mapping := map[string]string{
			"nome":     "name",
			"telefone": "phone",
			"labels":   "tags",
		}

		contacts, err := parser.Parse(context.Background(), path, "", mapping)
		require.NoError(t, err)
		require.Len(t, contacts, 1)

		assert.Equal(t, "Ana", contacts[0].Name)
		assert.Equal(t, "5511999990001", contacts[0].Phone)
		assert.Equal(t, []string{"vip", "beta"}, contacts[0].Tags)
		assert.Equal(t, "Recife", contacts[0].Metadata["city"])
	})

	t.Run("short rows are padded", func(t *testing.T) {
		path := writeTempCSV(t, "name,phone,email\nAna,5511999990001\n")

		contacts, err := parser.Parse(context.Background(), path, "csv", nil)
		require.NoError(t, err)
		require.Len(t, contacts, 1)
		assert.Equal(t, "Ana", contacts[0].Name)
		assert.Empty(t, contacts[0].Email)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeTempCSV(t, "")

		contacts, err := parser.Parse(context.Background(), path, "csv", nil)
		require.NoError(t, err)
		assert.Empty(t, contacts)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := parser.Parse(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "csv", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to open import file")
	})

	t.Run("unsupported file type", func(t *testing.T) {
		_, err := parser.Parse(context.Background(), "anything.xlsx", "xlsx", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported file type")
	})
}
