package runtime

import (
	"chat-relay/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt":     {Data: []byte("badger\r\nsnake\n\n# comment\n")},
		"censored/fr.txt":     {Data: []byte("Blaireau\nbadger\n")},
		"censored/README.md":  {Data: []byte("ignored")},
		"censored/sub/de.txt": {Data: []byte("dachs")},
	}

	data, err := NewCensoredLoader(files).LoadAll("censored")

	req.NoError(err)
	req.Equal([]string{"en", "fr"}, data.Languages)
	req.Equal([]string{"badger", "blaireau", "snake"}, data.Words)
}

func TestCensoredLoader_LoadAll_Empty(t *testing.T) {
	files := fstest.MapFS{
		"censored/en.txt": {Data: []byte("\n\n")},
	}

	_, err := NewCensoredLoader(files).LoadAll("censored")

	require.ErrorIs(t, err, errors.ErrEmptyWords)
}

func TestCensoredLoader_EmbeddedLists(t *testing.T) {
	req := require.New(t)

	data, err := NewCensoredLoader(censoredFolder).LoadAll("censored")

	req.NoError(err)
	req.NotEmpty(data.Words)
	req.Contains(data.Languages, "en")
}
