package importer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/sheets/memory"
)

const wordsCSV = `English,Dutch,Category,Difficulty,Example English,Example Dutch
bicycle,de fiets,Transport,1,I ride my bicycle.,Ik fiets op mijn fiets.
house,het huis,,2,,
train,de trein,transport,four,,
,de auto,transport,1,,
`

func TestReadCSVAndParse(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(wordsCSV))
	require.NoError(t, err)

	words, errs, err := Parse(rows)
	require.NoError(t, err)
	require.Len(t, words, 2)

	assert.Equal(t, 2, words[0].Line)
	assert.Equal(t, "transport", words[0].Word.Category)
	assert.Equal(t, "Ik fiets op mijn fiets.", words[0].Word.ExampleDutch)
	assert.Equal(t, "general", words[1].Word.Category)
	assert.Equal(t, 2, words[1].Word.Difficulty)

	require.Len(t, errs, 2)
	assert.Equal(t, 4, errs[0].Line)
	assert.Contains(t, errs[0].Error(), "line 4")
	assert.Equal(t, 5, errs[1].Line)
	assert.ErrorIs(t, errs[1].Err, core.ErrEmptyEnglish)
}

func TestParse_Header(t *testing.T) {
	_, _, err := Parse(nil)
	assert.ErrorIs(t, err, ErrMissingHeader)

	_, _, err = Parse([][]string{{"word", "translation"}})
	assert.ErrorIs(t, err, ErrMissingHeader)

	words, _, err := Parse([][]string{{"NL", "EN"}, {"", " "}, {"de kat", "cat"}})
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, 3, words[0].Line)
	assert.Equal(t, "cat", words[0].Word.English)
	assert.Equal(t, "de kat", words[0].Word.Dutch)
}

func TestReadFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"english", "dutch", "difficulty"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"cheese", "de kaas", 1}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"windmill", "de molen", 3}))

	path := filepath.Join(t.TempDir(), "words.xlsx")
	require.NoError(t, f.SaveAs(path))

	rows, err := ReadFile(path, "")
	require.NoError(t, err)
	words, errs, err := Parse(rows)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, words, 2)
	assert.Equal(t, 3, words[1].Word.Difficulty)

	_, err = ReadFile(path, "Missing")
	assert.Error(t, err)
}

func TestReadFile_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("english,dutch"), 0o600))
	_, err := ReadFile(path, "")
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestReadSheet(t *testing.T) {
	src := memory.New()
	src.SetRows("Words", [][]string{{"english", "dutch"}, {"tulip", "de tulp"}})

	rows, err := ReadSheet(context.Background(), src, "Words!A:B")
	require.NoError(t, err)
	words, _, err := Parse(rows)
	require.NoError(t, err)
	assert.Equal(t, "de tulp", words[0].Word.Dutch)
}

type fakeWordStore struct {
	seen map[string]bool
}

func (f *fakeWordStore) UpsertWord(_ context.Context, w core.Word) (core.Word, bool, error) {
	if w.English == "broken" {
		return core.Word{}, false, errors.New("constraint failed")
	}
	key := w.English + "|" + w.Dutch
	created := !f.seen[key]
	f.seen[key] = true
	return w, created, nil
}

func TestImport(t *testing.T) {
	store := &fakeWordStore{seen: map[string]bool{"house|het huis": true}}
	im := New(store, log.New(log.Config{Output: io.Discard}))

	rows := []Row{
		{Line: 2, Word: core.Word{English: "bicycle", Dutch: "de fiets", Category: "transport", Difficulty: 1}},
		{Line: 3, Word: core.Word{English: "house", Dutch: "het huis", Category: "home", Difficulty: 1}},
		{Line: 4, Word: core.Word{English: "broken", Dutch: "kapot", Category: "misc", Difficulty: 1}},
	}
	ticks := 0
	res, err := im.Import(context.Background(), rows, func() { ticks++ })
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed())
	assert.Equal(t, 4, res.Errors[0].Line)
	assert.Equal(t, 3, ticks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = im.Import(ctx, rows, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
