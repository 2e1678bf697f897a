package cases

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `username,password,fullname,email,dob,experience,gender,subscribe
alice,pa55,Alice Example,alice@example.com,1990-01-01,3,Female,true
bob, hunter2 ,Bob Example,bob@example.com,,,Male, FALSE
`

func TestParseBool(t *testing.T) {
	for _, in := range []string{"true", "TRUE", " True ", "\ttrue\n"} {
		v, err := ParseBool(in)
		require.NoError(t, err, in)
		assert.True(t, v, in)
	}
	for _, in := range []string{"false", "False", " FALSE"} {
		v, err := ParseBool(in)
		require.NoError(t, err, in)
		assert.False(t, v, in)
	}
	for _, in := range []string{"", "yes", "1", "0", "t", "no"} {
		_, err := ParseBool(in)
		assert.ErrorIs(t, err, ErrInvalidBool, in)
	}
}

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	alice := rows[0]
	assert.Equal(t, 1, alice.Index())
	assert.Equal(t, "1-alice", alice.Name())
	assert.Equal(t, "pa55", alice.Password())
	assert.Equal(t, "Alice Example", alice.FullName())
	assert.Equal(t, "1990-01-01", alice.DOB())
	assert.Equal(t, "3", alice.Experience())
	assert.Equal(t, "Female", alice.Gender())
	assert.True(t, alice.Subscribe())
	assert.Empty(t, alice.Skill())

	bob := rows[1]
	assert.Equal(t, "2-bob", bob.Name())
	assert.Equal(t, "hunter2", bob.Password(), "values are trimmed")
	assert.Empty(t, bob.DOB())
	assert.Empty(t, bob.Experience())
	assert.False(t, bob.Subscribe())
}

func TestParseCSV_Errors(t *testing.T) {
	t.Run("missing columns", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader("username,password,email\nalice,pw,a@example.com\n"))
		assert.ErrorIs(t, err, ErrMissingColumns)
		assert.Contains(t, err.Error(), "fullname, gender, subscribe")
	})

	t.Run("invalid subscribe", func(t *testing.T) {
		in := "username,password,fullname,email,gender,subscribe\nalice,pw,A,a@x.io,Female,yes\n"
		_, err := ParseCSV(strings.NewReader(in))
		require.ErrorIs(t, err, ErrInvalidBool)

		var re *RowError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, 1, re.Row)
		assert.Equal(t, ColSubscribe, re.Column)
		assert.Equal(t, "yes", re.Value)
	})

	t.Run("too many values", func(t *testing.T) {
		in := "username,password,fullname,email,gender,subscribe\nalice,pw,A,a@x.io,Female,true,extra\n"
		_, err := ParseCSV(strings.NewReader(in))
		assert.ErrorContains(t, err, "row 1 has 7 values")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseCSV(strings.NewReader(""))
		assert.ErrorContains(t, err, "no header row")
	})
}

func TestRow_Immutable(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	row := rows[0]

	fields := row.Fields()
	fields[ColUsername] = "mallory"
	cols := row.Columns()
	cols[0] = "changed"

	assert.Equal(t, "alice", row.Username())
	assert.Equal(t, ColUsername, row.Columns()[0])
	v, ok := row.Get(ColEmail)
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", v)
	_, ok = row.Get("nope")
	assert.False(t, ok)
}

func TestRow_Redacted(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	want := []string{"alice", "********", "Alice Example", "alice@example.com", "1990-01-01", "3", "Female", "true"}
	if diff := cmp.Diff(want, rows[0].Redacted()); diff != "" {
		t.Errorf("redacted mismatch (-want +got):\n%s", diff)
	}
}

func writeWorkbook(t *testing.T, path, sheet string, records [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rec))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "cases.csv")
		require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

		rows, err := Load(path, "")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("xlsx first sheet", func(t *testing.T) {
		path := filepath.Join(dir, "cases.xlsx")
		writeWorkbook(t, path, "Sheet1", [][]interface{}{
			{"Username", "Password", "FullName", "Email", "Gender", "Subscribe", "Skill"},
			{"carol", "pw", "Carol Example", "carol@example.com", "Other", "TRUE", "Go"},
			{},
			{"dave", "pw", "Dave Example", "dave@example.com", "Male", "false"},
		})

		rows, err := Load(path, "")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "1-carol", rows[0].Name())
		assert.Equal(t, "Go", rows[0].Skill())
		assert.True(t, rows[0].Subscribe())
		assert.Equal(t, "2-dave", rows[1].Name())
		assert.Empty(t, rows[1].Skill())
	})

	t.Run("xlsx named sheet", func(t *testing.T) {
		path := filepath.Join(dir, "named.xlsx")
		writeWorkbook(t, path, "Rows", [][]interface{}{
			{"username", "password", "fullname", "email", "gender", "subscribe"},
			{"erin", "pw", "Erin Example", "erin@example.com", "Female", "false"},
		})

		rows, err := Load(path, "Rows")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "erin", rows[0].Username())

		_, err = Load(path, "Missing")
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "cases.json")
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))
		_, err := Load(path, "")
		assert.ErrorContains(t, err, `unsupported data file type ".json"`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.csv"), "")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
