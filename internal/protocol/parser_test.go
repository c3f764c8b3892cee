package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ReadFile(t *testing.T) {
	cmd, err := Parse("READ_FILE src/main.go")
	require.NoError(t, err)
	assert.Equal(t, KindReadFile, cmd.Kind)
	assert.Equal(t, "src/main.go", cmd.Path)
}

func TestParse_ListFiles(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantPath string
	}{
		{"explicit path", "LIST_FILES internal", "internal"},
		{"default path", "LIST_FILES", "."},
		{"trailing spaces", "LIST_FILES   ", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, KindListFiles, cmd.Kind)
			assert.Equal(t, tt.wantPath, cmd.Path)
		})
	}
}

func TestParse_WriteFile(t *testing.T) {
	reply := "WRITE_FILE hello.txt\n<<<<\nworld\n>>>>"
	cmd, err := Parse(reply)
	require.NoError(t, err)
	assert.Equal(t, KindWriteFile, cmd.Kind)
	assert.Equal(t, "hello.txt", cmd.Path)
	assert.Equal(t, "world\n", cmd.Content)
}

func TestParse_WriteFile_MalformedPayload(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"no delimiters", "WRITE_FILE foo.txt"},
		{"missing closing", "WRITE_FILE foo.txt\n<<<<\ncontent"},
		{"closing before opening", "WRITE_FILE foo.txt\n>>>>\ncontent\n<<<<"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Parse(tt.reply)
			require.ErrorIs(t, err, ErrMalformedPayload)
			assert.Equal(t, KindWriteFile, cmd.Kind)
			assert.Equal(t, "foo.txt", cmd.Path)
		})
	}
}

func TestParse_Done(t *testing.T) {
	cmd, err := Parse("DONE Add user authentication\n<<<<\nImplements login and signup.\n>>>>")
	require.NoError(t, err)
	assert.Equal(t, KindDone, cmd.Kind)
	assert.Equal(t, "Add user authentication", cmd.Title)
	assert.True(t, cmd.HasBody)
	assert.Equal(t, "Implements login and signup.\n", cmd.Body)
}

func TestParse_Done_NoBody(t *testing.T) {
	cmd, err := Parse("DONE Add user authentication")
	require.NoError(t, err)
	assert.Equal(t, KindDone, cmd.Kind)
	assert.Equal(t, "Add user authentication", cmd.Title)
	assert.False(t, cmd.HasBody)
	assert.Empty(t, cmd.Body)
}

func TestParse_Done_MalformedBody(t *testing.T) {
	_, err := Parse("DONE title\n<<<<\nno closing")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

// Completion is a first-line keyword match, not a substring check:
// mentioning DONE in prose must not end the task.
func TestParse_DoneInProseIsNotCompletion(t *testing.T) {
	tests := []string{
		"I am almost DONE with this task.",
		"READ_FILE notes/DONE.md",
		"Once the tests pass we can emit DONE.",
	}

	for _, reply := range tests {
		cmd, err := Parse(reply)
		require.NoError(t, err)
		assert.NotEqual(t, KindDone, cmd.Kind, "reply: %q", reply)
	}
}

func TestParse_KeywordMustStartFirstLine(t *testing.T) {
	cmd, err := Parse("Let me look around.\nLIST_FILES .")
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, cmd.Kind)
	assert.Equal(t, "Let me look around.\nLIST_FILES .", cmd.Raw)
}

func TestParse_LeadingBlankLinesSkipped(t *testing.T) {
	cmd, err := Parse("\n\n  \nREAD_FILE go.mod")
	require.NoError(t, err)
	assert.Equal(t, KindReadFile, cmd.Kind)
	assert.Equal(t, "go.mod", cmd.Path)
}

func TestParse_KeywordPrefixOfWordIsUnrecognized(t *testing.T) {
	cmd, err := Parse("DONEZO everything works")
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, cmd.Kind)
}

func TestParse_EmptyReply(t *testing.T) {
	cmd, err := Parse("")
	require.NoError(t, err)
	assert.Equal(t, KindUnrecognized, cmd.Kind)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "WRITE_FILE", KindWriteFile.String())
	assert.Equal(t, "UNRECOGNIZED", KindUnrecognized.String())
}
