package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytd-go/ytd/pkg/ytd"
)

func TestNewDownloadRecord(t *testing.T) {
	dir := t.TempDir()
	job, err := ytd.NewMultipleLinks(dir, []ytd.Arg{ytd.NewArg("--quiet")},
		[]string{"https://example.com/a", "https://example.com/b"}, ytd.WithBinary(ytd.BinaryYTDLP))
	require.NoError(t, err)

	record := NewDownloadRecord(job)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, dir, record.OutputDir)
	assert.Equal(t, "yt-dlp", record.Binary)
	assert.Equal(t, "yt-dlp --quiet https://example.com/a https://example.com/b", record.Command)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, record.LinkList())
	assert.Empty(t, record.Result)
	assert.Nil(t, record.StartedAt)
}

func TestDownloadRecord_MarkFinished(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(t.TempDir(), "fake")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\necho done\n"), 0755))

	job, err := ytd.New(dir, nil, "https://example.com/v", ytd.WithBinary(bin))
	require.NoError(t, err)

	record := NewDownloadRecord(job)
	record.MarkStarted()
	record.MarkFinished(job.Download())

	assert.Equal(t, ytd.ResultSuccess, record.Result)
	assert.True(t, record.Succeeded())
	assert.Contains(t, record.Output, "done")
	assert.NotNil(t, record.CompletedAt)
	assert.GreaterOrEqual(t, record.DurationMS, int64(0))
}

func TestDownloadRecord_LinkListEmpty(t *testing.T) {
	record := &DownloadRecord{}
	assert.Nil(t, record.LinkList())
}

func TestValidateResultType(t *testing.T) {
	assert.True(t, ValidateResultType(ytd.ResultSuccess))
	assert.True(t, ValidateResultType(ytd.ResultIOError))
	assert.True(t, ValidateResultType(ytd.ResultFailure))
	assert.False(t, ValidateResultType("invalid"))
}
