package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/certificate-studio/internal/catalog"
)

func writeData(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.TranslationsFile), []byte(`{
		"ru": {"studentNameRequired": "Введите имя студента"},
		"en": {"studentNameRequired": "Enter the student name"}
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.CatalogFile), []byte(`{
		"python": {
			"ru": {"title": "Python-разработчик", "levels": {"Junior": ["Синтаксис"], "Middle": ["Асинхронность"]}},
			"en": {"title": "Python developer", "levels": {"Junior": ["Syntax"]}}
		}
	}`), 0o644))
	return dir
}

func TestRunWritesPDF(t *testing.T) {
	data := writeData(t)
	out := filepath.Join(t.TempDir(), "cert.pdf")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-data", data, "-name", "Ада", "-level", "Middle", "-stamp=false", "-scale", "0.25", "-out", out,
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
	assert.Contains(t, stderr.String(), "wrote "+out)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, outputMode, info.Mode().Perm())
}

func TestRunToStdout(t *testing.T) {
	data := writeData(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", data, "-name", "Ada", "-lang", "en", "-scale", "0.25", "-out", "-"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.True(t, bytes.HasPrefix(stdout.Bytes(), []byte("%PDF-")))
}

func TestRunNameRequired(t *testing.T) {
	data := writeData(t)
	outDir := t.TempDir()
	out := filepath.Join(outDir, "cert.pdf")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", data, "-scale", "0.25", "-out", out}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Введите имя студента")

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunMissingData(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", t.TempDir(), "-name", "Ада"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "404 / 404")
}

func TestRunUnknownCourse(t *testing.T) {
	data := writeData(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-data", data, "-name", "Ада", "-course", "cobol", "-out", "-"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown course")
	assert.Zero(t, stdout.Len())
}

func TestRunRemembersSelection(t *testing.T) {
	data := writeData(t)
	state := filepath.Join(t.TempDir(), "state.yaml")

	var stdout, stderr bytes.Buffer
	args := []string{"-data", data, "-state", state, "-name", "Ада", "-scale", "0.25", "-out", "-"}
	require.Equal(t, 0, run(context.Background(), append(args, "-level", "Middle"), &stdout, &stderr), stderr.String())

	raw, err := os.ReadFile(state)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "selectedLevel-ru-python: Middle")

	stdout.Reset()
	require.Equal(t, 0, run(context.Background(), args, &stdout, &stderr), stderr.String())
}

func TestRunBadFlags(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-nope"}, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"extra"}, &stdout, &stderr))
}
