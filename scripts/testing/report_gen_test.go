package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotatedTest = `//go:build integration

package postgres

import "testing"

// TestPurpose: Validates the seeded catalog.
// Scope: Integration Test
// Security: None
// Expected: Three plans exist.
// Test Case ID: INT-01
func TestSeededCatalog(t *testing.T) {}

func TestMain(m *testing.M) {}
`

const plainTest = `package tenant

import "testing"

// TestPurpose: Validates slugging.
// Test Case ID: TEN-01
func TestSlugify(t *testing.T) {}

func TestUnannotated(t *testing.T) {}
`

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"internal/store/postgres/integration_test.go": annotatedTest,
		"internal/tenant/tenant_test.go":              plainTest,
		"_examples/other/skip_test.go":                plainTest,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// TestPurpose: Validates that annotation blocks, build tags and areas are read from test sources.
// Scope: Unit Test
// Security: None
// Expected: Annotated fields are populated; integration files are typed INT; underscore directories are skipped; TestMain is ignored.
// Test Case ID: RPT-01
func TestScanMetadata(t *testing.T) {
	meta, err := scanMetadata(writeTree(t))
	require.NoError(t, err)
	assert.Len(t, meta, 3)

	m := meta[modulePath+"/internal/store/postgres.TestSeededCatalog"]
	assert.Equal(t, "INT-01", m.TestCaseID)
	assert.Equal(t, "Validates the seeded catalog.", m.Purpose)
	assert.Equal(t, "Three plans exist.", m.Expected)
	assert.Equal(t, "INT", m.Type)
	assert.Equal(t, "Store", m.Area)

	m = meta[modulePath+"/internal/tenant.TestSlugify"]
	assert.Equal(t, "TEN-01", m.TestCaseID)
	assert.Equal(t, "UT", m.Type)
	assert.Equal(t, "Tenant", m.Area)

	_, ok := meta[modulePath+"/internal/store/postgres.TestMain"]
	assert.False(t, ok)
}

// TestPurpose: Validates merging of go test -json events with annotations.
// Scope: Unit Test
// Security: None
// Expected: Statuses are taken from events, subtests inherit annotations, failures keep their output and unrun tests are reported as not run.
// Test Case ID: RPT-02
func TestMergeResults(t *testing.T) {
	meta, err := scanMetadata(writeTree(t))
	require.NoError(t, err)

	pkg := modulePath + "/internal/tenant"
	events := strings.Join([]string{
		`{"Action":"run","Package":"` + pkg + `","Test":"TestSlugify"}`,
		`{"Action":"pass","Package":"` + pkg + `","Test":"TestSlugify/spaces","Elapsed":0.01}`,
		`{"Action":"pass","Package":"` + pkg + `","Test":"TestSlugify","Elapsed":0.02}`,
		`{"Action":"output","Package":"` + pkg + `","Test":"TestUnannotated","Output":"boom\n"}`,
		`{"Action":"fail","Package":"` + pkg + `","Test":"TestUnannotated","Elapsed":0.03}`,
		`not json`,
	}, "\n")

	results, err := mergeResults(strings.NewReader(events), meta)
	require.NoError(t, err)

	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, "pass", byName["TestSlugify"].Status)
	sub := byName["TestSlugify/spaces"]
	assert.Equal(t, "pass", sub.Status)
	assert.Equal(t, "TEN-01", sub.Annotations.TestCaseID)
	assert.Contains(t, sub.Annotations.Purpose, "(spaces)")

	failed := byName["TestUnannotated"]
	assert.Equal(t, "fail", failed.Status)
	assert.Equal(t, "boom\n", failed.Failure)

	assert.Equal(t, "not run", byName["TestSeededCatalog"].Status)

	rep := summarize(results, time.Unix(0, 0))
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.Passed)
	assert.Equal(t, 1, rep.Failed)

	var buf bytes.Buffer
	require.NoError(t, writeMarkdown(&buf, rep, "Unit Tests"))
	out := buf.String()
	assert.Contains(t, out, "# Tenantcore Unit Tests")
	assert.Contains(t, out, "❌ FAILED")
	assert.Contains(t, out, "## Tenant")
	assert.Contains(t, out, "## Failures")
}
