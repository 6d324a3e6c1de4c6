// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/filter"
)

func TestTranslate(t *testing.T) {
	got, err := translate(entity.Default(), "clari-calls", []string{"search=renewal", "limit=50", "order_by=call_time"}, filter.Options{MaxRecords: 10})
	require.NoError(t, err)
	assert.Equal(t, "/rest/v1/clari_calls?limit=10&call_title=ilike.%25renewal%25&order=call_time.desc", got)

	_, err = translate(entity.Default(), "campaigns", nil, filter.Options{MaxRecords: 10})
	assert.Error(t, err)

	_, err = translate(entity.Default(), "lead", []string{"search"}, filter.Options{MaxRecords: 10})
	assert.Error(t, err)
}

func TestTranslateCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"translate", "sfdc-contacts", "search=Ann", "--default-ordering"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "/rest/v1/sfdc_contacts?limit=10&first_name=ilike.%25Ann%25&order=last_name.asc\n", out.String())
}

func TestEntitiesCommandWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.yaml")
	require.NoError(t, os.WriteFile(path, []byte("entities:\n  lead:\n    max_length:\n      compact:\n        company: 12\n"), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"entities", "--entities", path})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, out.String(), "company(12)")
	assert.Contains(t, out.String(), "/api/sfdc-opportunities")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := loadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err := loadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.All(), 5)
}
