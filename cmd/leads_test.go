package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-radar/internal/config"
	"github.com/sells-group/lead-radar/internal/export"
)

func TestNewSink(t *testing.T) {
	cfg = &config.Config{}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	sink, err := newSink("xlsx", path)
	require.NoError(t, err)
	xs, ok := sink.(*export.XLSXSink)
	require.True(t, ok)
	assert.Equal(t, path, xs.Path)

	sink, err = newSink("xlsx", "")
	require.NoError(t, err)
	assert.Contains(t, sink.(*export.XLSXSink).Path, "leads-")

	_, err = newSink("notion", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.notion.token is required")

	_, err = newSink("salesforce", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.salesforce.client_id is required")

	_, err = newSink("csv", "")
	assert.Error(t, err)
}

func TestNewSink_Notion(t *testing.T) {
	cfg = &config.Config{Export: config.ExportConfig{
		Notion: config.NotionConfig{Token: "secret", LeadDB: "db-1"},
	}}
	sink, err := newSink("notion", "")
	require.NoError(t, err)
	ns, ok := sink.(*export.NotionSink)
	require.True(t, ok)
	assert.Equal(t, "db-1", ns.DatabaseID)
	assert.Equal(t, "notion", ns.Name())
}

func TestLeadFilter(t *testing.T) {
	leadsUser, leadsProduct, leadsStatus, leadsLimit = "u1", "p1", "new", 50
	leadsSince = 24 * time.Hour
	t.Cleanup(func() {
		leadsUser, leadsProduct, leadsStatus, leadsLimit, leadsSince = "", "", "", 500, 0
	})

	f := leadFilter()
	assert.Equal(t, "u1", f.UserID)
	assert.Equal(t, "p1", f.ProductID)
	assert.EqualValues(t, "new", f.Status)
	assert.Equal(t, 50, f.Limit)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), f.CreatedAfter, time.Minute)
}
