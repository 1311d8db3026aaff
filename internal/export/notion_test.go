package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotionSink_CreatesThenUpdates(t *testing.T) {
	fake := newFakeNotion()
	sink := &NotionSink{Client: fake, DatabaseID: "db-leads"}
	leads := testLeads(2)

	rep, err := sink.Export(context.Background(), leads)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Created)
	assert.Zero(t, rep.Updated)

	rep, err = sink.Export(context.Background(), leads)
	require.NoError(t, err)
	assert.Zero(t, rep.Created)
	assert.Equal(t, 2, rep.Updated)
	assert.Len(t, fake.pages, 2)
}

func TestNotionSink_PartialFailure(t *testing.T) {
	fake := newFakeNotion()
	leads := testLeads(3)
	fake.createErr[leads[1].Permalink] = errors.New("validation_error")

	rep, err := (&NotionSink{Client: fake, DatabaseID: "db"}).Export(context.Background(), leads)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Created)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "lead-2", rep.Failures[0].ID)
	assert.Contains(t, rep.Failures[0].Error, "validation_error")
}

func TestNotionSink_MissingPermalink(t *testing.T) {
	leads := testLeads(1)
	leads[0].Permalink = ""
	rep, err := (&NotionSink{Client: newFakeNotion(), DatabaseID: "db"}).Export(context.Background(), leads)
	require.NoError(t, err)
	assert.Len(t, rep.Failures, 1)
}

func TestLeadPage(t *testing.T) {
	l := testLeads(1)[0]
	p := leadPage(l)
	assert.Equal(t, l.Permalink, p.Permalink)
	assert.Equal(t, 8, p.Score)
	assert.Equal(t, "ai", p.ScoringSource)
	assert.Equal(t, "new", p.Status)
}
