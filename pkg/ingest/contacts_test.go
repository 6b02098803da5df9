package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coboxhq/abra/pkg/store"
)

func contactLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("Person %d — Analyst — at Somewhere", i+1)
	}
	return lines
}

func TestImportContactBlobs_Chunks(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()
	require.NoError(t, imp.Store.RegisterCatcode(ctx, "a0", "", "people"))

	opts := ContactBlobOptions{
		Scope:         "golda",
		Catcode:       "a001",
		ParentCatcode: "a0",
		Label:         "contacts",
		BindingName:   "contacts-list",
		NoteDate:      "2025-06-01",
		ChunkSize:     200,
	}
	report, err := imp.ImportContactBlobs(ctx, contactLines(450), opts)
	require.NoError(t, err)
	assert.Equal(t, 7, report.Created, "3 blobs, 1 list binding, 3 chunk bindings")
	assert.Zero(t, report.Errors)

	blobs, err := imp.Store.ContentByCatcode(ctx, "a001")
	require.NoError(t, err)
	require.Len(t, blobs, 3)
	assert.Equal(t, "contacts-full-list-chunk-1.csv", blobs[0].SourceFile)
	assert.Contains(t, blobs[0].Text, "chunk 1/3")
	assert.Contains(t, blobs[0].Text, "Person 1 —")
	assert.Contains(t, blobs[2].Text, "Person 450 —")

	about, err := imp.Store.About(ctx, "golda", "contacts-list")
	require.NoError(t, err)
	require.Len(t, about, 4)
	assert.Equal(t, store.RelIs, about[0].Relationship)
	for _, b := range about[1:] {
		assert.Equal(t, store.RelAbout, b.Relationship)
		assert.Equal(t, store.TargetContent, b.TargetType)
	}
}

func TestImportContactBlobs_DefaultChunkSize(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()
	require.NoError(t, imp.Store.RegisterCatcode(ctx, "a0", "", "people"))

	report, err := imp.ImportContactBlobs(ctx, contactLines(201), ContactBlobOptions{
		Scope: "golda", Catcode: "a001", ParentCatcode: "a0",
		Label: "contacts", BindingName: "contacts-list",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Created, "200-line default splits 201 lines into 2 blobs")
}

func TestImportContactBlobs_Replace(t *testing.T) {
	imp := newTestImporter(t)
	ctx := context.Background()
	require.NoError(t, imp.Store.RegisterCatcode(ctx, "a0", "", "people"))

	opts := ContactBlobOptions{
		Scope: "golda", Catcode: "a001", ParentCatcode: "a0",
		Label: "contacts", BindingName: "contacts-list", ChunkSize: 100,
	}
	_, err := imp.ImportContactBlobs(ctx, contactLines(250), opts)
	require.NoError(t, err)

	opts.Replace = true
	report, err := imp.ImportContactBlobs(ctx, contactLines(120), opts)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Created)

	blobs, err := imp.Store.ContentByCatcode(ctx, "a001")
	require.NoError(t, err)
	assert.Len(t, blobs, 2, "old chunks replaced, not accumulated")

	about, err := imp.Store.About(ctx, "golda", "contacts-list")
	require.NoError(t, err)
	assert.Len(t, about, 3, "old bindings replaced, not accumulated")

	var replaced *Stage
	for i := range report.Stages {
		if report.Stages[i].Name == "replace" {
			replaced = &report.Stages[i]
		}
	}
	require.NotNil(t, replaced)
	assert.Equal(t, int64(3), replaced.Counters["contentDeleted"])
	assert.Equal(t, int64(4), replaced.Counters["bindingsDeleted"])
}

func TestImportContactBlobs_MissingParent(t *testing.T) {
	imp := newTestImporter(t)
	_, err := imp.ImportContactBlobs(context.Background(), contactLines(3), ContactBlobOptions{
		Scope: "golda", Catcode: "a001", ParentCatcode: "a0",
		Label: "contacts", BindingName: "contacts-list",
	})
	require.ErrorIs(t, err, store.ErrParentNotFound)
}

func TestChunkLines(t *testing.T) {
	chunks := chunkLines([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"a", "b"}, chunks[0])
	assert.Equal(t, []string{"e"}, chunks[2])

	assert.Nil(t, chunkLines(nil, 2))
	assert.Equal(t, strings.Split("a b c", " "), chunkLines([]string{"a", "b", "c"}, 10)[0])
}
