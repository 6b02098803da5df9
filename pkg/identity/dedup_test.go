package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedup_MergesByEmail(t *testing.T) {
	in := []Contact{
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com", Source: "google"},
		{Name: "J. Doe", PetName: "jdoe", Email: "jane@x.com", Company: "Acme", Source: "google"},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Jane Doe", out[0].Name, "first-seen record survives")
	assert.Equal(t, "Acme", out[0].Company, "empty company filled from duplicate")
}

func TestDedup_EmailCaseInsensitive(t *testing.T) {
	in := []Contact{
		{Name: "Jane Doe", PetName: "jane-doe", Email: "Jane@X.com"},
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com", Title: "Economist"},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Economist", out[0].Title)
}

func TestDedup_MergesBySlugWithoutEmail(t *testing.T) {
	in := []Contact{
		{Name: "Bobbi Vernon", PetName: "bobbi-vernon", Company: "Coop"},
		{Name: "Bobbi Vernon", PetName: "bobbi-vernon", Title: "Organizer", ProfileURL: "https://linkedin.com/in/bv"},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Equal(t, "Coop", out[0].Company)
	assert.Equal(t, "Organizer", out[0].Title)
	assert.Equal(t, "https://linkedin.com/in/bv", out[0].ProfileURL)
}

func TestDedup_DistinctSurvive(t *testing.T) {
	in := []Contact{
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com"},
		{Name: "Leo Marks", PetName: "leo-marks", Email: "leo@y.org"},
		{Name: "No Email", PetName: "no-email"},
	}
	out := Dedup(in)
	require.Len(t, out, 3)
	assert.Equal(t, "jane-doe", out[0].PetName)
	assert.Equal(t, "leo-marks", out[1].PetName)
	assert.Equal(t, "no-email", out[2].PetName)
}

func TestDedup_FillDoesNotOverwrite(t *testing.T) {
	in := []Contact{
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com", Company: "First Co"},
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com", Company: "Second Co"},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Equal(t, "First Co", out[0].Company, "existing value wins over incoming")
}

func TestDedup_AuthoritativeSourcePromotion(t *testing.T) {
	in := []Contact{
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com", Source: "google"},
		{Name: "Jane Doe", PetName: "jdoe", Email: "jane@x.com", Source: SourceLinkedIn},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Equal(t, SourceLinkedIn, out[0].Source)
}

// Phone is only filled on the email-match path. The slug-match path leaving
// phone alone is the historical behavior and is pinned here.
func TestDedup_SlugMergeDoesNotFillPhone(t *testing.T) {
	in := []Contact{
		{Name: "Bobbi Vernon", PetName: "bobbi-vernon"},
		{Name: "Bobbi Vernon", PetName: "bobbi-vernon", Phone: "555-000-1111"},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Phone)
}

func TestDedup_EmailMergeFillsPhone(t *testing.T) {
	in := []Contact{
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com"},
		{Name: "Jane Doe", PetName: "jane-doe", Email: "jane@x.com", Phone: "555-000-1111"},
	}
	out := Dedup(in)
	require.Len(t, out, 1)
	assert.Equal(t, "555-000-1111", out[0].Phone)
}

func TestDedup_EmptyInput(t *testing.T) {
	assert.Empty(t, Dedup(nil))
}
