package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykvlv/report-bot/assets"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := New(assets.ZonesCSV)
	require.NoError(t, err)
	return r
}

func TestOffsetMinutes_FollowsDST(t *testing.T) {
	r := newResolver(t)

	winter := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	summer := time.Date(2025, time.July, 15, 12, 0, 0, 0, time.UTC)

	off, err := r.OffsetMinutes("Europe/Berlin", winter)
	require.NoError(t, err)
	assert.Equal(t, 60, off)

	off, err = r.OffsetMinutes("Europe/Berlin", summer)
	require.NoError(t, err)
	assert.Equal(t, 120, off)

	off, err = r.OffsetMinutes("Asia/Kolkata", summer)
	require.NoError(t, err)
	assert.Equal(t, 330, off)
}

func TestOffsetMinutes_UnknownZone(t *testing.T) {
	r := newResolver(t)
	for _, id := range []string{"", "Local", "Mars/Olympus_Mons"} {
		_, err := r.OffsetMinutes(id, time.Now())
		assert.ErrorIs(t, err, ErrTimezoneNotFound, "id %q", id)
	}
}

func TestCanonical(t *testing.T) {
	r := newResolver(t)

	id, err := r.Canonical("  europe/berlin ")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", id)

	// Not in the catalogue but a valid IANA name.
	id, err = r.Canonical("America/Winnipeg")
	require.NoError(t, err)
	assert.Equal(t, "America/Winnipeg", id)

	_, err = r.Canonical("berlin")
	assert.ErrorIs(t, err, ErrTimezoneNotFound)
}

func TestFind(t *testing.T) {
	r := newResolver(t)
	z, err := r.Find("Asia/Tokyo", time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Japan", z.Country)
	assert.Equal(t, 540, z.OffsetMinutes)
	assert.Contains(t, z.Cities, "Osaka")
}

func TestSearch(t *testing.T) {
	r := newResolver(t)
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	got := r.Search("berl", now, 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "Europe/Berlin", got[0].ID)

	got = r.Search("TOKYO", now, 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "Asia/Tokyo", got[0].ID)

	got = r.Search("buenos aires", now, 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "America/Argentina/Buenos_Aires", got[0].ID)

	got = r.Search("a", now, 3)
	assert.Len(t, got, 3)

	assert.Empty(t, r.Search("  ", now, 10))
	assert.Empty(t, r.Search("zzqqxx", now, 10))
}

func TestList(t *testing.T) {
	r := newResolver(t)
	zones := r.List(time.Now())
	require.NotEmpty(t, zones)
	assert.Equal(t, "Africa/Cairo", zones[0].ID)
}

func TestNew_RejectsBadCatalogue(t *testing.T) {
	_, err := New("Europe/Berlin;Germany")
	assert.Error(t, err)

	_, err = New("Nowhere/City;Atlantis;Atlantis")
	assert.Error(t, err)
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "+05:30", FormatOffset(330))
	assert.Equal(t, "-03:00", FormatOffset(-180))
	assert.Equal(t, "+00:00", FormatOffset(0))
}
