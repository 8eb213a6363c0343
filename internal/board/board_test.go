package board

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rueda-la-rola/leadgen/internal/model"
	"github.com/rueda-la-rola/leadgen/internal/store"
)

func strPtr(s string) *string { return &s }

func newTestBoard(t *testing.T) (*Board, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return New(st), st
}

func testPlaces() []model.Place {
	return []model.Place{
		{PlaceID: "p-luna", Name: "Café Luna", Address: "Calle Mayor 1", Phone: strPtr("+1 555 0100")},
		{PlaceID: "p-sol", Name: "Bar Sol", Address: "Calle Sol 2", Website: strPtr("https://barsol.es")},
		{PlaceID: "p-gram", Name: "Gram Studio", Address: "Calle Gram 3", Website: strPtr("https://instagram.com/gramstudio")},
	}
}

func TestParseFilterMode(t *testing.T) {
	t.Parallel()

	m, err := ParseFilterMode("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, m)

	for _, valid := range []string{"all", "no-web", "with-web"} {
		_, err := ParseFilterMode(valid)
		assert.NoError(t, err)
	}

	_, err = ParseFilterMode("websites-only")
	assert.Error(t, err)
}

func TestVisible_WebFilters(t *testing.T) {
	b, _ := newTestBoard(t)
	b.SetPlaces(testPlaces())

	all := b.Visible(FilterAll)
	assert.Len(t, all, 3)

	// Social-only presence counts as no-web.
	noWeb := b.Visible(FilterNoWeb)
	require.Len(t, noWeb, 2)
	assert.Equal(t, "p-luna", noWeb[0].PlaceID)
	assert.Equal(t, "p-gram", noWeb[1].PlaceID)

	withWeb := b.Visible(FilterWithWeb)
	require.Len(t, withWeb, 1)
	assert.Equal(t, "p-sol", withWeb[0].PlaceID)
}

func TestVisible_ExcludesPipelineLeads(t *testing.T) {
	b, _ := newTestBoard(t)
	b.SetPlaces(testPlaces())

	_, err := b.SetStatus(context.Background(), "p-sol", model.StatusContacted)
	require.NoError(t, err)

	visible := b.Visible(FilterAll)
	require.Len(t, visible, 2)
	for _, v := range visible {
		assert.NotEqual(t, "p-sol", v.PlaceID)
	}

	// Counts ignore the pipeline rule.
	counts := b.Counts()
	assert.Equal(t, Counts{Total: 3, NoWeb: 2, WithWeb: 1}, counts)
}

func TestAppendPlaces_AppendsAndDedupes(t *testing.T) {
	b, _ := newTestBoard(t)
	b.SetPlaces(testPlaces())

	b.AppendPlaces([]model.Place{
		{PlaceID: "p-sol", Name: "Bar Sol (dup)"},
		{PlaceID: "p-nueva", Name: "Tienda Nueva"},
	})

	visible := b.Visible(FilterAll)
	require.Len(t, visible, 4)
	assert.Equal(t, "p-nueva", visible[3].PlaceID)
	assert.Equal(t, "Bar Sol", visible[1].Name, "first page wins on duplicate id")

	// A fresh search replaces the accumulated list.
	b.SetPlaces(testPlaces()[:1])
	assert.Len(t, b.Visible(FilterAll), 1)
}

func TestSetStatus_PersistsAndDenormalizes(t *testing.T) {
	b, st := newTestBoard(t)
	b.SetPlaces(testPlaces())

	lead, err := b.SetStatus(context.Background(), "p-luna", model.StatusContacted)
	require.NoError(t, err)
	assert.Equal(t, "Café Luna", lead.Name)
	require.NotNil(t, lead.Phone)
	assert.Equal(t, "+1 555 0100", *lead.Phone)

	stored, err := st.GetLead(context.Background(), "p-luna")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.StatusContacted, stored.Status)
	assert.Equal(t, "Café Luna", stored.Name)
}

func TestSetStatus_RejectsIllegalTransition(t *testing.T) {
	b, st := newTestBoard(t)
	b.SetPlaces(testPlaces())
	ctx := context.Background()

	_, err := b.SetStatus(ctx, "p-luna", model.StatusSold)
	require.NoError(t, err)

	_, err = b.SetStatus(ctx, "p-luna", model.StatusContacted)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrIllegalTransition))

	// Nothing was persisted by the rejected transition.
	stored, err := st.GetLead(ctx, "p-luna")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSold, stored.Status)
}

func TestSetStatus_RejectedCanResurface(t *testing.T) {
	b, _ := newTestBoard(t)
	b.SetPlaces(testPlaces())
	ctx := context.Background()

	_, err := b.SetStatus(ctx, "p-luna", model.StatusRejected)
	require.NoError(t, err)
	assert.Len(t, b.Visible(FilterAll), 2, "rejected leaves the results view")

	// Direct edit from the pipeline view is the only way back.
	lead, err := b.SetStatus(ctx, "p-luna", model.StatusContacted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusContacted, lead.Status)
}

func TestAutoContact_PromotesNewAndAbsentOnly(t *testing.T) {
	b, st := newTestBoard(t)
	places := testPlaces()
	b.SetPlaces(places)
	ctx := context.Background()

	// Absent lead: promoted.
	require.NoError(t, b.AutoContact(ctx, places[0]))
	stored, err := st.GetLead(ctx, "p-luna")
	require.NoError(t, err)
	assert.Equal(t, model.StatusContacted, stored.Status)

	// Sold lead: untouched.
	_, err = b.SetStatus(ctx, "p-sol", model.StatusSold)
	require.NoError(t, err)
	require.NoError(t, b.AutoContact(ctx, places[1]))
	stored, err = st.GetLead(ctx, "p-sol")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSold, stored.Status, "auto-contact must not regress sold")
}

func TestAutoContact_DenormalizesFromResultSet(t *testing.T) {
	b, st := newTestBoard(t)
	b.SetPlaces(testPlaces())
	ctx := context.Background()

	// The caller only knows id and name; phone and address come from
	// the current result set.
	require.NoError(t, b.AutoContact(ctx, model.Place{PlaceID: "p-luna", Name: "Café Luna"}))

	stored, err := st.GetLead(ctx, "p-luna")
	require.NoError(t, err)
	require.NotNil(t, stored.Phone)
	assert.Equal(t, "+1 555 0100", *stored.Phone)
	assert.Equal(t, "Calle Mayor 1", stored.Address)
}

func TestAssetSlots_JoinByPlaceID(t *testing.T) {
	b, _ := newTestBoard(t)
	b.SetPlaces(testPlaces())

	b.RecordAsset(model.AssetRef{ID: "a-demo", PlaceID: "p-luna", PlaceName: "Café Luna", Type: model.AssetDemo})
	b.RecordAsset(model.AssetRef{ID: "a-prop", PlaceID: "p-luna", PlaceName: "Café Luna", Type: model.AssetProposal})
	// A second demo for the same place does not displace the slot.
	b.RecordAsset(model.AssetRef{ID: "a-demo-2", PlaceID: "p-luna", PlaceName: "Café Luna", Type: model.AssetDemo})

	visible := b.Visible(FilterAll)
	require.Len(t, visible, 3)
	assert.Equal(t, "a-demo", visible[0].DemoID)
	assert.Equal(t, "a-prop", visible[0].ProposalID)
	assert.Empty(t, visible[1].DemoID)
}

func TestRefresh_LoadsLeadsAndAssets(t *testing.T) {
	b, st := newTestBoard(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertLead(ctx, model.Lead{PlaceID: "p-luna", Status: model.StatusContacted, Name: "Café Luna"}))
	_, err := st.CreateAsset(ctx, model.Asset{PlaceID: "p-luna", PlaceName: "Café Luna", Type: model.AssetDemo, Content: "<html/>"})
	require.NoError(t, err)

	require.NoError(t, b.Refresh(ctx))
	b.SetPlaces(testPlaces())

	assert.Len(t, b.Visible(FilterAll), 2, "contacted lead hidden after refresh")
	pipeline := b.Pipeline()
	require.Len(t, pipeline[model.StatusContacted], 1)
	assert.Equal(t, "p-luna", pipeline[model.StatusContacted][0].PlaceID)
}

func TestRefresh_KeepsEarliestAssetPerSlot(t *testing.T) {
	b, st := newTestBoard(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	first, err := st.CreateAsset(ctx, model.Asset{
		PlaceID: "p-luna", PlaceName: "Café Luna", Type: model.AssetDemo,
		Content: "<html>v1</html>", CreatedAt: base,
	})
	require.NoError(t, err)
	_, err = st.CreateAsset(ctx, model.Asset{
		PlaceID: "p-luna", PlaceName: "Café Luna", Type: model.AssetDemo,
		Content: "<html>v2</html>", CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	// The slot assignment after a reload matches what the live path
	// produced when the assets were generated.
	require.NoError(t, b.Refresh(ctx))
	b.SetPlaces(testPlaces())

	views := b.Visible(FilterAll)
	require.NotEmpty(t, views)
	assert.Equal(t, first.ID, views[0].DemoID)
}

func TestGeneratingFlag(t *testing.T) {
	b, _ := newTestBoard(t)
	b.SetPlaces(testPlaces())

	require.True(t, b.BeginGenerating("p-luna"))
	assert.False(t, b.BeginGenerating("p-luna"), "duplicate trigger refused while in flight")
	assert.True(t, b.BeginGenerating("p-sol"), "independent places generate concurrently")

	assert.True(t, b.Visible(FilterAll)[0].Generating)

	b.EndGenerating("p-luna")
	assert.True(t, b.BeginGenerating("p-luna"))
}
