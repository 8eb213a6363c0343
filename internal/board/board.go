// Package board reconciles the three independently-fetched collections
// (current search results, saved leads, generated assets) into the view
// the dashboard renders, and mediates every status-changing action.
package board

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rueda-la-rola/leadgen/internal/model"
	"github.com/rueda-la-rola/leadgen/internal/store"
)

// FilterMode selects which slice of the current result set is visible.
type FilterMode string

const (
	FilterAll     FilterMode = "all"
	FilterNoWeb   FilterMode = "no-web"
	FilterWithWeb FilterMode = "with-web"
)

// ParseFilterMode validates a raw filter string; empty means "all".
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(s) {
	case FilterAll, "":
		return FilterAll, nil
	case FilterNoWeb, FilterWithWeb:
		return FilterMode(s), nil
	}
	return "", eris.Errorf("board: unknown filter mode %q", s)
}

// PlaceView is one search result joined with its lead status and asset
// slots. Assets join on place_id; a place has at most one demo slot and
// one proposal slot.
type PlaceView struct {
	model.Place
	Status     *model.LeadStatus `json:"status,omitempty"`
	DemoID     string            `json:"demo_id,omitempty"`
	ProposalID string            `json:"proposal_id,omitempty"`
	Generating bool              `json:"generating"`
}

// Counts summarizes the current result set for the filter buttons.
type Counts struct {
	Total   int `json:"total"`
	NoWeb   int `json:"no_web"`
	WithWeb int `json:"with_web"`
}

// Board holds the in-memory reconciliation state. All mutation goes
// through the mutex: HTTP handlers call concurrently.
type Board struct {
	mu    sync.Mutex
	store store.Store

	places     []model.Place
	leads      map[string]model.Lead
	assets     map[string]map[model.AssetType]string // place_id -> type -> asset id
	generating map[string]bool
}

// New creates an empty board over the given store. Call Refresh to load
// persisted leads and assets.
func New(st store.Store) *Board {
	return &Board{
		store:      st,
		leads:      make(map[string]model.Lead),
		assets:     make(map[string]map[model.AssetType]string),
		generating: make(map[string]bool),
	}
}

// Refresh reloads leads and assets from the store. The two lists are
// independent, so they load concurrently.
func (b *Board) Refresh(ctx context.Context) error {
	var (
		leads  []model.Lead
		assets []model.AssetRef
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = b.store.ListLeads(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		assets, err = b.store.ListAssets(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "board: refresh")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.leads = make(map[string]model.Lead, len(leads))
	for _, l := range leads {
		b.leads[l.PlaceID] = l
	}

	b.assets = make(map[string]map[model.AssetType]string)
	for _, a := range assets {
		b.recordAssetLocked(a)
	}

	zap.L().Debug("board refreshed",
		zap.Int("leads", len(leads)),
		zap.Int("assets", len(assets)),
	)
	return nil
}

// SetPlaces replaces the accumulated result set with a fresh search.
func (b *Board) SetPlaces(places []model.Place) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.places = append([]model.Place(nil), places...)
}

// AppendPlaces adds a follow-up page to the accumulated result set.
// Pagination appends rather than replaces; duplicate place ids from
// overlapping pages are dropped.
func (b *Board) AppendPlaces(places []model.Place) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool, len(b.places))
	for _, p := range b.places {
		seen[p.PlaceID] = true
	}
	for _, p := range places {
		if seen[p.PlaceID] {
			continue
		}
		seen[p.PlaceID] = true
		b.places = append(b.places, p)
	}
}

// Visible returns the result-set view for the given filter. Leads that
// have entered the pipeline (contacted, sold, rejected) graduate to the
// kanban view and are excluded here, keeping the search view focused on
// untouched leads.
func (b *Board) Visible(mode FilterMode) []PlaceView {
	b.mu.Lock()
	defer b.mu.Unlock()

	views := make([]PlaceView, 0, len(b.places))
	for _, p := range b.places {
		if lead, ok := b.leads[p.PlaceID]; ok && lead.Status != model.StatusNew {
			continue
		}

		switch mode {
		case FilterNoWeb:
			if p.HasEffectiveWebsite() {
				continue
			}
		case FilterWithWeb:
			if !p.HasEffectiveWebsite() {
				continue
			}
		}

		views = append(views, b.viewForLocked(p))
	}
	return views
}

// Counts tallies the full result set by web presence, ignoring the
// pipeline-visibility rule so the filter buttons show stable totals.
func (b *Board) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := Counts{Total: len(b.places)}
	for _, p := range b.places {
		if p.HasEffectiveWebsite() {
			c.WithWeb++
		} else {
			c.NoWeb++
		}
	}
	return c
}

// Pipeline groups saved leads by status for the kanban view. Leads
// still at "new" have not entered the pipeline and are omitted.
func (b *Board) Pipeline() map[model.LeadStatus][]model.Lead {
	b.mu.Lock()
	defer b.mu.Unlock()

	grouped := make(map[model.LeadStatus][]model.Lead)
	for _, lead := range b.leads {
		if lead.Status == model.StatusNew {
			continue
		}
		grouped[lead.Status] = append(grouped[lead.Status], lead)
	}
	return grouped
}

// Leads returns all saved leads.
func (b *Board) Leads() []model.Lead {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]model.Lead, 0, len(b.leads))
	for _, l := range b.leads {
		out = append(out, l)
	}
	return out
}

// SetStatus transitions a lead to the given status, creating it when
// absent. Illegal regressions (e.g. sold back to contacted) are
// rejected before anything is persisted.
func (b *Board) SetStatus(ctx context.Context, placeID string, status model.LeadStatus) (*model.Lead, error) {
	b.mu.Lock()
	lead, exists := b.leads[placeID]
	if !exists {
		lead = model.Lead{PlaceID: placeID, Status: model.StatusNew}
		// Denormalize display fields from the current result set when
		// the place is on screen.
		for _, p := range b.places {
			if p.PlaceID == placeID {
				lead.Name = p.Name
				lead.Address = p.Address
				lead.Phone = p.Phone
				lead.Website = p.Website
				break
			}
		}
	}
	b.mu.Unlock()

	if err := lead.Advance(status); err != nil {
		return nil, err
	}
	lead.UpdatedAt = time.Now().UTC()

	if err := b.store.UpsertLead(ctx, lead); err != nil {
		return nil, eris.Wrapf(err, "board: set status %s", placeID)
	}

	b.mu.Lock()
	b.leads[placeID] = lead
	b.mu.Unlock()

	zap.L().Info("lead status updated",
		zap.String("place_id", placeID),
		zap.String("status", string(status)),
	)
	return &lead, nil
}

// AutoContact marks a place as contacted after a successful outbound
// action (asset generation or direct contact). Leads already past "new"
// are left untouched: sold must never regress to contacted.
func (b *Board) AutoContact(ctx context.Context, place model.Place) error {
	b.mu.Lock()
	lead, exists := b.leads[place.PlaceID]
	// Prefer the full record from the current result set: callers often
	// only know a subset of the place's fields (the phone in particular
	// never travels through the generation request).
	for _, p := range b.places {
		if p.PlaceID == place.PlaceID {
			place = p
			break
		}
	}
	b.mu.Unlock()

	if exists && lead.Status != model.StatusNew {
		return nil
	}

	upsert := model.Lead{
		PlaceID:   place.PlaceID,
		Status:    model.StatusContacted,
		Name:      place.Name,
		Address:   place.Address,
		Phone:     place.Phone,
		Website:   place.Website,
		UpdatedAt: time.Now().UTC(),
	}
	if err := b.store.UpsertLead(ctx, upsert); err != nil {
		return eris.Wrapf(err, "board: auto-contact %s", place.PlaceID)
	}

	b.mu.Lock()
	b.leads[place.PlaceID] = upsert
	b.mu.Unlock()

	zap.L().Info("lead auto-contacted", zap.String("place_id", place.PlaceID))
	return nil
}

// RecordAsset registers a freshly generated asset so its slot shows up
// without a full refresh.
func (b *Board) RecordAsset(ref model.AssetRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordAssetLocked(ref)
}

func (b *Board) recordAssetLocked(ref model.AssetRef) {
	slots, ok := b.assets[ref.PlaceID]
	if !ok {
		slots = make(map[model.AssetType]string, 2)
		b.assets[ref.PlaceID] = slots
	}
	// One slot per type; the first generated asset keeps the slot.
	if _, taken := slots[ref.Type]; !taken {
		slots[ref.Type] = ref.ID
	}
}

// BeginGenerating marks a place as having a generation in flight.
// Returns false when one is already outstanding for that place; other
// places may generate concurrently without coordination.
func (b *Board) BeginGenerating(placeID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generating[placeID] {
		return false
	}
	b.generating[placeID] = true
	return true
}

// EndGenerating clears the in-flight flag for a place.
func (b *Board) EndGenerating(placeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.generating, placeID)
}

func (b *Board) viewForLocked(p model.Place) PlaceView {
	view := PlaceView{
		Place:      p,
		Generating: b.generating[p.PlaceID],
	}
	if lead, ok := b.leads[p.PlaceID]; ok {
		status := lead.Status
		view.Status = &status
	}
	if slots, ok := b.assets[p.PlaceID]; ok {
		view.DemoID = slots[model.AssetDemo]
		view.ProposalID = slots[model.AssetProposal]
	}
	return view
}
