package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shopbot/internal/catalog"
)

type fakeAPI struct {
	categories    []catalog.Category
	categoriesErr error

	created   []catalog.ItemCreate
	createErr func(n int) error

	uploadURLs []string
	uploadErr  error
	uploads    int

	items   map[int64]*catalog.Item
	itemErr error
	updated map[int64]catalog.ItemUpdate
}

func (f *fakeAPI) Categories(context.Context) ([]catalog.Category, error) {
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return f.categories, nil
}

func (f *fakeAPI) CreateItem(_ context.Context, item catalog.ItemCreate) error {
	if f.createErr != nil {
		if err := f.createErr(len(f.created)); err != nil {
			return err
		}
	}
	f.created = append(f.created, item)
	return nil
}

func (f *fakeAPI) Item(_ context.Context, id int64) (*catalog.Item, error) {
	if f.itemErr != nil {
		return nil, f.itemErr
	}
	item, ok := f.items[id]
	if !ok {
		return nil, &catalog.APIError{Status: 404, Body: "item not found"}
	}
	return item, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, id int64, upd catalog.ItemUpdate) error {
	if f.updated == nil {
		f.updated = make(map[int64]catalog.ItemUpdate)
	}
	f.updated[id] = upd
	return nil
}

func (f *fakeAPI) UploadImages(_ context.Context, files []catalog.UploadFile) ([]string, error) {
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.uploadURLs != nil {
		return f.uploadURLs, nil
	}
	urls := make([]string, len(files))
	for i, file := range files {
		urls[i] = "http://img/" + file.Name
	}
	return urls, nil
}

func defaultCategories() []catalog.Category {
	return []catalog.Category{
		{ID: 1, Name: "Phones"},
		{ID: 3, Name: "Cases"},
	}
}

func newTestEngine(api *fakeAPI, prefixes ...string) (*Engine, Store) {
	store := NewMemoryStore(0)
	eng := NewEngine(store, api, Options{OrderOnlyPrefixes: prefixes})
	return eng, store
}

const testUser int64 = 777

func mustHandle(t *testing.T, eng *Engine, ev Event) Reply {
	t.Helper()
	reply, err := eng.Handle(context.Background(), testUser, ev)
	if err != nil {
		t.Fatalf("Handle(%#v): %v", ev, err)
	}
	return reply
}

func stateOf(t *testing.T, store Store) State {
	t.Helper()
	sess, err := store.Get(context.Background(), testUser)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return sess.State
}

func draftOf(t *testing.T, store Store) *Draft {
	t.Helper()
	sess, err := store.Get(context.Background(), testUser)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	return sess.Draft
}

func TestSimpleFlowSubmitsSingleItem(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone Case"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "3"})
	mustHandle(t, eng, Button{Token: TokenFlowSimple})
	mustHandle(t, eng, Text{Body: "199.99"})
	reply := mustHandle(t, eng, Button{Token: TokenSkipPhoto})

	if len(api.created) != 1 {
		t.Fatalf("expected exactly 1 create call, got %d", len(api.created))
	}
	item := api.created[0]
	if item.Name != "Phone Case" {
		t.Errorf("name = %q", item.Name)
	}
	if item.Description != nil {
		t.Errorf("description = %v, want nil", *item.Description)
	}
	if item.Price != 199.99 {
		t.Errorf("price = %v", item.Price)
	}
	if item.CategoryID != 3 {
		t.Errorf("category_id = %d", item.CategoryID)
	}
	if item.Memory != nil || item.Color != nil {
		t.Errorf("memory/color should be nil for simple flow: %v %v", item.Memory, item.Color)
	}
	if item.ImageURLs == nil || len(item.ImageURLs) != 0 {
		t.Errorf("image_urls = %v, want empty non-nil slice", item.ImageURLs)
	}
	if !item.IsActive {
		t.Error("is_active should be true")
	}
	if !strings.Contains(reply.Text, "created") && !strings.Contains(reply.Text, "Created") {
		t.Errorf("confirmation missing: %q", reply.Text)
	}
	if got := stateOf(t, store); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
}

func TestVariantFlowTwoColors(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "Flagship"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowComplex})
	mustHandle(t, eng, Text{Body: "256GB"})
	mustHandle(t, eng, Text{Body: "Black, White"})
	mustHandle(t, eng, Text{Body: "100"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	mustHandle(t, eng, Text{Body: "120"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	mustHandle(t, eng, Button{Token: TokenFinish})

	if len(api.created) != 2 {
		t.Fatalf("expected 2 create calls, got %d", len(api.created))
	}
	for i, wantColor := range []string{"Black", "White"} {
		item := api.created[i]
		if item.Memory == nil || *item.Memory != "256GB" {
			t.Errorf("item %d memory = %v, want 256GB", i, item.Memory)
		}
		if item.Color == nil || *item.Color != wantColor {
			t.Errorf("item %d color = %v, want %s", i, item.Color, wantColor)
		}
		if len(item.ImageURLs) != 0 {
			t.Errorf("item %d image_urls = %v, want empty", i, item.ImageURLs)
		}
		if item.Description == nil || *item.Description != "Flagship" {
			t.Errorf("item %d description = %v", i, item.Description)
		}
	}
	if api.created[0].Price != 100 || api.created[1].Price != 120 {
		t.Errorf("prices = %v, %v", api.created[0].Price, api.created[1].Price)
	}
	if got := stateOf(t, store); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
}

func TestDetailsMatchColorsOrder(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowComplex})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "Red,  Green ,Blue"})
	for i := 0; i < 3; i++ {
		mustHandle(t, eng, Text{Body: fmt.Sprintf("%d", (i+1)*10)})
		mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	}

	draft := draftOf(t, store)
	if draft == nil || len(draft.Groups) != 1 {
		t.Fatalf("expected one completed group, draft = %+v", draft)
	}
	group := draft.Groups[0]
	if len(group.Details) != len(group.Colors) {
		t.Fatalf("details %d != colors %d", len(group.Details), len(group.Colors))
	}
	for i := range group.Colors {
		if group.Details[i].Color != group.Colors[i] {
			t.Errorf("details[%d].Color = %q, want %q", i, group.Details[i].Color, group.Colors[i])
		}
	}
	if group.Memory != nil {
		t.Errorf("memory = %v, want nil after skip", *group.Memory)
	}
}

func TestFinishWithZeroGroupsRejected(t *testing.T) {
	api := &fakeAPI{}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	sess := &Session{State: StateAwaitingVariantMenu, Draft: &Draft{BaseName: "Phone", CategoryID: 1}}
	if err := store.Set(ctx, testUser, sess); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	reply := mustHandle(t, eng, Button{Token: TokenFinish})
	if len(api.created) != 0 {
		t.Errorf("no API call expected, got %d", len(api.created))
	}
	if got := stateOf(t, store); got != StateAwaitingVariantMenu {
		t.Errorf("state = %s, want %s", got, StateAwaitingVariantMenu)
	}
	if reply.Text == "" || len(reply.Buttons) == 0 {
		t.Errorf("expected error prompt with menu buttons, got %+v", reply)
	}
}

func TestUploadFailurePreservesLoopPosition(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowComplex})
	mustHandle(t, eng, Text{Body: "128GB"})
	mustHandle(t, eng, Text{Body: "Black, White"})
	mustHandle(t, eng, Text{Body: "100"})

	api.uploadErr = errors.New("storage unavailable")
	reply := mustHandle(t, eng, Photo{Name: "a.jpg", Data: strings.NewReader("x")})

	if !strings.Contains(reply.Text, "again") {
		t.Errorf("expected retry prompt, got %q", reply.Text)
	}
	draft := draftOf(t, store)
	if draft.ColorIndex != 0 {
		t.Errorf("ColorIndex = %d, want 0", draft.ColorIndex)
	}
	if len(draft.Current.Details) != 0 {
		t.Errorf("details grew on failed upload: %d", len(draft.Current.Details))
	}
	if got := stateOf(t, store); got != StateAwaitingColorPhoto {
		t.Errorf("state = %s, want %s", got, StateAwaitingColorPhoto)
	}

	// Retry succeeds and the loop advances.
	api.uploadErr = nil
	mustHandle(t, eng, Photo{Name: "a.jpg", Data: strings.NewReader("x")})
	draft = draftOf(t, store)
	if draft.ColorIndex != 1 {
		t.Errorf("ColorIndex after retry = %d, want 1", draft.ColorIndex)
	}
	if len(draft.Current.Details) != 1 {
		t.Fatalf("details after retry = %d, want 1", len(draft.Current.Details))
	}
	if got := draft.Current.Details[0].ImageURLs; len(got) != 1 || got[0] != "http://img/a.jpg" {
		t.Errorf("uploaded urls = %v", got)
	}
}

func TestNonNumericPriceNeedsOrderOnlyPrefix(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api, "vip")
	ctx := context.Background()

	// Name without the prefix: non-numeric price rejected in place.
	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Plain Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowSimple})
	mustHandle(t, eng, Text{Body: "call me"})
	if got := stateOf(t, store); got != StateAwaitingPrice {
		t.Errorf("state = %s, want %s", got, StateAwaitingPrice)
	}

	// Allow-listed name: the same entry stores the sentinel.
	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "VIP Edition"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowSimple})
	mustHandle(t, eng, Text{Body: "call me"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})

	if len(api.created) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(api.created))
	}
	if api.created[0].Price != PriceOnRequest {
		t.Errorf("price = %v, want sentinel %v", api.created[0].Price, PriceOnRequest)
	}
}

func TestUnknownCategoryReprompts(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "999"})
	if got := stateOf(t, store); got != StateAwaitingCategory {
		t.Errorf("state = %s, want %s", got, StateAwaitingCategory)
	}
	mustHandle(t, eng, Text{Body: "not a number"})
	if got := stateOf(t, store); got != StateAwaitingCategory {
		t.Errorf("state = %s, want %s", got, StateAwaitingCategory)
	}
	mustHandle(t, eng, Text{Body: "3"})
	if got := stateOf(t, store); got != StateAwaitingFlowChoice {
		t.Errorf("state = %s, want %s", got, StateAwaitingFlowChoice)
	}
}

func TestCancelDiscardsDraftCompletely(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "Flagship"})

	if _, err := eng.Cancel(ctx, testUser); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if eng.InProgress(ctx, testUser) {
		t.Error("InProgress should be false after cancel")
	}
	if got := stateOf(t, store); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}

	// A fresh start has no leakage of prior fields.
	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	draft := draftOf(t, store)
	if draft.BaseName != "" || draft.Description != nil || draft.CategoryID != 0 {
		t.Errorf("draft not fresh after cancel+start: %+v", draft)
	}
}

func TestSubmissionFailureReportsPartialCount(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	api.createErr = func(n int) error {
		if n == 1 {
			return &catalog.APIError{Status: 500, Body: "db down"}
		}
		return nil
	}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowComplex})
	mustHandle(t, eng, Text{Body: "256GB"})
	mustHandle(t, eng, Text{Body: "Black, White"})
	mustHandle(t, eng, Text{Body: "100"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	mustHandle(t, eng, Text{Body: "120"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	reply := mustHandle(t, eng, Button{Token: TokenFinish})

	if !strings.Contains(reply.Text, "1 of 2") {
		t.Errorf("partial count missing from %q", reply.Text)
	}
	if !strings.Contains(reply.Text, "500") || !strings.Contains(reply.Text, "db down") {
		t.Errorf("status/body not surfaced: %q", reply.Text)
	}
	// Draft cleared regardless of failure.
	if got := stateOf(t, store); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
	if eng.InProgress(ctx, testUser) {
		t.Error("dialog should be over after failed submission")
	}
}

func TestCategoriesFetchFailureSurfacedVerbatim(t *testing.T) {
	api := &fakeAPI{categoriesErr: &catalog.APIError{Status: 502, Body: "bad gateway"}}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	reply := mustHandle(t, eng, Text{Body: "-"})
	if !strings.Contains(reply.Text, "502") || !strings.Contains(reply.Text, "bad gateway") {
		t.Errorf("API error not surfaced: %q", reply.Text)
	}
	if got := stateOf(t, store); got != StateAwaitingDescription {
		t.Errorf("state = %s, want %s", got, StateAwaitingDescription)
	}
}

func TestEmptyColorListReprompts(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowComplex})
	mustHandle(t, eng, Text{Body: "256GB"})
	mustHandle(t, eng, Text{Body: " , ,, "})
	if got := stateOf(t, store); got != StateAwaitingVariantColors {
		t.Errorf("state = %s, want %s", got, StateAwaitingVariantColors)
	}
}

func TestAddAnotherMemoryTier(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, _ := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Phone"})
	mustHandle(t, eng, Text{Body: "-"})
	mustHandle(t, eng, Text{Body: "1"})
	mustHandle(t, eng, Button{Token: TokenFlowComplex})
	mustHandle(t, eng, Text{Body: "128GB"})
	mustHandle(t, eng, Text{Body: "Black"})
	mustHandle(t, eng, Text{Body: "90"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	mustHandle(t, eng, Button{Token: TokenAddMemory})
	mustHandle(t, eng, Text{Body: "256GB"})
	mustHandle(t, eng, Text{Body: "Black"})
	mustHandle(t, eng, Text{Body: "110"})
	mustHandle(t, eng, Button{Token: TokenSkipPhoto})
	mustHandle(t, eng, Button{Token: TokenFinish})

	if len(api.created) != 2 {
		t.Fatalf("expected 2 create calls, got %d", len(api.created))
	}
	if *api.created[0].Memory != "128GB" || *api.created[1].Memory != "256GB" {
		t.Errorf("memories = %v, %v", *api.created[0].Memory, *api.created[1].Memory)
	}
}

func TestStartDiscardsUnfinishedDraft(t *testing.T) {
	api := &fakeAPI{categories: defaultCategories()}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustHandle(t, eng, Text{Body: "Old Phone"})

	if _, err := eng.Start(ctx, testUser); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	draft := draftOf(t, store)
	if draft.BaseName != "" {
		t.Errorf("draft leaked from discarded dialog: %q", draft.BaseName)
	}
	if got := stateOf(t, store); got != StateAwaitingName {
		t.Errorf("state = %s, want %s", got, StateAwaitingName)
	}
}

func TestEditPriceFlow(t *testing.T) {
	desc := "Flagship"
	mem := "256GB"
	api := &fakeAPI{
		items: map[int64]*catalog.Item{
			42: {
				ID: 42, Name: "Phone", Description: &desc, Price: 100,
				CategoryID: 1, Memory: &mem, ImageURLs: []string{"http://img/a.jpg"},
				IsActive: true,
			},
		},
	}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.StartEdit(ctx, testUser); err != nil {
		t.Fatalf("StartEdit: %v", err)
	}
	reply := mustHandle(t, eng, Text{Body: "42"})
	if !strings.Contains(reply.Text, "100") {
		t.Errorf("current price not shown: %q", reply.Text)
	}
	mustHandle(t, eng, Text{Body: "149.50"})

	upd, ok := api.updated[42]
	if !ok {
		t.Fatal("UpdateItem was not called")
	}
	if upd.Price != 149.50 {
		t.Errorf("updated price = %v", upd.Price)
	}
	if upd.Name != "Phone" || upd.Description == nil || *upd.Description != "Flagship" {
		t.Errorf("record fields not carried over: %+v", upd)
	}
	if upd.Memory == nil || *upd.Memory != "256GB" {
		t.Errorf("memory not carried over: %v", upd.Memory)
	}
	if got := stateOf(t, store); got != StateIdle {
		t.Errorf("state = %s, want idle", got)
	}
}

func TestEditUnknownItemSurfacesNotFound(t *testing.T) {
	api := &fakeAPI{items: map[int64]*catalog.Item{}}
	eng, store := newTestEngine(api)
	ctx := context.Background()

	if _, err := eng.StartEdit(ctx, testUser); err != nil {
		t.Fatalf("StartEdit: %v", err)
	}
	reply := mustHandle(t, eng, Text{Body: "9"})
	if !strings.Contains(reply.Text, "404") {
		t.Errorf("status not surfaced: %q", reply.Text)
	}
	if got := stateOf(t, store); got != StateAwaitingEditItem {
		t.Errorf("state = %s, want %s", got, StateAwaitingEditItem)
	}
}
