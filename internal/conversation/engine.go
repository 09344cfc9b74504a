package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"shopbot/core/logger"
	"shopbot/internal/catalog"

	"log/slog"
)

// CatalogAPI is the slice of the catalog client the dialogue depends on.
type CatalogAPI interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	CreateItem(ctx context.Context, item catalog.ItemCreate) error
	Item(ctx context.Context, id int64) (*catalog.Item, error)
	UpdateItem(ctx context.Context, id int64, upd catalog.ItemUpdate) error
	UploadImages(ctx context.Context, files []catalog.UploadFile) ([]string, error)
}

// Options tunes dialogue policy.
type Options struct {
	// OrderOnlyPrefixes lists base-name prefixes for which non-numeric price
	// entries are stored as the PriceOnRequest sentinel.
	OrderOnlyPrefixes []string
}

type handlerFunc func(ctx context.Context, sess *Session, ev Event) (Reply, error)

// Engine drives the per-user item-creation dialogue. It is transport-free:
// the bot layer translates Telegram updates into Events and renders Replies.
type Engine struct {
	store             Store
	api               CatalogAPI
	orderOnlyPrefixes []string
	handlers          map[State]handlerFunc
}

// NewEngine wires the dialogue over a session store and catalog client.
func NewEngine(store Store, api CatalogAPI, opts Options) *Engine {
	e := &Engine{
		store:             store,
		api:               api,
		orderOnlyPrefixes: opts.OrderOnlyPrefixes,
	}
	e.handlers = map[State]handlerFunc{
		StateAwaitingName:          e.handleName,
		StateAwaitingDescription:   e.handleDescription,
		StateAwaitingCategory:      e.handleCategory,
		StateAwaitingFlowChoice:    e.handleFlowChoice,
		StateAwaitingPrice:         e.handlePrice,
		StateAwaitingPhoto:         e.handlePhoto,
		StateAwaitingVariantMemory: e.handleVariantMemory,
		StateAwaitingVariantColors: e.handleVariantColors,
		StateAwaitingColorPrice:    e.handleColorPrice,
		StateAwaitingColorPhoto:    e.handleColorPhoto,
		StateAwaitingVariantMenu:   e.handleVariantMenu,
		StateAwaitingEditItem:      e.handleEditItem,
		StateAwaitingEditPrice:     e.handleEditPrice,
	}
	return e
}

// Start begins a fresh item-creation dialogue, discarding any unfinished draft.
func (e *Engine) Start(ctx context.Context, userID int64) (Reply, error) {
	sess := &Session{State: StateAwaitingName, Draft: &Draft{}}
	if err := e.store.Set(ctx, userID, sess); err != nil {
		return Reply{}, err
	}
	logger.Debug(ctx, "fsm", "dialog.start", slog.Int64("user_id", userID))
	return Reply{Text: promptName}, nil
}

// StartEdit begins the price-edit mini-flow.
func (e *Engine) StartEdit(ctx context.Context, userID int64) (Reply, error) {
	sess := &Session{State: StateAwaitingEditItem, Draft: &Draft{}}
	if err := e.store.Set(ctx, userID, sess); err != nil {
		return Reply{}, err
	}
	return Reply{Text: msgEditItemPrompt}, nil
}

// Cancel unconditionally resets the user to idle, discarding the draft.
func (e *Engine) Cancel(ctx context.Context, userID int64) (Reply, error) {
	if err := e.store.Delete(ctx, userID); err != nil {
		return Reply{}, err
	}
	logger.Debug(ctx, "fsm", "dialog.cancel", slog.Int64("user_id", userID))
	return Reply{Text: msgCancelled, ClearKeyboard: true}, nil
}

// InProgress reports whether the user has a dialogue underway.
func (e *Engine) InProgress(ctx context.Context, userID int64) bool {
	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		logger.Warn(ctx, "fsm", "session.load.failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return false
	}
	return sess.State != StateIdle
}

// Handle routes one incoming event to the handler bound to the current state
// and persists the resulting session.
func (e *Engine) Handle(ctx context.Context, userID int64, ev Event) (Reply, error) {
	sess, err := e.store.Get(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	handler, ok := e.handlers[sess.State]
	if !ok {
		return Reply{Text: msgNoActiveDialog}, nil
	}

	from := sess.State
	reply, err := handler(ctx, sess, ev)
	if err != nil {
		return Reply{}, err
	}

	if sess.State == StateIdle {
		if err := e.store.Delete(ctx, userID); err != nil {
			return Reply{}, err
		}
	} else {
		if err := e.store.Set(ctx, userID, sess); err != nil {
			return Reply{}, err
		}
	}

	if from != sess.State {
		logger.Debug(ctx, "fsm", "transition",
			slog.Int64("user_id", userID),
			slog.String("state", string(sess.State)),
			slog.String("prev", string(from)),
		)
	}
	return reply, nil
}

func (e *Engine) handleName(_ context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok || strings.TrimSpace(text.Body) == "" {
		return Reply{Text: msgEmptyName}, nil
	}
	sess.Draft.BaseName = strings.TrimSpace(text.Body)
	sess.State = StateAwaitingDescription
	return Reply{Text: promptDescription}, nil
}

func (e *Engine) handleDescription(ctx context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok {
		return Reply{Text: promptDescription}, nil
	}
	desc := ParseOptionalText(text.Body)

	cats, err := e.api.Categories(ctx)
	if err != nil {
		return Reply{Text: surfaceAPIError("Failed to load categories", err) + "\n" + promptDescription}, nil
	}

	options := make([]CategoryOption, 0)
	for _, opt := range catalog.FlattenCategories(cats) {
		options = append(options, CategoryOption{ID: opt.ID, Label: opt.Label})
	}

	sess.Draft.Description = desc
	sess.Draft.CategoryOptions = options
	sess.State = StateAwaitingCategory
	return Reply{
		Text:    promptCategoryList(options),
		Buttons: categoryButtons(options),
	}, nil
}

func (e *Engine) handleCategory(_ context.Context, sess *Session, ev Event) (Reply, error) {
	var raw string
	switch v := ev.(type) {
	case Text:
		raw = strings.TrimSpace(v.Body)
	case Button:
		raw = strings.TrimPrefix(v.Token, TokenCategory+"|")
	default:
		return e.reshowCategories(sess), nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return e.reshowCategories(sess), nil
	}
	opt, found := sess.Draft.CategoryByID(id)
	if !found {
		return e.reshowCategories(sess), nil
	}

	sess.Draft.CategoryID = opt.ID
	sess.Draft.CategoryName = opt.Label
	sess.State = StateAwaitingFlowChoice
	return Reply{Text: promptFlowChoice, Buttons: flowChoiceButtons()}, nil
}

func (e *Engine) reshowCategories(sess *Session) Reply {
	return Reply{
		Text:    msgBadCategory + "\n" + promptCategoryList(sess.Draft.CategoryOptions),
		Buttons: categoryButtons(sess.Draft.CategoryOptions),
	}
}

func (e *Engine) handleFlowChoice(_ context.Context, sess *Session, ev Event) (Reply, error) {
	btn, ok := ev.(Button)
	if !ok {
		return Reply{Text: promptFlowChoice, Buttons: flowChoiceButtons()}, nil
	}
	switch btn.Token {
	case TokenFlowSimple:
		sess.State = StateAwaitingPrice
		return Reply{Text: promptPrice}, nil
	case TokenFlowComplex:
		sess.State = StateAwaitingVariantMemory
		return Reply{Text: promptMemory}, nil
	default:
		return Reply{Text: promptFlowChoice, Buttons: flowChoiceButtons()}, nil
	}
}

func (e *Engine) handlePrice(_ context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok {
		return Reply{Text: promptPrice}, nil
	}
	price, ok := ParsePrice(text.Body, sess.Draft.BaseName, e.orderOnlyPrefixes)
	if !ok {
		return Reply{Text: msgBadPrice}, nil
	}
	sess.Draft.SimplePrice = &price
	sess.State = StateAwaitingPhoto
	return Reply{Text: promptPhoto, Buttons: skipPhotoButtons()}, nil
}

func (e *Engine) handlePhoto(ctx context.Context, sess *Session, ev Event) (Reply, error) {
	switch v := ev.(type) {
	case Photo:
		urls, err := e.api.UploadImages(ctx, []catalog.UploadFile{{Name: v.Name, Data: v.Data}})
		if err != nil {
			return Reply{Text: msgUploadFailed, Buttons: skipPhotoButtons()}, nil
		}
		sess.Draft.SimpleImages = urls
	case Button:
		if v.Token != TokenSkipPhoto {
			return Reply{Text: promptPhoto, Buttons: skipPhotoButtons()}, nil
		}
		sess.Draft.SimpleImages = []string{}
	default:
		return Reply{Text: promptPhoto, Buttons: skipPhotoButtons()}, nil
	}
	return e.submit(ctx, sess), nil
}

func (e *Engine) handleVariantMemory(_ context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok {
		return Reply{Text: promptMemory}, nil
	}
	sess.Draft.Current = &VariantGroup{Memory: ParseOptionalText(text.Body)}
	sess.Draft.ColorIndex = 0
	sess.Draft.PendingPrice = nil
	sess.State = StateAwaitingVariantColors
	return Reply{Text: promptColors}, nil
}

func (e *Engine) handleVariantColors(_ context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok {
		return Reply{Text: promptColors}, nil
	}
	colors := ParseColors(text.Body)
	if len(colors) == 0 {
		return Reply{Text: msgEmptyColors}, nil
	}
	sess.Draft.Current.Colors = colors
	sess.Draft.ColorIndex = 0
	sess.State = StateAwaitingColorPrice
	return Reply{Text: promptColorPrice(colors[0])}, nil
}

func (e *Engine) handleColorPrice(_ context.Context, sess *Session, ev Event) (Reply, error) {
	color, ok := sess.Draft.CurrentColor()
	if !ok {
		// Should not happen; recover by closing the loop.
		sess.State = StateAwaitingVariantMenu
		return Reply{Text: promptVariantMenu, Buttons: variantMenuButtons()}, nil
	}
	text, isText := ev.(Text)
	if !isText {
		return Reply{Text: promptColorPrice(color)}, nil
	}
	price, valid := ParsePrice(text.Body, sess.Draft.BaseName, e.orderOnlyPrefixes)
	if !valid {
		return Reply{Text: msgBadPrice + "\n" + promptColorPrice(color)}, nil
	}
	sess.Draft.PendingPrice = &price
	sess.State = StateAwaitingColorPhoto
	return Reply{Text: promptColorPhoto(color), Buttons: skipPhotoButtons()}, nil
}

func (e *Engine) handleColorPhoto(ctx context.Context, sess *Session, ev Event) (Reply, error) {
	color, ok := sess.Draft.CurrentColor()
	if !ok || sess.Draft.PendingPrice == nil {
		sess.State = StateAwaitingVariantMenu
		return Reply{Text: promptVariantMenu, Buttons: variantMenuButtons()}, nil
	}

	var urls []string
	switch v := ev.(type) {
	case Photo:
		uploaded, err := e.api.UploadImages(ctx, []catalog.UploadFile{{Name: v.Name, Data: v.Data}})
		if err != nil {
			// Draft untouched, loop position preserved.
			return Reply{Text: msgUploadFailed, Buttons: skipPhotoButtons()}, nil
		}
		urls = uploaded
	case Button:
		if v.Token != TokenSkipPhoto {
			return Reply{Text: promptColorPhoto(color), Buttons: skipPhotoButtons()}, nil
		}
		urls = []string{}
	default:
		return Reply{Text: promptColorPhoto(color), Buttons: skipPhotoButtons()}, nil
	}

	sess.Draft.Current.Details = append(sess.Draft.Current.Details, ColorVariant{
		Color:     color,
		Price:     *sess.Draft.PendingPrice,
		ImageURLs: urls,
	})
	sess.Draft.PendingPrice = nil
	sess.Draft.ColorIndex++

	if next, more := sess.Draft.CurrentColor(); more {
		sess.State = StateAwaitingColorPrice
		return Reply{Text: promptColorPrice(next)}, nil
	}

	sess.Draft.Groups = append(sess.Draft.Groups, *sess.Draft.Current)
	sess.Draft.Current = nil
	sess.State = StateAwaitingVariantMenu
	return Reply{Text: promptVariantMenu, Buttons: variantMenuButtons()}, nil
}

func (e *Engine) handleVariantMenu(ctx context.Context, sess *Session, ev Event) (Reply, error) {
	btn, ok := ev.(Button)
	if !ok {
		return Reply{Text: promptVariantMenu, Buttons: variantMenuButtons()}, nil
	}
	switch btn.Token {
	case TokenAddMemory:
		sess.State = StateAwaitingVariantMemory
		return Reply{Text: promptMemory}, nil
	case TokenFinish:
		if len(sess.Draft.Groups) == 0 {
			return Reply{Text: msgNoGroups, Buttons: variantMenuButtons()}, nil
		}
		return e.submit(ctx, sess), nil
	default:
		return Reply{Text: promptVariantMenu, Buttons: variantMenuButtons()}, nil
	}
}

// submit flattens the draft and issues one create call per item, in order.
// Partial success is reported, never rolled back; the draft is cleared
// regardless of outcome.
func (e *Engine) submit(ctx context.Context, sess *Session) Reply {
	items := sess.Draft.Flatten()
	created := 0
	for _, item := range items {
		if err := e.api.CreateItem(ctx, item); err != nil {
			sess.State = StateIdle
			sess.Draft = nil
			return Reply{
				Text: fmt.Sprintf("Created %d of %d items.\n%s",
					created, len(items), surfaceAPIError("Submission failed", err)),
				ClearKeyboard: true,
			}
		}
		created++
	}
	sess.State = StateIdle
	sess.Draft = nil
	if created == 1 {
		return Reply{Text: "Item created.", ClearKeyboard: true}
	}
	return Reply{Text: fmt.Sprintf("Created %d items.", created), ClearKeyboard: true}
}

func (e *Engine) handleEditItem(ctx context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok {
		return Reply{Text: msgEditItemPrompt}, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(text.Body), 10, 64)
	if err != nil {
		return Reply{Text: msgBadItemID}, nil
	}
	item, err := e.api.Item(ctx, id)
	if err != nil {
		return Reply{Text: surfaceAPIError("Failed to load item", err) + "\n" + msgEditItemPrompt}, nil
	}
	sess.Draft.EditItemID = id
	sess.Draft.BaseName = item.Name
	sess.State = StateAwaitingEditPrice
	return Reply{Text: fmt.Sprintf("%s, current price: %s. New price?",
		item.Name, formatPrice(item.Price))}, nil
}

func (e *Engine) handleEditPrice(ctx context.Context, sess *Session, ev Event) (Reply, error) {
	text, ok := ev.(Text)
	if !ok {
		return Reply{Text: msgBadPrice}, nil
	}
	price, valid := ParsePrice(text.Body, sess.Draft.BaseName, e.orderOnlyPrefixes)
	if !valid {
		return Reply{Text: msgBadPrice}, nil
	}

	item, err := e.api.Item(ctx, sess.Draft.EditItemID)
	if err != nil {
		return Reply{Text: surfaceAPIError("Failed to load item", err)}, nil
	}
	upd := catalog.ItemUpdate{
		Name:        item.Name,
		Description: item.Description,
		Price:       price,
		CategoryID:  item.CategoryID,
		Memory:      item.Memory,
		Color:       item.Color,
		ImageURLs:   item.ImageURLs,
		IsActive:    item.IsActive,
	}
	if upd.ImageURLs == nil {
		upd.ImageURLs = []string{}
	}
	if err := e.api.UpdateItem(ctx, sess.Draft.EditItemID, upd); err != nil {
		sess.State = StateIdle
		sess.Draft = nil
		return Reply{Text: surfaceAPIError("Price update failed", err), ClearKeyboard: true}, nil
	}
	sess.State = StateIdle
	sess.Draft = nil
	return Reply{Text: fmt.Sprintf("Price updated to %s.", formatPrice(price)), ClearKeyboard: true}, nil
}

// surfaceAPIError keeps the API status and body visible to the administrator.
func surfaceAPIError(prefix string, err error) string {
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: status %d, %s", prefix, apiErr.Status, apiErr.Body)
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}
