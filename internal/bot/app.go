package bot

import (
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "shopbot/core/config"
	tg "shopbot/core/telegram"
	"shopbot/core/telegram/router"
	"shopbot/core/telegram/sender"
	"shopbot/internal/catalog"
	"shopbot/internal/conversation"

	tele "gopkg.in/telebot.v4"
)

// App wires the dialogue engine, catalog client, and Telegram surface together.
type App struct {
	cfg    *coreconfig.Config
	api    *catalog.Client
	store  conversation.Store
	engine *conversation.Engine
	reg    *tg.Registry
}

// New assembles the admin bot. db may be nil when the memory state backend
// is configured.
func New(cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	api := catalog.New(cfg.Catalog)

	idleTTL := time.Duration(cfg.State.IdleTTLMinutes) * time.Minute
	var store conversation.Store
	if cfg.State.Backend == coreconfig.StateBackendPostgres && db != nil {
		store = conversation.NewPostgresStore(db, idleTTL)
	} else {
		store = conversation.NewMemoryStore(idleTTL)
	}

	engine := conversation.NewEngine(store, api, conversation.Options{
		OrderOnlyPrefixes: cfg.Catalog.OrderOnlyPrefixes,
	})

	app := &App{
		cfg:    cfg,
		api:    api,
		store:  store,
		engine: engine,
	}
	app.reg = app.buildRegistry()
	return app, nil
}

// CoreConfig exposes the loaded configuration to the runner.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg }

// TelegramRunOptions builds the bot runtime: command routes, the FSM text and
// photo routing, callback dispatch, and the default middleware chain.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	fsm := &fsmAdapter{engine: a.engine}

	routes := router.CommandRoutes(a.reg, router.CommandRouteOptions{
		AdminID:       a.cfg.Telegram.AdminID,
		OnAdminReject: rejectNonAdmin,
	})
	routes = append(routes, router.TextRoutes(fsm, a.reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(a.reg, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.reg,
		Middlewares: tg.DefaultMiddlewares(a.cfg, nil),
		Routes:      routes,
		DispatcherOptions: sender.Options{
			Workers: 2,
		},
	}, nil
}

func (a *App) isAdmin(c tele.Context) bool {
	from := c.Sender()
	return from != nil && from.ID == a.cfg.Telegram.AdminID
}

func rejectNonAdmin(c tele.Context) error {
	return c.Send("This command is available to the shop administrator only.")
}
