package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ykvlv/report-bot/assets"
	"github.com/ykvlv/report-bot/internal/config"
	"github.com/ykvlv/report-bot/internal/report"
	"github.com/ykvlv/report-bot/internal/store"
	"github.com/ykvlv/report-bot/internal/telegram"
	"github.com/ykvlv/report-bot/internal/tz"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	zones   *tz.Resolver
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	zones, err := tz.New(assets.ZonesCSV)
	if err != nil {
		return nil, fmt.Errorf("zone catalogue: %w", err)
	}

	a := &App{cfg: cfg, log: log, bot: bot, zones: zones}
	a.httpSrv = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      a.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return a, nil
}

func (a *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.Handler())
	r.Post(a.webhookPath(), a.handleWebhook)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "https://telegram.me/"+a.bot.Self.UserName, http.StatusFound)
	})
	return r
}

// webhookPath embeds the token so only Telegram knows where to post.
func (a *App) webhookPath() string {
	return "/webhook/" + a.cfg.BotToken
}

func (a *App) handleWebhook(w http.ResponseWriter, req *http.Request) {
	if a.router == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	upd, err := a.bot.HandleUpdate(req)
	if err != nil {
		a.log.Warn("bad webhook payload", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	a.router.HandleUpdate(req.Context(), *upd)
	w.WriteHeader(http.StatusOK)
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting report-bot",
		zap.String("mode", a.cfg.RunMode),
		zap.String("store", a.cfg.StoreDriver),
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("bot", a.bot.Self.UserName),
	)

	repo, err := store.Open(ctx, a.cfg.StoreDriver, a.cfg.StoreDSN())
	if err != nil {
		a.log.Error("open store failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("store ready")

	limiter := report.NewChatLimiter(a.cfg.ReportRate, a.cfg.ReportBurst)
	a.router = telegram.NewRouter(a.bot, a.log, a.repo, a.zones, limiter)
	if err := a.router.RegisterCommands(); err != nil {
		a.log.Warn("register commands failed", zap.Error(err))
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var updCh tgbotapi.UpdatesChannel
	switch a.cfg.RunMode {
	case "webhook":
		if err := a.setWebhook(); err != nil {
			a.shutdown()
			return err
		}
	default:
		// A leftover webhook makes getUpdates fail.
		if _, err := a.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			a.log.Warn("delete webhook failed", zap.Error(err))
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 30
		updCh = a.bot.GetUpdatesChan(u)
	}

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			if updCh != nil {
				a.bot.StopReceivingUpdates()
			}
			a.shutdown()
			return nil

		// nil in webhook mode: updates arrive through handleWebhook
		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) setWebhook() error {
	url := strings.TrimRight(a.cfg.WebhookURL, "/") + a.webhookPath()
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("webhook config: %w", err)
	}
	if _, err := a.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	a.log.Info("webhook registered")
	return nil
}

func (a *App) shutdown() {
	// Create a short-lived shutdown context and cancel it immediately after use.
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()

	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	if a.repo != nil {
		_ = a.repo.Close()
	}
}
