package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	cdpadapter "netmodifier/internal/adapter/cdp"
	"netmodifier/internal/audit"
	"netmodifier/internal/background"
	"netmodifier/internal/engine"
	"netmodifier/internal/httpapi"
	"netmodifier/internal/navigation"
	"netmodifier/internal/placeholder"
	"netmodifier/internal/rules"
	"netmodifier/internal/service"
	"netmodifier/internal/storage"
	"netmodifier/internal/storage/db"
	api "netmodifier/pkg/api"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the background service and the settings API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "HTTP listen address")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	store, err := storage.OpenSQL(db.Options{
		Name:   a.cfg.Sqlite.Db,
		Prefix: a.cfg.Sqlite.Prefix,
		Logger: db.NewLogger(a.log),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		tabs    navigation.TabUpdater
		updater *cdpadapter.TabUpdater
	)
	if url := a.cfg.Browser.DevToolsURL; url != "" {
		updater = cdpadapter.NewTabUpdater(url, a.log)
		defer updater.Close()
		if err := updater.TestConnection(ctx); err != nil {
			a.log.Warn("浏览器暂不可达，稍后重试", "devtoolsURL", url, "error", err.Error())
		}
		tabs = updater
	} else {
		tabs = navigation.NewLogUpdater(a.log)
	}

	cache := a.regexCache()
	repo := rules.New(store, cache, a.log)
	nav := navigation.New(repo, tabs, cache, a.navigationOptions(), a.log)
	defer nav.Close()

	aud := audit.New(a.cfg.Audit.Capacity, a.log)
	aud.SetEnabled(a.cfg.Audit.Enabled)
	bg := background.New(repo, store, engine.NewMemory(), nav, a.compilerOptions(), a.log).WithAuditor(aud)
	svc := api.NewService(service.Deps{
		Rules:       repo,
		Background:  bg,
		Substituter: placeholder.New(cache),
		Compiler:    a.compilerOptions(),
		Logger:      a.log,
	})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           httpapi.NewServer(svc, a.log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		if err := bg.Run(ctx); err != nil {
			errCh <- err
		}
	}()
	if updater != nil {
		interval := time.Duration(a.cfg.Browser.PollIntervalMS) * time.Millisecond
		watcher := cdpadapter.NewWatcher(updater, bg, interval, a.log)
		go func() { _ = watcher.Run(ctx) }()
		a.log.Info("开始监听浏览器导航", "devtoolsURL", a.cfg.Browser.DevToolsURL)
	}
	go func() {
		a.log.Info("设置接口已启动", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("收到退出信号，正在关闭")
	case err = <-errCh:
		a.log.Err(err, "服务异常退出")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.log.Err(shutdownErr, "关闭 HTTP 服务失败")
	}
	return err
}
