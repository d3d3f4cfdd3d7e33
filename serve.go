package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fediscus/fediscus/activitypub"
	"github.com/fediscus/fediscus/api"
	"github.com/fediscus/fediscus/internal/group"
	"github.com/fediscus/fediscus/internal/httpx"
	"github.com/fediscus/fediscus/models"
	"github.com/fediscus/fediscus/wellknown"
	"github.com/fediscus/fediscus/workers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServeCmd struct {
	Addr string `help:"address to listen" default:":8080" env:"FEDISCUS_ADDR"`
	Tag  string `help:"hashtag that marks a post as the start of a discussion" default:"fediscus" env:"FEDISCUS_TAG"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := ctx.openDB()
	if err != nil {
		return err
	}

	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, err := newDispatcher(c, db, s.Tag, ctx)
	if err != nil {
		return fmt.Errorf("%w: run create-local-account first", err)
	}
	env := &models.Env{
		Storage: models.NewStorage(db),
		Logger:  ctx.Logger,
	}
	apEnv := &activitypub.Env{
		Env:        env,
		Dispatcher: dispatcher,
	}
	getEnv := func(r *http.Request) *models.Env {
		return env
	}
	getAPEnv := func(r *http.Request) *activitypub.Env {
		return apEnv
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/comments", httpx.HandlerFunc(getEnv, api.CommentsIndex))
		r.Post("/comments", httpx.HandlerFunc(getEnv, api.CommentsIndex))
		r.Post("/counts", httpx.HandlerFunc(getEnv, api.CountsCreate))
	})

	inbox := httpx.HandlerFunc(getAPEnv, activitypub.InboxCreate)
	r.Post("/inbox", inbox)
	r.Route("/users/{username}", func(r chi.Router) {
		r.Get("/", httpx.HandlerFunc(getAPEnv, activitypub.UsersShow))
		r.Post("/inbox", inbox)
		r.Get("/outbox", httpx.HandlerFunc(getAPEnv, activitypub.OutboxIndex))
	})

	r.Route("/.well-known", func(r chi.Router) {
		r.Get("/webfinger", httpx.HandlerFunc(getEnv, wellknown.WebfingerShow))
		r.Get("/host-meta", httpx.HandlerFunc(getEnv, wellknown.HostMetaIndex))
		r.Get("/nodeinfo", httpx.HandlerFunc(getEnv, wellknown.NodeInfoIndex))
	})
	r.Get("/nodeinfo/{version}", httpx.HandlerFunc(getEnv, wellknown.NodeInfoShow))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		io.WriteString(w, "User-agent: *\nDisallow: /")
	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		ctx.Logger.Debug("route", "method", method, "path", route)
		return nil
	}
	if err := chi.Walk(r, walkFunc); err != nil {
		ctx.Logger.Warn("walk routes", "err", err)
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      r,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	g := group.New(c)
	g.Add(func(c context.Context) error {
		ctx.Logger.Info("listening", "addr", s.Addr, "tag", s.Tag)
		errCh := make(chan error, 1)
		go func() {
			errCh <- svr.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			return err
		case <-c.Done():
			shutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := svr.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	})
	g.Add(workers.NewDeliveryProcessor(db, ctx.Logger).Run)
	return g.Wait()
}
