package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	appointmentsrepo "franchise_crm/internal/appointments/repository"
	"franchise_crm/internal/bootstrap"
	"franchise_crm/internal/scheduler"
	"franchise_crm/platform/config"
	"franchise_crm/platform/logger"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.ConnectDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	rdb, err := bootstrap.RedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	bg, err := bootstrap.NewBackground(cfg, pool, rdb, log)
	if err != nil {
		log.Error("failed to initialize pipeline modules", "error", err)
		panic("failed to initialize pipeline modules: " + err.Error())
	}
	defer bg.Close()

	g, gctx := errgroup.WithContext(ctx)

	if bg.Reconcile != nil {
		g.Go(func() error { return bg.Reconcile.Poller().Run(gctx) })
	}
	g.Go(func() error { return bg.SLA.Scanner().Run(gctx) })

	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize task client", "error", err)
			panic("failed to initialize task client: " + err.Error())
		}
		defer func() { _ = client.Close() }()
		bg.Notification.SetEmailQueue(client)

		handlers := scheduler.NewHandlers(bg.KPI.Service(), bg.Sender, appointmentsrepo.New(pool), bg.SLA.Scanner(), log)
		worker, err := scheduler.NewWorker(cfg, handlers, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		periodic, err := scheduler.NewPeriodic(cfg, log)
		if err != nil {
			log.Error("failed to initialize periodic scheduler", "error", err)
			panic("failed to initialize periodic scheduler: " + err.Error())
		}
		g.Go(func() error { return worker.Run(gctx) })
		g.Go(func() error { return periodic.Run(gctx) })
	} else {
		log.Warn("REDIS_URL not configured; task worker and KPI cron disabled, email is sent inline")
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		bg.Bus.Wait()
		os.Exit(1)
	}
	bg.Bus.Wait()
	log.Info("scheduler stopped")
}
