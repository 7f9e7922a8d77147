package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursehub/pkg/access"
	"coursehub/pkg/articles"
	"coursehub/pkg/config"
	"coursehub/pkg/courses"
	"coursehub/pkg/email"
	"coursehub/pkg/exams"
	"coursehub/pkg/goauth"
	"coursehub/pkg/initial"
	"coursehub/pkg/jobs"
	"coursehub/pkg/kfka"
	"coursehub/pkg/logging"
	"coursehub/pkg/media"
	"coursehub/pkg/middleware"
	"coursehub/pkg/progress"
	"coursehub/pkg/purchases"
	"coursehub/pkg/routes"
	"coursehub/pkg/search"
	"coursehub/pkg/sessions"
	"coursehub/pkg/store"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, level, cfg.Dev())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initial.ConDB(cfg.DB, logger, cfg.Dev())
	if err != nil {
		return err
	}
	if err := initial.SyncDB(db); err != nil {
		return err
	}
	es, err := initial.InitES(cfg.Search)
	if err != nil {
		return err
	}
	objects, err := initial.InitMinio(ctx, cfg.Minio)
	if err != nil {
		return err
	}
	rdb, err := initial.InitRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	publisher := kfka.NewPublisher(cfg.Kafka.Brokers)
	defer publisher.Close()

	courseRepo := store.NewCourseRepository(db)
	userRepo := store.NewUserRepository(db)
	articleRepo := store.NewArticleRepository(db)
	index := search.NewIndex(es)
	sessionMgr := sessions.NewManager(db, cfg.Auth.Secret, cfg.Auth.SessionTTL)
	evaluator := access.NewEvaluator(userRepo)
	progressStore := progress.NewStore(store.NewProgressRepository(db), courseRepo, cfg.Courses.ProgressMaxAttempts)
	mailer := email.NewMailer(cfg.Mail)

	if n, err := index.Rebuild(ctx, courseRepo, articleRepo); err != nil {
		logger.Warn("search index rebuilt with errors", "indexed", n, "error", err)
	} else {
		logger.Info("search index rebuilt", "indexed", n)
	}

	courseSvc := courses.NewService(courseRepo, evaluator, progressStore, cfg.Courses.DefaultPrice)
	router := routes.New(routes.Handlers{
		Auth:      goauth.NewHandler(userRepo, sessionMgr, goauth.NewRedisCodes(rdb), progressStore, mailer),
		Courses:   courses.NewHandler(courseSvc, progressStore, index),
		Exams:     exams.NewHandler(exams.NewService(courseRepo, progressStore), evaluator, publisher),
		Purchases: purchases.NewHandler(userRepo, courseRepo, publisher, cfg.Courses.ProMembershipPeriod),
		Articles:  articles.NewHandler(articleRepo, index),
		Media:     media.NewHandler(media.NewService(db, objects, cfg.Minio.Bucket, cfg.Minio.PublicURL)),
	}, middleware.NewAuth(sessionMgr, userRepo))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(middleware.RequestLogger(logger)(router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler, err := jobs.New(logger, sessionMgr, userRepo)
	if err != nil {
		return err
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		kfka.Consume(gctx, logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-exam-mail", kfka.TopicExamResults, email.ExamResultNotifier(mailer))
		return nil
	})
	g.Go(func() error {
		kfka.Consume(gctx, logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-purchase-mail", kfka.TopicCoursePurchases, email.PurchaseNotifier(mailer))
		return nil
	})
	g.Go(func() error {
		logger.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		<-scheduler.Stop().Done()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
