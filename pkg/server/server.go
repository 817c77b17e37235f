package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/config"
	"github.com/charlie0129/rtdconv/pkg/events"
	"github.com/charlie0129/rtdconv/pkg/metrics"
	"github.com/charlie0129/rtdconv/pkg/retention"
	"github.com/charlie0129/rtdconv/pkg/store"
)

var (
	conf      config.Config
	artifacts store.Store
	registry  *prometheus.Registry
	meters    *metrics.Metrics
	hub       *events.EventHub
)

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))

	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/config", getConfig)
		v1.GET("/version", getVersion)
		v1.GET("/events", getEvents)
		v1.PUT("/degree", setDegree)
		v1.PUT("/reference-resistance", setReferenceResistance)

		v1.POST("/convert", postConvert)
		v1.POST("/fit", postFit)
		v1.POST("/batches", postBatches)

		v1.GET("/outputs", listOutputs)
		v1.GET("/outputs/:name", getOutput)
		v1.DELETE("/outputs/:name", deleteOutput)
		v1.GET("/outputs/:name/xlsx", getOutputXLSX)
		v1.GET("/outputs/:name/plot", getOutputPlot)
		v1.POST("/outputs/concatenate", postConcatenate)
	}

	return router
}

func newStore(ctx context.Context, c config.Config) (store.Store, error) {
	switch c.Storage() {
	case config.StorageS3:
		return store.NewS3(ctx, c.S3())
	default:
		return store.NewLocal(c.OutputDir())
	}
}

// schedulePruner applies the configured retention schedule. An empty
// schedule leaves the pruner idle.
func schedulePruner(p *retention.Scheduler) {
	expr := conf.RetentionSchedule()
	if err := p.Schedule(expr); err != nil {
		logrus.Errorf("failed to schedule output pruning: %v", err)
		return
	}
	if expr != "" {
		logrus.WithFields(logrus.Fields{
			"schedule": expr,
			"maxAge":   conf.RetentionMaxAge().String(),
		}).Info("output pruning scheduled")
	}
}

// Run loads the config, serves the API and blocks until SIGINT or SIGTERM.
func Run(configPath string) error {
	var err error
	conf, err = config.NewFile(configPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to parse config during startup")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	artifacts, err = newStore(ctx, conf)
	cancel()
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to open %s storage", conf.Storage())
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	meters = metrics.New(registry)
	hub = events.NewEventHub()

	router := setupRoutes()

	pruner := retention.NewPruner(artifacts, conf.RetentionMaxAge)
	schedulePruner(pruner)
	pruner.Start()
	defer pruner.Stop()

	// Receive SIGHUP to reload config. Storage settings need a restart.
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
			schedulePruner(pruner)
		}
	}()

	l, err := listen(conf.Listen())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigc:
		logrus.Infof("caught signal \"%s\": shutting down.", sig)
	case err := <-serveErr:
		return pkgerrors.Wrapf(err, "http server failed")
	}

	logrus.Info("shutting down http server")
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
