// internal/app/app.go

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"acdispatch/api"
	"acdispatch/internal/ac"
	"acdispatch/internal/billing"
	"acdispatch/internal/config"
	"acdispatch/internal/db"
	"acdispatch/internal/events"
	"acdispatch/internal/handlers"
	"acdispatch/internal/logger"
	"acdispatch/internal/monitor"
	"acdispatch/internal/scheduler"

	"gorm.io/gorm"
	"k8s.io/utils/clock"
)

type App struct {
	cfg *config.Config

	conn        *gorm.DB
	eventBus    *events.EventBus
	manager     *ac.Manager
	scheduler   *scheduler.Scheduler
	writer      *billing.Writer
	billService billing.BillingService
	monitor     *monitor.Monitor
	router      http.Handler
	server      *http.Server
	clock       clock.WithTicker
}

type Option func(*App)

// WithClock 替换调度器时钟
func WithClock(c clock.WithTicker) Option {
	return func(a *App) { a.clock = c }
}

func NewApp(cfg *config.Config, opts ...Option) *App {
	a := &App{cfg: cfg, clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize 打开数据库并装配各组件
func (a *App) Initialize(ctx context.Context) error {
	conn, err := db.Open(a.cfg.Database.Path, a.cfg.Database.SeedRooms)
	if err != nil {
		return err
	}
	a.conn = conn
	a.eventBus = events.NewEventBus()

	roomRepo := db.NewRoomRepository(conn)
	usageRepo := db.NewUsageRepository(conn)
	acConfigRepo := db.NewACConfigRepository(conn)

	a.manager = ac.NewManager(acConfigRepo, roomRepo, a.cfg.Scheduler, a.eventBus)
	if err := a.manager.Load(ctx); err != nil {
		return err
	}
	a.writer = billing.NewWriter(usageRepo, a.manager, a.eventBus)
	a.scheduler = scheduler.New(roomRepo, a.manager, a.writer,
		scheduler.WithPublisher(a.eventBus),
		scheduler.WithClock(a.clock),
	)
	a.manager.Attach(a.scheduler)
	a.billService = billing.NewBillingService(usageRepo)
	a.monitor = monitor.NewMonitor(a.eventBus, a.scheduler, a.cfg.Monitor.Interval)

	a.router = api.SetupRouter(api.Handlers{
		AC:      handlers.NewACHandler(a.manager, a.scheduler, a.billService),
		Admin:   handlers.NewAdminHandler(a.manager, a.scheduler),
		Room:    handlers.NewRoomHandler(roomRepo, a.manager),
		Billing: handlers.NewBillingHandler(a.billService),
		Metrics: a.monitor.Handler(),
	}, a.cfg.Cors.AllowedOrigins)
	return nil
}

// Handler HTTP 入口
func (a *App) Handler() http.Handler {
	return a.router
}

// Start 启动写回协程, 调度器, 监控和 HTTP 服务
func (a *App) Start(ctx context.Context) error {
	if err := a.writer.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if err := a.scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	a.monitor.Start()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	a.server = &http.Server{Handler: a.router}

	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error: %v", err)
		}
	}()

	logger.Info("Server started on %s", ln.Addr())
	return nil
}

// Stop 按依赖倒序停止: 先停止接收请求, 调度器停止后再写完剩余区间
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
	}
	if err := a.scheduler.Stop(ctx); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		errs = append(errs, err)
	}
	if err := a.writer.Stop(ctx); err != nil && !errors.Is(err, billing.ErrWriterNotRunning) {
		errs = append(errs, err)
	}
	a.monitor.Stop()
	a.eventBus.Wait()

	if err := db.Close(a.conn); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Info("Application stopped gracefully")
	return nil
}
