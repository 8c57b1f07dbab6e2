package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/OpenNSW/flowtrack/internal/dashboard"
	"github.com/OpenNSW/flowtrack/internal/observability"
	"github.com/OpenNSW/flowtrack/internal/workflow/cache"
	"github.com/OpenNSW/flowtrack/internal/workflow/events"
	"github.com/OpenNSW/flowtrack/internal/workflow/router"
	"github.com/OpenNSW/flowtrack/internal/workflow/service"
)

// Options carries the collaborators of the Manager. Redis, Metrics and PubSub are optional.
type Options struct {
	DB           *gorm.DB
	QueryTimeout time.Duration

	Redis    redis.Cmdable
	CacheTTL time.Duration

	Publisher  message.Publisher
	Subscriber message.Subscriber
	Metrics    *observability.Metrics

	Snapshots dashboard.SnapshotStore
	// NearDeadline is the engine threshold. Zero disables the window; negative keeps the default.
	NearDeadline          time.Duration
	DashboardMaxWorkflows int
}

// Manager wires the workflow engine, its stores, the dashboard and the HTTP routers.
type Manager struct {
	templates       service.TemplateStore
	workflows       *service.WorkflowRepository
	engine          *service.WorkflowEngine
	dashboard       *dashboard.Service
	listener        *events.Listener
	listening       bool
	workflowRouter  *router.WorkflowRouter
	templateRouter  *router.TemplateRouter
	dashboardRouter *router.DashboardRouter
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewManager creates a new Manager
func NewManager(opts Options) *Manager {
	var templates service.TemplateStore = service.NewTemplateService(opts.DB, opts.QueryTimeout)
	if opts.Redis != nil {
		templates = cache.NewTemplateCache(templates, opts.Redis, opts.CacheTTL)
		slog.Info("template cache enabled", "ttl", opts.CacheTTL)
	}
	workflows := service.NewWorkflowRepository(opts.DB, opts.QueryTimeout)

	engineOpts := []service.EngineOption{service.WithNearDeadlineThreshold(opts.NearDeadline)}
	if opts.Publisher != nil {
		engineOpts = append(engineOpts, service.WithPublisher(events.NewPublisher(opts.Publisher)))
	}
	if opts.Metrics != nil {
		engineOpts = append(engineOpts, service.WithRecorder(opts.Metrics))
	}
	engine := service.NewWorkflowEngine(templates, workflows, engineOpts...)

	ds := dashboard.NewService(workflows, opts.Snapshots, dashboard.Options{
		NearDeadline: engine.NearDeadlineThreshold(),
		MaxWorkflows: opts.DashboardMaxWorkflows,
		Now:          engine.Now,
	})

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		templates:       templates,
		workflows:       workflows,
		engine:          engine,
		dashboard:       ds,
		workflowRouter:  router.NewWorkflowRouter(engine),
		templateRouter:  router.NewTemplateRouter(engine),
		dashboardRouter: router.NewDashboardRouter(ds),
		ctx:             ctx,
		cancel:          cancel,
	}

	if opts.Subscriber != nil {
		handlers := []events.Handler{events.LogHandler}
		if opts.Metrics != nil {
			handlers = append(handlers, opts.Metrics.CountTransitionEvent)
		}
		m.listener = events.NewListener(opts.Subscriber, handlers...)
	}
	return m
}

// Engine returns the workflow engine.
func (m *Manager) Engine() *service.WorkflowEngine {
	return m.engine
}

// Dashboard returns the dashboard service.
func (m *Manager) Dashboard() *dashboard.Service {
	return m.dashboard
}

// RegisterRoutes mounts every workflow, template and dashboard endpoint on rg.
func (m *Manager) RegisterRoutes(rg *gin.RouterGroup) {
	m.workflowRouter.RegisterRoutes(rg)
	m.templateRouter.RegisterRoutes(rg)
	m.dashboardRouter.RegisterRoutes(rg)
}

// StartEventListener starts consuming transition events. It is a no-op without a subscriber.
func (m *Manager) StartEventListener() error {
	if m.listener == nil {
		return nil
	}
	if err := m.listener.Start(m.ctx); err != nil {
		return fmt.Errorf("failed to start transition event listener: %w", err)
	}
	m.listening = true
	slog.Info("transition event listener started", "topic", events.Topic)
	return nil
}

// StopEventListener stops the transition event listener and waits until it has drained.
func (m *Manager) StopEventListener() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.listening {
		<-m.listener.Done()
	}
}
