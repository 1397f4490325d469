package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	configpkg "github.com/drblury/topicflow/internal/runtime/config"
	errspkg "github.com/drblury/topicflow/internal/runtime/errors"
	loggingpkg "github.com/drblury/topicflow/internal/runtime/logging"
	registrypkg "github.com/drblury/topicflow/internal/runtime/registry"
	schemapkg "github.com/drblury/topicflow/internal/runtime/schema"
	"github.com/drblury/topicflow/transport"
	_ "github.com/drblury/topicflow/transport/transports"
)

const tracerName = "github.com/drblury/topicflow"

var routerRun = func(router *message.Router, ctx context.Context) error {
	return router.Run(ctx)
}

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to get the defaults.
type ServiceDependencies struct {
	// Transport is used as is instead of building one from the config.
	Transport *transport.Transport
	// Transports is the registry the transport is built from. Defaults to
	// transport.DefaultRegistry.
	Transports *transport.Registry

	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.

	// Hooks run for every route handler, before the handler's own hooks.
	Hooks RouteHooks

	// MetricsRegisterer receives the route and router metrics. When nil and
	// metrics are enabled, the Prometheus default registerer is used.
	MetricsRegisterer prometheus.Registerer
	// TracerProvider defaults to the global OpenTelemetry provider.
	TracerProvider trace.TracerProvider
}

// Service wires a Watermill router, a transport, and the middleware chain
// around shape registries.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	transport    transport.Transport
	topics       transport.TopicMapper
	capabilities transport.Capabilities
	router       *message.Router

	registerer prometheus.Registerer
	metrics    *routeMetrics
	tracer     trace.Tracer
	hooks      RouteHooks

	shapes *registrypkg.Registry[*schemapkg.Message]

	handlerNames   map[string]struct{}
	handlerNamesMu sync.Mutex

	httpServers   map[int]*http.ServeMux
	httpServersMu sync.Mutex
	running       []*http.Server
}

// NewService constructs a Service for the supplied configuration and panics
// when it cannot be built. Register handlers on the returned Service before
// calling Start.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, ctx, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService is NewService returning the construction error.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, ctx context.Context, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	if err := conf.Validate(); err != nil {
		return nil, errspkg.NewConfigValidationError(err)
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	log.Info("Creating event service",
		loggingpkg.LogFields{
			"pubsub_system": conf.GetPubSubSystem(),
			"config":        conf.String(),
		})

	s := &Service{
		Conf:         conf,
		Logger:       log,
		hooks:        deps.Hooks,
		handlerNames: make(map[string]struct{}),
	}

	transports := deps.Transports
	if transports == nil {
		transports = transport.DefaultRegistry
	}
	if deps.Transport != nil {
		s.transport = *deps.Transport
	} else {
		t, err := transports.Build(ctx, conf, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("build %s transport: %w", conf.GetPubSubSystem(), err)
		}
		s.transport = t
	}
	if s.transport.Publisher == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	if s.transport.Subscriber == nil {
		_ = s.transport.Close()
		return nil, errspkg.ErrSubscriberRequired
	}
	s.topics = s.transport.Mapper()
	s.capabilities = transports.GetCapabilities(conf.GetPubSubSystem())
	if p, ok := s.transport.Publisher.(transport.CapabilitiesProvider); ok {
		s.capabilities = p.Capabilities()
	}

	if err := s.init(deps, wmLogger); err != nil {
		_ = s.transport.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) init(deps ServiceDependencies, wmLogger watermill.LoggerAdapter) error {
	s.registerer = deps.MetricsRegisterer
	if s.registerer == nil && s.Conf.MetricsEnabled {
		s.registerer = prometheus.DefaultRegisterer
	}
	metrics, err := newRouteMetrics(s.registerer)
	if err != nil {
		return fmt.Errorf("register route metrics: %w", err)
	}
	s.metrics = metrics

	tp := deps.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)

	if s.Conf.SchemaFile != "" {
		shapes, err := registrypkg.LoadMessages(s.Conf.SchemaFile)
		if err != nil {
			return err
		}
		s.shapes = shapes
		s.Logger.Info("Loaded shape description", loggingpkg.LogFields{
			"schema_file": s.Conf.SchemaFile,
			"shapes":      shapes.Len(),
		})
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return err
	}
	s.router = router
	s.router.AddPlugin(plugin.SignalsHandler)

	return s.registerConfiguredMiddlewares(deps)
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

// Start runs the router until ctx is cancelled or the service is closed.
func (s *Service) Start(ctx context.Context) error {
	s.startHTTPServers(ctx)

	// The router only watches ctx while it has handlers.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.router.Close()
		case <-stop:
		}
	}()
	return routerRun(s.router, ctx)
}

// Running is closed once the router is running.
func (s *Service) Running() <-chan struct{} {
	return s.router.Running()
}

// Close stops the router, the HTTP servers, and the transport.
func (s *Service) Close() error {
	routerErr := s.router.Close()

	s.httpServersMu.Lock()
	servers := s.running
	s.running = nil
	s.httpServersMu.Unlock()

	var errs []error
	if routerErr != nil {
		errs = append(errs, routerErr)
	}
	for _, srv := range servers {
		if err := srv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.transport.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Capabilities reports what the configured transport supports.
func (s *Service) Capabilities() transport.Capabilities {
	return s.capabilities
}

// Topics returns the mapper translating topics into broker topic names.
func (s *Service) Topics() transport.TopicMapper {
	return s.topics
}

// Publisher returns the transport publisher.
func (s *Service) Publisher() message.Publisher {
	return s.transport.Publisher
}

// Subscriber returns the transport subscriber.
func (s *Service) Subscriber() message.Subscriber {
	return s.transport.Subscriber
}

// Shapes returns the registry loaded from Conf.SchemaFile, or nil when no
// schema file is configured.
func (s *Service) Shapes() *registrypkg.Registry[*schemapkg.Message] {
	return s.shapes
}

// RegisterHTTPHandler serves handler on port once the service is started.
func (s *Service) RegisterHTTPHandler(port int, pattern string, handler http.Handler) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	if s.httpServers == nil {
		s.httpServers = make(map[int]*http.ServeMux)
	}

	mux, ok := s.httpServers[port]
	if !ok {
		mux = http.NewServeMux()
		s.httpServers[port] = mux
	}

	mux.Handle(pattern, handler)
}

func (s *Service) startHTTPServers(ctx context.Context) {
	s.httpServersMu.Lock()
	defer s.httpServersMu.Unlock()

	for port, mux := range s.httpServers {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		s.running = append(s.running, srv)
		s.Logger.Info("Starting HTTP server", loggingpkg.LogFields{"address": srv.Addr})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("Failed to start HTTP server", err, loggingpkg.LogFields{"address": srv.Addr})
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
}
