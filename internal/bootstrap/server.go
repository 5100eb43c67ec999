package bootstrap

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Domenick1991/airline-ticketing/config"
)

//go:embed openapi.json
var openAPIDoc []byte

const healthProbeInterval = 10 * time.Second

type Servers struct {
	grpcServer  *grpc.Server
	httpServer  *http.Server
	health      *health.Server
	gatewayConn *grpc.ClientConn
}

// Run serves the REST API, metrics, docs and the gRPC health service, and
// blocks until ctx is cancelled or a server fails. ping reports whether the
// database is reachable.
func Run(ctx context.Context, cfg *config.Config, api http.Handler, reg *prometheus.Registry, ping func(context.Context) error) error {
	s, err := newServers(cfg, api, reg)
	if err != nil {
		return err
	}
	defer s.gatewayConn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		log.Printf("http: listening on %s", cfg.HTTP.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go s.probe(ctx, ping)

	select {
	case err := <-errCh:
		s.grpcServer.Stop()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second)
		defer cancel()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func newServers(cfg *config.Config, api http.Handler, reg *prometheus.Registry) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial gRPC health: %w", err)
	}
	gateway := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newHandler(cfg.HTTP, api, gateway, reg),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Servers{
		grpcServer:  grpcSrv,
		httpServer:  httpSrv,
		health:      healthSrv,
		gatewayConn: conn,
	}, nil
}

func newHandler(cfg config.HTTPConfig, api, gateway http.Handler, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", api)
	mux.Handle("/healthz", gateway)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openAPIDoc)
	})
	mux.Handle("/swagger/", httpSwagger.Handler(httpSwagger.URL("/docs/openapi.json")))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key"}),
		handlers.ExposedHeaders([]string{"Content-Length"}),
	)
	return handlers.CombinedLoggingHandler(os.Stdout, cors(mux))
}

// probe flips the gRPC health status with database reachability.
func (s *Servers) probe(ctx context.Context, ping func(context.Context) error) {
	check := func() {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err := ping(pingCtx); err != nil {
			log.Printf("health: database unreachable: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		s.health.SetServingStatus("", status)
	}

	check()
	ticker := time.NewTicker(healthProbeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
