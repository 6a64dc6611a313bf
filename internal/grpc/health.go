package grpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the name reported to health clients
const ServiceName = "ledger.v1.Ledger"

var (
	errJournalDown   = errors.New("journal connection failed")
	errPublisherDown = errors.New("rabbitmq connection failed")
)

// Pinger is satisfied by the journal store
type Pinger interface {
	Ping() error
}

// BrokerHealth is satisfied by the event publisher
type BrokerHealth interface {
	IsHealthy() bool
}

// HealthServer implements the gRPC health checking protocol. Optional
// dependencies left nil are not checked.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	journal   Pinger
	publisher BrokerHealth
	log       *zap.Logger
	interval  time.Duration
}

// NewHealthServer creates a new health check server
func NewHealthServer(journal Pinger, publisher BrokerHealth, log *zap.Logger) *HealthServer {
	return &HealthServer{
		journal:   journal,
		publisher: publisher,
		log:       log,
		interval:  5 * time.Second,
	}
}

// NewServer builds a gRPC server exposing health and reflection
func NewServer(health *HealthServer, log *zap.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(log)))
	grpc_health_v1.RegisterHealthServer(s, health)
	reflection.Register(s)
	return s
}

// Probe returns the first failing dependency, or nil
func (h *HealthServer) Probe() error {
	if h.journal != nil {
		if err := h.journal.Ping(); err != nil {
			h.log.Error("Journal health check failed", zap.Error(err))
			return errJournalDown
		}
	}
	if h.publisher != nil && !h.publisher.IsHealthy() {
		h.log.Error("RabbitMQ health check failed")
		return errPublisherDown
	}
	return nil
}

func (h *HealthServer) status(service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	if service != "" && service != ServiceName {
		return grpc_health_v1.HealthCheckResponse_SERVICE_UNKNOWN, status.Error(codes.NotFound, "unknown service")
	}
	if h.Probe() != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING, nil
	}
	return grpc_health_v1.HealthCheckResponse_SERVING, nil
}

// Check implements the health check
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	st, err := h.status(req.GetService())
	if err != nil {
		return nil, err
	}
	return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
}

// Watch streams the serving status, sending only on change
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	last := grpc_health_v1.HealthCheckResponse_UNKNOWN
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		st, _ := h.status(req.GetService())
		if st != last {
			if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: st}); err != nil {
				return err
			}
			last = st
		}

		select {
		case <-stream.Context().Done():
			return status.Error(codes.Canceled, "stream has ended")
		case <-ticker.C:
		}
	}
}

// LoggingInterceptor logs all gRPC requests
func LoggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if err != nil {
			log.Error("gRPC request failed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		} else {
			log.Debug("gRPC request completed",
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
			)
		}

		return resp, err
	}
}
