package health

import (
	"context"
	"sync"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/aquamarinepk/aqm"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const subscriberID = "health-reporter"

// UpdateSource fans feed updates out to subscribers.
type UpdateSource interface {
	Subscribe(subscriberID string) <-chan feed.Update
	Unsubscribe(subscriberID string)
}

// Server exposes the standard gRPC health service. It reports SERVING while
// the last feed poll succeeded and NOT_SERVING before the first success or
// after a failure.
type Server struct {
	hs      *grpchealth.Server
	source  UpdateSource
	service string
	logger  aqm.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(source UpdateSource, service string, logger aqm.Logger) *Server {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	s := &Server{
		hs:      grpchealth.NewServer(),
		source:  source,
		service: service,
		logger:  logger,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// RegisterGRPCService registers the health service with the gRPC server.
func (s *Server) RegisterGRPCService(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s.hs)
}

func (s *Server) Start(ctx context.Context) error {
	updates := s.source.Subscribe(subscriberID)
	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(runCtx, updates)
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.source.Unsubscribe(subscriberID)
	s.wg.Wait()
	s.hs.Shutdown()
	return nil
}

func (s *Server) run(ctx context.Context, updates <-chan feed.Update) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Err != nil {
				s.logger.Info("reporting NOT_SERVING", "seq", u.Seq, "error", u.Err)
				s.set(healthpb.HealthCheckResponse_NOT_SERVING)
				continue
			}
			s.set(healthpb.HealthCheckResponse_SERVING)
		}
	}
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.hs.SetServingStatus("", status)
	if s.service != "" {
		s.hs.SetServingStatus(s.service, status)
	}
}
