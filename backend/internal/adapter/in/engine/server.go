package engine

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"rocket-lander/backend/internal/physics"
	pb "rocket-lander/backend/internal/physics/enginepb"
)

var _ pb.EngineServer = (*Server)(nil)

// Server отдает встроенный движок по gRPC.
// Configure пересоздает тело с новой конфигурацией.
type Server struct {
	mu     sync.RWMutex
	body   *physics.RigidBody
	logger *zap.Logger
}

// NewServer создает сервер движка с конфигурацией cfg
func NewServer(cfg *physics.PhysicsConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		body:   physics.NewRigidBody(cfg),
		logger: logger.Named("EngineServer"),
	}
}

// Register регистрирует сервис на gRPC сервере
func (s *Server) Register(registrar grpc.ServiceRegistrar) {
	pb.RegisterEngineServer(registrar, s)
}

// Serve принимает соединения до отмены ctx
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	s.Register(srv)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	s.logger.Info("движок слушает", zap.String("addr", lis.Addr().String()))
	if err := srv.Serve(lis); err != nil {
		return fmt.Errorf("ошибка gRPC сервера движка: %w", err)
	}
	return nil
}

func (s *Server) current() *physics.RigidBody {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.body
}

func (s *Server) Configure(_ context.Context, req *pb.ConfigureRequest) (*pb.Empty, error) {
	cfg := req.Config
	body := physics.NewRigidBody(&cfg)

	s.mu.Lock()
	s.body = body
	s.mu.Unlock()

	s.logger.Info("конфигурация движка обновлена",
		zap.Float32("mass", cfg.Mass),
		zap.Float32("dt", cfg.FixedDeltaTime))
	return &pb.Empty{}, nil
}

func (s *Server) AddForceAtPosition(ctx context.Context, req *pb.ForceRequest) (*pb.Empty, error) {
	return &pb.Empty{}, s.current().AddForceAtPosition(ctx, req.Force, req.Point)
}

func (s *Server) AddTorque(ctx context.Context, req *pb.TorqueRequest) (*pb.Empty, error) {
	return &pb.Empty{}, s.current().AddTorque(ctx, req.Torque)
}

func (s *Server) GetState(ctx context.Context, _ *pb.Empty) (*pb.StateMessage, error) {
	state, err := s.current().GetState(ctx)
	if err != nil {
		return nil, err
	}
	return &pb.StateMessage{State: state}, nil
}

func (s *Server) SetState(ctx context.Context, req *pb.StateMessage) (*pb.Empty, error) {
	return &pb.Empty{}, s.current().SetState(ctx, req.State)
}

func (s *Server) SetConstraints(ctx context.Context, req *pb.ConstraintsRequest) (*pb.Empty, error) {
	return &pb.Empty{}, s.current().SetConstraints(ctx, req.Constraints)
}

func (s *Server) Step(ctx context.Context, req *pb.StepRequest) (*pb.StepResponse, error) {
	body := s.current()
	if err := body.Step(ctx, req.DeltaTime); err != nil {
		return nil, err
	}
	return &pb.StepResponse{Steps: body.Steps()}, nil
}
