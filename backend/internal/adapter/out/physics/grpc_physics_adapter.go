package physics

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"rocket-lander/backend/internal/core/domain/entity"
	portPhysics "rocket-lander/backend/internal/core/port/out/physics"
	"rocket-lander/backend/internal/physics"
	pb "rocket-lander/backend/internal/physics/enginepb"
)

var _ portPhysics.PhysicsPort = (*GRPCPhysicsAdapter)(nil)

// GRPCPhysicsAdapter адаптер для взаимодействия с физическим сервером через gRPC
type GRPCPhysicsAdapter struct {
	client *pb.EngineClient
	conn   *grpc.ClientConn
	logger *zap.Logger
}

// NewGRPCPhysicsAdapter создает новый адаптер для взаимодействия с физическим сервером.
// Сразу после подключения отправляет текущую конфигурацию физики.
func NewGRPCPhysicsAdapter(ctx context.Context, address string, logger *zap.Logger, opts ...grpc.DialOption) (*GRPCPhysicsAdapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к серверу физики: %w", err)
	}

	adapter := &GRPCPhysicsAdapter{
		client: pb.NewEngineClient(conn),
		conn:   conn,
		logger: logger.Named("GRPCPhysics"),
	}

	if err := adapter.UpdatePhysicsConfig(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	adapter.logger.Info("подключено к серверу физики", zap.String("addr", address))
	return adapter, nil
}

// UpdatePhysicsConfig отправляет глобальную конфигурацию физики на сервер
func (a *GRPCPhysicsAdapter) UpdatePhysicsConfig(ctx context.Context) error {
	cfg := physics.GetPhysicsConfig()
	if _, err := a.client.Configure(ctx, &pb.ConfigureRequest{Config: *cfg}); err != nil {
		return fmt.Errorf("ошибка при обновлении конфигурации физики: %w", err)
	}
	return nil
}

func (a *GRPCPhysicsAdapter) AddForceAtPosition(ctx context.Context, force, point mgl32.Vec3) error {
	if _, err := a.client.AddForceAtPosition(ctx, &pb.ForceRequest{Force: force, Point: point}); err != nil {
		return fmt.Errorf("ошибка при приложении силы: %w", err)
	}
	return nil
}

func (a *GRPCPhysicsAdapter) AddTorque(ctx context.Context, torque mgl32.Vec3) error {
	if _, err := a.client.AddTorque(ctx, &pb.TorqueRequest{Torque: torque}); err != nil {
		return fmt.Errorf("ошибка при приложении момента: %w", err)
	}
	return nil
}

func (a *GRPCPhysicsAdapter) GetState(ctx context.Context) (entity.BodyState, error) {
	resp, err := a.client.GetState(ctx, &pb.Empty{})
	if err != nil {
		return entity.BodyState{}, fmt.Errorf("ошибка при получении состояния: %w", err)
	}
	return resp.State, nil
}

func (a *GRPCPhysicsAdapter) SetState(ctx context.Context, state entity.BodyState) error {
	if _, err := a.client.SetState(ctx, &pb.StateMessage{State: state}); err != nil {
		return fmt.Errorf("ошибка при установке состояния: %w", err)
	}
	return nil
}

func (a *GRPCPhysicsAdapter) SetConstraints(ctx context.Context, constraints portPhysics.Constraints) error {
	if _, err := a.client.SetConstraints(ctx, &pb.ConstraintsRequest{Constraints: constraints}); err != nil {
		return fmt.Errorf("ошибка при установке ограничений: %w", err)
	}
	return nil
}

func (a *GRPCPhysicsAdapter) Step(ctx context.Context, dt float32) error {
	resp, err := a.client.Step(ctx, &pb.StepRequest{DeltaTime: dt})
	if err != nil {
		return fmt.Errorf("ошибка шага физики: %w", err)
	}
	a.logger.Debug("шаг", zap.Uint64("steps", resp.Steps))
	return nil
}

// Close закрывает соединение с сервером
func (a *GRPCPhysicsAdapter) Close() error {
	if a.conn == nil {
		return nil
	}
	if err := a.conn.Close(); err != nil {
		return fmt.Errorf("ошибка при закрытии соединения с физическим сервером: %w", err)
	}
	return nil
}
