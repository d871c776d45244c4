// Package enginepb описывает контракт удаленного физического движка:
// сообщения, описание gRPC сервиса и клиент.
package enginepb

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/grpc"

	"rocket-lander/backend/internal/core/domain/entity"
	port "rocket-lander/backend/internal/core/port/out/physics"
	"rocket-lander/backend/internal/physics"
)

// ServiceName полное имя сервиса
const ServiceName = "rocket.physics.Engine"

type Empty struct{}

type ConfigureRequest struct {
	Config physics.PhysicsConfig `json:"config"`
}

type ForceRequest struct {
	Force mgl32.Vec3 `json:"force"`
	Point mgl32.Vec3 `json:"point"`
}

type TorqueRequest struct {
	Torque mgl32.Vec3 `json:"torque"`
}

type StateMessage struct {
	State entity.BodyState `json:"state"`
}

type ConstraintsRequest struct {
	Constraints port.Constraints `json:"constraints"`
}

type StepRequest struct {
	DeltaTime float32 `json:"dt"`
}

type StepResponse struct {
	Steps uint64 `json:"steps"`
}

// EngineServer серверная сторона движка
type EngineServer interface {
	Configure(context.Context, *ConfigureRequest) (*Empty, error)
	AddForceAtPosition(context.Context, *ForceRequest) (*Empty, error)
	AddTorque(context.Context, *TorqueRequest) (*Empty, error)
	GetState(context.Context, *Empty) (*StateMessage, error)
	SetState(context.Context, *StateMessage) (*Empty, error)
	SetConstraints(context.Context, *ConstraintsRequest) (*Empty, error)
	Step(context.Context, *StepRequest) (*StepResponse, error)
}

// RegisterEngineServer регистрирует реализацию движка на gRPC сервере
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&EngineServiceDesc, srv)
}

// EngineServiceDesc описание сервиса для grpc.Server
var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Configure", EngineServer.Configure),
		unary("AddForceAtPosition", EngineServer.AddForceAtPosition),
		unary("AddTorque", EngineServer.AddTorque),
		unary("GetState", EngineServer.GetState),
		unary("SetState", EngineServer.SetState),
		unary("SetConstraints", EngineServer.SetConstraints),
		unary("Step", EngineServer.Step),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rocket/physics/engine",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(EngineServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EngineServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(EngineServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// EngineClient клиентская сторона движка
type EngineClient struct {
	cc grpc.ClientConnInterface
}

// NewEngineClient создает клиента поверх соединения
func NewEngineClient(cc grpc.ClientConnInterface) *EngineClient {
	return &EngineClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *EngineClient, name string, in any) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, fullMethod(name), in, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EngineClient) Configure(ctx context.Context, in *ConfigureRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "Configure", in)
}

func (c *EngineClient) AddForceAtPosition(ctx context.Context, in *ForceRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "AddForceAtPosition", in)
}

func (c *EngineClient) AddTorque(ctx context.Context, in *TorqueRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "AddTorque", in)
}

func (c *EngineClient) GetState(ctx context.Context, in *Empty) (*StateMessage, error) {
	return invoke[StateMessage](ctx, c, "GetState", in)
}

func (c *EngineClient) SetState(ctx context.Context, in *StateMessage) (*Empty, error) {
	return invoke[Empty](ctx, c, "SetState", in)
}

func (c *EngineClient) SetConstraints(ctx context.Context, in *ConstraintsRequest) (*Empty, error) {
	return invoke[Empty](ctx, c, "SetConstraints", in)
}

func (c *EngineClient) Step(ctx context.Context, in *StepRequest) (*StepResponse, error) {
	return invoke[StepResponse](ctx, c, "Step", in)
}
