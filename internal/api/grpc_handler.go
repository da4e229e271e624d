package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"marketplace-service/internal/domain"
)

// ActorMetadataKey carries the calling user's id on internal gRPC calls.
// The gRPC listener is meant for trusted in-cluster callers only.
const ActorMetadataKey = "x-user-id"

const messagingServiceName = "marketplace.v1.Messaging"

// MessagingServer is the gRPC surface of the messaging module. Requests and
// responses are free-form structs so callers need no generated stubs.
type MessagingServer interface {
	GetInbox(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetConversation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	PostMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterMessagingServer registers srv on s under marketplace.v1.Messaging.
func RegisterMessagingServer(s grpc.ServiceRegistrar, srv MessagingServer) {
	s.RegisterService(&messagingServiceDesc, srv)
}

func unaryHandler(method string, call func(MessagingServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MessagingServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + messagingServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(MessagingServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var messagingServiceDesc = grpc.ServiceDesc{
	ServiceName: messagingServiceName,
	HandlerType: (*MessagingServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetInbox", MessagingServer.GetInbox),
		unaryHandler("GetConversation", MessagingServer.GetConversation),
		unaryHandler("PostMessage", MessagingServer.PostMessage),
	},
	Streams: []grpc.StreamDesc{},
}

// GRPCHandler implements MessagingServer on top of the messaging service.
type GRPCHandler struct {
	accounts  AccountService
	messaging MessagingService
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(accounts AccountService, messaging MessagingService) *GRPCHandler {
	return &GRPCHandler{accounts: accounts, messaging: messaging}
}

// --- Helper: Error Mapping ---
func mapServiceErrorToGrpcStatus(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, domain.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidOperation):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		log.Error("gRPC call failed", "op", op, "err", err)
		return status.Errorf(codes.Internal, "failed to %s", op)
	}
}

func (s *GRPCHandler) actor(ctx context.Context) (domain.Actor, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(ActorMetadataKey)
	if len(values) == 0 {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "missing %s metadata", ActorMetadataKey)
	}
	id, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil || id <= 0 {
		return domain.Actor{}, status.Errorf(codes.Unauthenticated, "invalid %s metadata", ActorMetadataKey)
	}
	user, err := s.accounts.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Actor{}, status.Errorf(codes.Unauthenticated, "unknown user %d", id)
		}
		return domain.Actor{}, mapServiceErrorToGrpcStatus(err, "load actor")
	}
	return user.Actor(), nil
}

func idField(req *structpb.Struct, name string) (int64, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s is required", name)
	}
	n := v.GetNumberValue()
	if n <= 0 || n != math.Trunc(n) || n >= 1<<63 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a positive integer", name)
	}
	return int64(n), nil
}

// toStruct converts a JSON-encodable value into a structpb.Struct using its
// JSON field names.
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func respond(v interface{}) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		log.Error("failed to encode gRPC response", "err", err)
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

// --- Messaging gRPC Methods Implementation ---

func (s *GRPCHandler) GetInbox(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	view, err := s.messaging.BuildInbox(ctx, actor)
	if err != nil {
		return nil, mapServiceErrorToGrpcStatus(err, "build inbox")
	}
	return respond(inboxResponse(view))
}

func (s *GRPCHandler) GetConversation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	productID, err := idField(req, "product_id")
	if err != nil {
		return nil, err
	}
	counterpartID, err := idField(req, "counterpart_id")
	if err != nil {
		return nil, err
	}
	messages, err := s.messaging.GetConversation(ctx, actor, productID, counterpartID)
	if err != nil {
		return nil, mapServiceErrorToGrpcStatus(err, "get conversation")
	}
	return respond(map[string]interface{}{"messages": messages})
}

func (s *GRPCHandler) PostMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	productID, err := idField(req, "product_id")
	if err != nil {
		return nil, err
	}
	counterpartID, err := idField(req, "counterpart_id")
	if err != nil {
		return nil, err
	}
	msg, err := s.messaging.PostMessage(ctx, actor, productID, counterpartID, req.GetFields()["content"].GetStringValue())
	if err != nil {
		return nil, mapServiceErrorToGrpcStatus(err, "post message")
	}
	log.Info("gRPC message posted", "message_id", msg.ID, "product_id", productID)
	return respond(map[string]interface{}{"message": msg})
}
