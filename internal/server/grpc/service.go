package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "notekeeper.v1.NoteKeeper"

// Full method names.
const (
	MethodRegister   = "/" + ServiceName + "/Register"
	MethodLogin      = "/" + ServiceName + "/Login"
	MethodLogout     = "/" + ServiceName + "/Logout"
	MethodWhoami     = "/" + ServiceName + "/Whoami"
	MethodCreateNote = "/" + ServiceName + "/CreateNote"
	MethodGetNote    = "/" + ServiceName + "/GetNote"
	MethodDeleteNote = "/" + ServiceName + "/DeleteNote"
	MethodListNotes  = "/" + ServiceName + "/ListNotes"
	MethodListUsers  = "/" + ServiceName + "/ListUsers"
)

// PublicMethods are callable without a session.
func PublicMethods() []string { return []string{MethodRegister, MethodLogin} }

// NoteKeeperServer is the server API. Every message is a google.protobuf.Struct.
type NoteKeeperServer interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Whoami(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteNote(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListNotes(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type method func(NoteKeeperServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call method) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NoteKeeperServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(NoteKeeperServer), ctx, req.(*structpb.Struct))
		})
	}
}

// ServiceDesc describes NoteKeeper for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*NoteKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: handler(MethodRegister, NoteKeeperServer.Register)},
		{MethodName: "Login", Handler: handler(MethodLogin, NoteKeeperServer.Login)},
		{MethodName: "Logout", Handler: handler(MethodLogout, NoteKeeperServer.Logout)},
		{MethodName: "Whoami", Handler: handler(MethodWhoami, NoteKeeperServer.Whoami)},
		{MethodName: "CreateNote", Handler: handler(MethodCreateNote, NoteKeeperServer.CreateNote)},
		{MethodName: "GetNote", Handler: handler(MethodGetNote, NoteKeeperServer.GetNote)},
		{MethodName: "DeleteNote", Handler: handler(MethodDeleteNote, NoteKeeperServer.DeleteNote)},
		{MethodName: "ListNotes", Handler: handler(MethodListNotes, NoteKeeperServer.ListNotes)},
		{MethodName: "ListUsers", Handler: handler(MethodListUsers, NoteKeeperServer.ListUsers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notekeeper/v1/notekeeper.proto",
}

// RegisterNoteKeeperServer registers srv on s.
func RegisterNoteKeeperServer(s grpc.ServiceRegistrar, srv NoteKeeperServer) {
	s.RegisterService(&ServiceDesc, srv)
}
