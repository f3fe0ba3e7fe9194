package catalogrpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/product"
	"ProductCatalog/pkg/tracing"
)

const (
	ServiceName = "catalog.Products"

	methodGet    = "/" + ServiceName + "/Get"
	methodList   = "/" + ServiceName + "/List"
	methodCreate = "/" + ServiceName + "/Create"
	methodDelete = "/" + ServiceName + "/Delete"
)

type productsServer interface {
	Get(context.Context, *GetRequest) (*ProductReply, error)
	List(*ListRequest, grpc.ServerStreamingServer[ProductReply]) error
	Create(context.Context, *CreateRequest) (*ProductReply, error)
	Delete(context.Context, *DeleteRequest) (*Empty, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*productsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Get", Handler: unaryHandler(methodGet, productsServer.Get)},
		{MethodName: "Create", Handler: unaryHandler(methodCreate, productsServer.Create)},
		{MethodName: "Delete", Handler: unaryHandler(methodDelete, productsServer.Delete)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "List", Handler: listHandler, ServerStreams: true},
	},
	Metadata: "catalog/products",
}

func unaryHandler[Req, Resp any](fullMethod string, call func(productsServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(productsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(productsServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func listHandler(srv any, stream grpc.ServerStream) error {
	in := new(ListRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(productsServer).List(in, &grpc.GenericServerStream[ListRequest, ProductReply]{ServerStream: stream})
}

// Server adapts the catalog service to the Products gRPC service.
type Server struct {
	svc *catalog.Service
}

func NewServer(svc *catalog.Service) *Server {
	return &Server{svc: svc}
}

func (s *Server) Get(ctx context.Context, req *GetRequest) (*ProductReply, error) {
	p, err := s.svc.Get(ctx, req.ID, req.IncludeUnavailable)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(p), nil
}

func (s *Server) List(req *ListRequest, stream grpc.ServerStreamingServer[ProductReply]) error {
	for p, err := range s.svc.List(stream.Context(), req.IncludeUnavailable) {
		if err != nil {
			return toStatus(err)
		}
		if err := stream.Send(reply(p)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) Create(ctx context.Context, req *CreateRequest) (*ProductReply, error) {
	p, err := s.svc.Create(ctx, req.Product)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(p), nil
}

func (s *Server) Delete(ctx context.Context, req *DeleteRequest) (*Empty, error) {
	if err := s.svc.Delete(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// Register installs the Products service and a health service reporting it as
// serving. The returned health server lets the caller flip it on shutdown.
func Register(gs *grpc.Server, srv *Server) *health.Server {
	gs.RegisterService(&serviceDesc, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return hs
}

// NewGRPCServer returns a server that logs every call and continues traces
// started by the caller.
func NewGRPCServer(log *zap.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryLogging(log)),
		grpc.ChainStreamInterceptor(streamLogging(log)),
	)
}

func unaryLogging(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(tracing.ExtractGRPC(ctx), req)
		logCall(log, info.FullMethod, start, err)
		return resp, err
	}
}

type tracedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *tracedStream) Context() context.Context { return s.ctx }

func streamLogging(log *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, &tracedStream{ServerStream: ss, ctx: tracing.ExtractGRPC(ss.Context())})
		logCall(log, info.FullMethod, start, err)
		return err
	}
}

func logCall(log *zap.Logger, method string, start time.Time, err error) {
	code := status.Code(err)
	lvl := zap.InfoLevel
	switch code {
	case codes.Internal, codes.DataLoss, codes.Unknown:
		lvl = zap.ErrorLevel
	}
	log.Log(lvl, "grpc",
		zap.String("method", method),
		zap.String("code", code.String()),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
}

func toStatus(err error) error {
	code := codes.Internal
	switch product.KindOf(err) {
	case product.KindNotFound:
		code = codes.NotFound
	case product.KindAlreadyExists:
		code = codes.AlreadyExists
	case product.KindValidation:
		code = codes.InvalidArgument
	case product.KindCorruptRecord:
		code = codes.DataLoss
	}
	return status.Error(code, err.Error())
}
