package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"catalog-builder-service/internal/slug"
	"catalog-builder-service/internal/store"
	"catalog-builder-service/internal/storefront"
)

const getPublicCatalogMethod = "/catalog.v1.PublicCatalogService/GetPublicCatalog"

// PublicCatalogServer is the server API of catalog.v1.PublicCatalogService.
type PublicCatalogServer interface {
	GetPublicCatalog(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// PublicCatalogServiceDesc describes catalog.v1.PublicCatalogService. The
// messages are well-known types, so no generated code is needed.
var PublicCatalogServiceDesc = grpc.ServiceDesc{
	ServiceName: "catalog.v1.PublicCatalogService",
	HandlerType: (*PublicCatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetPublicCatalog",
			Handler:    getPublicCatalogHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/public_catalog.proto",
}

func getPublicCatalogHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(PublicCatalogServer).GetPublicCatalog(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getPublicCatalogMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(PublicCatalogServer).GetPublicCatalog(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterPublicCatalogServer registers srv with s.
func RegisterPublicCatalogServer(s grpc.ServiceRegistrar, srv PublicCatalogServer) {
	s.RegisterService(&PublicCatalogServiceDesc, srv)
}

// PublicCatalogClient calls catalog.v1.PublicCatalogService.
type PublicCatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewPublicCatalogClient(cc grpc.ClientConnInterface) *PublicCatalogClient {
	return &PublicCatalogClient{cc: cc}
}

func (c *PublicCatalogClient) GetPublicCatalog(ctx context.Context, catalogSlug string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getPublicCatalogMethod, wrapperspb.String(catalogSlug), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCHandler serves the public storefront over gRPC for internal callers
// such as server-side renderers.
type GRPCHandler struct {
	pages PageRenderer
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(pages PageRenderer) *GRPCHandler {
	return &GRPCHandler{pages: pages}
}

// --- Helper: Error Mapping ---
func mapStoreErrorToGrpcStatus(err error, catalogSlug string) error {
	if errors.Is(err, store.ErrCatalogNotFound) {
		return status.Errorf(codes.NotFound, "catalog %q not found", catalogSlug)
	}
	zap.S().Errorf("gRPC GetPublicCatalog failed for %q: %v", catalogSlug, err)
	return status.Errorf(codes.Internal, "failed to load catalog %q", catalogSlug)
}

func (g *GRPCHandler) GetPublicCatalog(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	catalogSlug := req.GetValue()
	if !slug.Valid(catalogSlug) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid catalog slug %q", catalogSlug)
	}
	page, err := g.pages.Page(ctx, catalogSlug)
	if err != nil {
		return nil, mapStoreErrorToGrpcStatus(err, catalogSlug)
	}
	out, err := pageToStruct(page)
	if err != nil {
		zap.S().Errorf("gRPC GetPublicCatalog failed to convert page %q: %v", catalogSlug, err)
		return nil, status.Errorf(codes.Internal, "failed to encode catalog %q", catalogSlug)
	}
	return out, nil
}

// pageToStruct converts the page through its JSON form so both transports
// return the same document.
func pageToStruct(page *storefront.Page) (*structpb.Struct, error) {
	data, err := json.Marshal(page)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// UnaryLoggingInterceptor logs every unary call with its status code and latency.
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Info("grpc request", fields...)
		case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
			logger.Error("grpc request", append(fields, zap.Error(err))...)
		default:
			logger.Warn("grpc request", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
