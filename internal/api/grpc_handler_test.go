package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"catalog-builder-service/internal/store"
)

func setupBufconnServer(t *testing.T, pages PageRenderer, logger *zap.Logger) *PublicCatalogClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryLoggingInterceptor(logger)))
	RegisterPublicCatalogServer(s, NewGRPCHandler(pages))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPublicCatalogClient(conn)
}

func TestGRPCHandler_GetPublicCatalog(t *testing.T) {
	pages := new(MockPageRenderer)
	pages.On("Page", mock.Anything, "summer").Return(samplePage(), nil).Once()
	core, logs := observer.New(zap.InfoLevel)
	client := setupBufconnServer(t, pages, zap.New(core))

	out, err := client.GetPublicCatalog(context.Background(), "summer")

	require.NoError(t, err)
	catalog := out.GetFields()["catalog"].GetStructValue()
	require.NotNil(t, catalog)
	assert.Equal(t, "Summer", catalog.GetFields()["name"].GetStringValue())
	sections := out.GetFields()["nav_sections"].GetListValue().GetValues()
	require.Len(t, sections, 1)
	assert.Equal(t, "Drinks", sections[0].GetStructValue().GetFields()["title"].GetStringValue())

	entries := logs.FilterField(zap.String("method", getPublicCatalogMethod)).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "OK", entries[0].ContextMap()["code"])
	pages.AssertExpectations(t)
}

func TestGRPCHandler_GetPublicCatalog_Errors(t *testing.T) {
	pages := new(MockPageRenderer)
	pages.On("Page", mock.Anything, "winter").Return(nil, store.ErrCatalogNotFound).Once()
	pages.On("Page", mock.Anything, "broken").Return(nil, assert.AnError).Once()
	client := setupBufconnServer(t, pages, zap.NewNop())

	tests := []struct {
		slug string
		code codes.Code
	}{
		{"winter", codes.NotFound},
		{"broken", codes.Internal},
		{"Not A Slug", codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			_, err := client.GetPublicCatalog(context.Background(), tt.slug)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
	pages.AssertExpectations(t)
}
