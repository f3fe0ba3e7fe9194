package catalogrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"ProductCatalog/internal/product"
	"ProductCatalog/pkg/tracing"
)

// Client calls a remote catalog. Errors come back as the product sentinels, so
// callers classify them with product.KindOf exactly as they would locally.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Get(ctx context.Context, id string, includeUnavailable bool) (product.Product, error) {
	var out ProductReply
	err := c.conn.Invoke(tracing.InjectGRPC(ctx), methodGet,
		&GetRequest{ID: id, IncludeUnavailable: includeUnavailable}, &out,
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return product.Product{}, fromStatus(err)
	}
	return out.product(), nil
}

// List streams products as the server sends them. Breaking out of the loop
// cancels the stream.
func (c *Client) List(ctx context.Context, includeUnavailable bool) iter.Seq2[product.Product, error] {
	return func(yield func(product.Product, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stream, err := c.conn.NewStream(tracing.InjectGRPC(ctx), &serviceDesc.Streams[0], methodList,
			grpc.CallContentSubtype(codecName))
		if err != nil {
			yield(product.Product{}, fromStatus(err))
			return
		}
		if err := stream.SendMsg(&ListRequest{IncludeUnavailable: includeUnavailable}); err != nil {
			yield(product.Product{}, fromStatus(err))
			return
		}
		if err := stream.CloseSend(); err != nil {
			yield(product.Product{}, fromStatus(err))
			return
		}

		for {
			var out ProductReply
			err := stream.RecvMsg(&out)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(product.Product{}, fromStatus(err))
				return
			}
			if !yield(out.product(), nil) {
				return
			}
		}
	}
}

func (c *Client) Create(ctx context.Context, in product.Input) (product.Product, error) {
	var out ProductReply
	err := c.conn.Invoke(tracing.InjectGRPC(ctx), methodCreate, &CreateRequest{Product: in}, &out,
		grpc.CallContentSubtype(codecName))
	if err != nil {
		return product.Product{}, fromStatus(err)
	}
	return out.product(), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.conn.Invoke(tracing.InjectGRPC(ctx), methodDelete, &DeleteRequest{ID: id}, &Empty{},
		grpc.CallContentSubtype(codecName))
	return fromStatus(err)
}

// Check asks the remote health service whether the Products service is serving.
func (c *Client) Check(ctx context.Context) error {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("catalog %s", resp.GetStatus())
	}
	return nil
}

func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var sentinel *product.Error
	switch st.Code() {
	case codes.NotFound:
		sentinel = product.ErrNotFound
	case codes.AlreadyExists:
		sentinel = product.ErrAlreadyExists
	case codes.InvalidArgument:
		sentinel = product.ErrValidation
	case codes.DataLoss:
		sentinel = product.ErrCorruptRecord
	default:
		return err
	}
	msg := strings.TrimPrefix(st.Message(), sentinel.Error()+": ")
	return fmt.Errorf("%w: %s", sentinel, msg)
}
