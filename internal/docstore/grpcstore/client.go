package grpcstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"github.com/dmitrijs2005/chatsync/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a docstore.Store backed by a relay.
type Client struct {
	conn        *grpc.ClientConn
	accessToken string
	log         logging.Logger
}

func withAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) unaryInterceptor(ctx context.Context, method string, req, reply any,
	cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
	return invoker(withAccessToken(ctx, c.accessToken), method, req, reply, cc, opts...)
}

func (c *Client) streamInterceptor(ctx context.Context, desc *grpc.StreamDesc,
	cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return streamer(withAccessToken(ctx, c.accessToken), desc, cc, method, opts...)
}

// Dial connects to the relay at target. The token, when set, is attached to
// every call.
func Dial(target, accessToken string, log logging.Logger, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{accessToken: accessToken, log: log.With("module", "grpcstore")}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.unaryInterceptor),
		grpc.WithStreamInterceptor(c.streamInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), common.ErrorNotFound)
	case codes.Unauthenticated:
		if st.Message() == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrUnauthorized
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w", st.Message(), common.ErrValidation)
	}
	return err
}

func (c *Client) Subscribe(ctx context.Context, collection string) (<-chan docstore.Snapshot, error) {
	req, err := EncodeRequest(Request{Collection: collection})
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := c.conn.NewStream(streamCtx, &serviceDesc.Streams[0], MethodSubscribe)
	if err != nil {
		cancel()
		return nil, c.mapError(err)
	}
	if err := stream.SendMsg(req); err != nil {
		cancel()
		return nil, c.mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, c.mapError(err)
	}

	first, err := c.recv(stream)
	if err != nil {
		cancel()
		return nil, err
	}

	feed := docstore.NewFeed(streamCtx)
	feed.Push(first)

	go func() {
		defer cancel()
		defer feed.Close()
		for {
			snap, err := c.recv(stream)
			if err != nil {
				if streamCtx.Err() == nil {
					c.log.Error(ctx, "subscription ended", "collection", collection, "error", err)
				}
				return
			}
			feed.Push(snap)
		}
	}()
	return feed.C(), nil
}

func (c *Client) recv(stream grpc.ClientStream) (docstore.Snapshot, error) {
	msg := new(structpb.Struct)
	if err := stream.RecvMsg(msg); err != nil {
		if errors.Is(err, context.Canceled) {
			return docstore.Snapshot{}, err
		}
		return docstore.Snapshot{}, c.mapError(err)
	}
	return DecodeSnapshot(msg)
}

func (c *Client) Create(ctx context.Context, collection, id string, doc docstore.Document) (string, error) {
	req, err := EncodeRequest(Request{Collection: collection, ID: id, Doc: doc})
	if err != nil {
		return "", err
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, MethodCreate, req, out); err != nil {
		return "", c.mapError(err)
	}
	newID, _ := out.AsMap()["id"].(string)
	if newID == "" {
		return "", fmt.Errorf("create %s: relay returned no id", collection)
	}
	return newID, nil
}

func (c *Client) Replace(ctx context.Context, collection, id string, doc docstore.Document) error {
	req, err := EncodeRequest(Request{Collection: collection, ID: id, Doc: doc})
	if err != nil {
		return err
	}
	if err := c.conn.Invoke(ctx, MethodReplace, req, new(emptypb.Empty)); err != nil {
		return c.mapError(err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	req, err := EncodeRequest(Request{Collection: collection, ID: id})
	if err != nil {
		return err
	}
	if err := c.conn.Invoke(ctx, MethodDelete, req, new(emptypb.Empty)); err != nil {
		return c.mapError(err)
	}
	return nil
}

var _ docstore.Store = (*Client)(nil)
