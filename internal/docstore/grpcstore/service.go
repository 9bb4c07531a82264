// Package grpcstore carries the document store over gRPC so that clients can
// share one backend through the relay.
//
// Messages are google.protobuf.Struct values; the service descriptor is
// declared here instead of generated.
package grpcstore

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/chatsync/internal/docstore"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "chatsync.docstore.DocumentStore"

const (
	MethodSubscribe = "/" + ServiceName + "/Subscribe"
	MethodCreate    = "/" + ServiceName + "/Create"
	MethodReplace   = "/" + ServiceName + "/Replace"
	MethodDelete    = "/" + ServiceName + "/Delete"
)

// DocumentServer is implemented by the relay.
type DocumentServer interface {
	Subscribe(*structpb.Struct, grpc.ServerStream) error
	Create(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Replace(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Delete(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

func RegisterDocumentServer(s grpc.ServiceRegistrar, srv DocumentServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocumentServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Create", Handler: createHandler},
		{MethodName: "Replace", Handler: replaceHandler},
		{MethodName: "Delete", Handler: deleteHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentServer).Subscribe(in, stream)
}

func createHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServer).Create(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodCreate}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServer).Create(ctx, req.(*structpb.Struct))
	})
}

func replaceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServer).Replace(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodReplace}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServer).Replace(ctx, req.(*structpb.Struct))
	})
}

func deleteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DocumentServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodDelete}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(DocumentServer).Delete(ctx, req.(*structpb.Struct))
	})
}

// Request is the decoded form of every request message.
type Request struct {
	Collection string
	ID         string
	Doc        docstore.Document
}

func EncodeRequest(r Request) (*structpb.Struct, error) {
	fields := map[string]any{"collection": r.Collection}
	if r.ID != "" {
		fields["id"] = r.ID
	}
	if r.Doc != nil {
		doc, err := docstore.Marshal(r.Doc)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		fields["doc"] = map[string]any(doc)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

func DecodeRequest(s *structpb.Struct) (Request, error) {
	m := s.AsMap()
	r := Request{}
	r.Collection, _ = m["collection"].(string)
	r.ID, _ = m["id"].(string)
	if r.Collection == "" {
		return Request{}, fmt.Errorf("decode request: missing collection")
	}
	if raw, ok := m["doc"]; ok {
		doc, ok := raw.(map[string]any)
		if !ok {
			return Request{}, fmt.Errorf("decode request: doc is %T", raw)
		}
		r.Doc = doc
	}
	return r, nil
}

func EncodeSnapshot(snap docstore.Snapshot) (*structpb.Struct, error) {
	records := make([]any, 0, len(snap.Records))
	for _, rec := range snap.Records {
		doc, err := docstore.Marshal(rec.Doc)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		if doc == nil {
			doc = docstore.Document{}
		}
		records = append(records, map[string]any{"id": rec.ID, "doc": map[string]any(doc)})
	}
	s, err := structpb.NewStruct(map[string]any{"collection": snap.Collection, "records": records})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return s, nil
}

func DecodeSnapshot(s *structpb.Struct) (docstore.Snapshot, error) {
	m := s.AsMap()
	snap := docstore.Snapshot{Records: []docstore.Record{}}
	snap.Collection, _ = m["collection"].(string)

	raw, _ := m["records"].([]any)
	for i, r := range raw {
		rec, ok := r.(map[string]any)
		if !ok {
			return docstore.Snapshot{}, fmt.Errorf("decode snapshot: record %d is %T", i, r)
		}
		id, _ := rec["id"].(string)
		doc, _ := rec["doc"].(map[string]any)
		if doc == nil {
			doc = map[string]any{}
		}
		snap.Records = append(snap.Records, docstore.Record{ID: id, Doc: doc})
	}
	return snap, nil
}

// ServerHooks observes relay traffic. Nil fields are skipped.
type ServerHooks struct {
	Request              func(method, code string)
	SubscriptionsChanged func(delta int)
}
