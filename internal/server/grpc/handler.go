package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/chatsync/internal/common"
	"github.com/dmitrijs2005/chatsync/internal/docstore/grpcstore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type handler struct {
	s *GRPCServer
}

func (h *handler) Subscribe(req *structpb.Struct, stream grpc.ServerStream) error {
	ctx := stream.Context()

	r, err := grpcstore.DecodeRequest(req)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	ch, err := h.s.store.Subscribe(ctx, r.Collection)
	if err != nil {
		h.s.logger.Error(ctx, "subscribe failed", "collection", r.Collection, "error", err)
		return toStatus(err)
	}

	if h.s.hooks.SubscriptionsChanged != nil {
		h.s.hooks.SubscriptionsChanged(1)
		defer h.s.hooks.SubscriptionsChanged(-1)
	}
	h.s.logger.Debug(ctx, "subscription opened", "collection", r.Collection)

	for snap := range ch {
		msg, err := grpcstore.EncodeSnapshot(snap)
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.SendMsg(msg); err != nil {
			return err
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	return status.Error(codes.Unavailable, "store stream closed")
}

func (h *handler) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := grpcstore.DecodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if r.Doc == nil {
		return nil, status.Error(codes.InvalidArgument, "missing doc")
	}

	id, err := h.s.store.Create(ctx, r.Collection, r.ID, r.Doc)
	if err != nil {
		h.s.logger.Error(ctx, "create failed", "collection", r.Collection, "error", err)
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"id": id})
}

func (h *handler) Replace(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	r, err := grpcstore.DecodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if r.ID == "" || r.Doc == nil {
		return nil, status.Error(codes.InvalidArgument, "missing id or doc")
	}

	if err := h.s.store.Replace(ctx, r.Collection, r.ID, r.Doc); err != nil {
		h.s.logger.Error(ctx, "replace failed", "collection", r.Collection, "id", r.ID, "error", err)
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (h *handler) Delete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	r, err := grpcstore.DecodeRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if r.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing id")
	}

	if err := h.s.store.Delete(ctx, r.Collection, r.ID); err != nil {
		h.s.logger.Error(ctx, "delete failed", "collection", r.Collection, "id", r.ID, "error", err)
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
