package replicator

import (
	"context"
	"time"

	"github.com/xia0pin9/rocksplicator/internal/registry"
	"github.com/xia0pin9/rocksplicator/internal/replicator/pb"
)

// handler is the server side of the Replicator service. One handler serves
// every shard registered with its Replicator.
type handler struct {
	pb.UnimplementedReplicatorServer
	shards *registry.Map[*ReplicatedDB]
}

func (h *handler) GetUpdates(ctx context.Context, req *pb.GetUpdatesRequest) (*pb.GetUpdatesResponse, error) {
	start := time.Now()

	db, ok := h.shards.Get(req.GetShard())
	if !ok {
		return &pb.GetUpdatesResponse{
			FromSeq:  req.GetFromSeq(),
			ToSeq:    req.GetFromSeq(),
			Code:     pb.ResponseCode_SHARD_NOT_FOUND,
			ErrorMsg: "shard " + req.GetShard() + " is not hosted here",
		}, nil
	}
	db.Retain()
	defer db.Release()
	if db.isShutdown() {
		return &pb.GetUpdatesResponse{
			FromSeq:  req.GetFromSeq(),
			ToSeq:    req.GetFromSeq(),
			Code:     pb.ResponseCode_SHARD_NOT_FOUND,
			ErrorMsg: "shard " + req.GetShard() + " is shutting down",
		}, nil
	}

	follower := req.GetCallerRole() == pb.CallerRole_FOLLOWER
	payloads, toSeq := db.getUpdates(ctx.Done(), req.GetFromSeq(), req.GetMaxWaitMs(), follower)
	metricReplyUpdatesLatency.WithLabelValues(db.name).Observe(time.Since(start).Seconds())

	return &pb.GetUpdatesResponse{
		FromSeq:  req.GetFromSeq(),
		ToSeq:    toSeq,
		Payloads: payloads,
		Code:     pb.ResponseCode_OK,
	}, nil
}
