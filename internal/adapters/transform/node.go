package transform

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weave/internal/adapters/shell"
	"go.trai.ch/weave/internal/core/ports"
)

// NodeID is the unique identifier for the transform registry Graft node.
const NodeID graft.ID = "adapter.transform_registry"

func init() {
	graft.Register(graft.Node[ports.TransformRegistry]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{shell.NodeID},
		Run: func(ctx context.Context) (ports.TransformRegistry, error) {
			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}
			return NewDefaultRegistry(executor), nil
		},
	})
}
