package fs

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weave/internal/core/ports"
)

// Node IDs of the filesystem adapters.
const (
	WalkerNodeID   graft.ID = "adapter.fs.walker"
	ResolverNodeID graft.ID = "adapter.fs.resolver"
	StoreNodeID    graft.ID = "adapter.fs.store"
	SourceNodeID   graft.ID = "adapter.fs.source"
	SinkNodeID     graft.ID = "adapter.fs.sink"
	CleanerNodeID  graft.ID = "adapter.fs.cleaner"
	CopierNodeID   graft.ID = "adapter.fs.copier"
	HasherNodeID   graft.ID = "adapter.fs.hasher"
)

func init() {
	graft.Register(graft.Node[*Walker]{
		ID:        WalkerNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Walker, error) {
			return NewWalker(), nil
		},
	})

	graft.Register(graft.Node[*Resolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(walker), nil
		},
	})

	graft.Register(graft.Node[*Store]{
		ID:        StoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{ResolverNodeID, WalkerNodeID},
		Run: func(ctx context.Context) (*Store, error) {
			resolver, err := graft.Dep[*Resolver](ctx)
			if err != nil {
				return nil, err
			}
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(OSOpener, resolver, walker), nil
		},
	})

	graft.Register(graft.Node[ports.ArtifactSource]{
		ID:        SourceNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.ArtifactSource, error) {
			return graft.Dep[*Store](ctx)
		},
	})

	graft.Register(graft.Node[ports.ArtifactSink]{
		ID:        SinkNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.ArtifactSink, error) {
			return graft.Dep[*Store](ctx)
		},
	})

	graft.Register(graft.Node[ports.Cleaner]{
		ID:        CleanerNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.Cleaner, error) {
			return graft.Dep[*Store](ctx)
		},
	})

	graft.Register(graft.Node[ports.Copier]{
		ID:        CopierNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{ResolverNodeID},
		Run: func(ctx context.Context) (ports.Copier, error) {
			resolver, err := graft.Dep[*Resolver](ctx)
			if err != nil {
				return nil, err
			}
			return NewCopier(OSOpener, resolver), nil
		},
	})

	graft.Register(graft.Node[ports.TreeHasher]{
		ID:        HasherNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{WalkerNodeID},
		Run: func(ctx context.Context) (ports.TreeHasher, error) {
			walker, err := graft.Dep[*Walker](ctx)
			if err != nil {
				return nil, err
			}
			return NewHasher(OSOpener, walker), nil
		},
	})
}
