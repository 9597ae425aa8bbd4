package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/weave/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/fs"        //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/shell"     //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/transform" //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/weave/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			shell.NodeID,
			logger.NodeID,
			transform.NodeID,
			fs.SourceNodeID,
			fs.SinkNodeID,
			fs.CleanerNodeID,
			fs.CopierNodeID,
			fs.HasherNodeID,
			watcher.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}
	executor, err := graft.Dep[ports.Executor](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	registry, err := graft.Dep[ports.TransformRegistry](ctx)
	if err != nil {
		return nil, err
	}
	source, err := graft.Dep[ports.ArtifactSource](ctx)
	if err != nil {
		return nil, err
	}
	sink, err := graft.Dep[ports.ArtifactSink](ctx)
	if err != nil {
		return nil, err
	}
	cleaner, err := graft.Dep[ports.Cleaner](ctx)
	if err != nil {
		return nil, err
	}
	copier, err := graft.Dep[ports.Copier](ctx)
	if err != nil {
		return nil, err
	}
	hasher, err := graft.Dep[ports.TreeHasher](ctx)
	if err != nil {
		return nil, err
	}
	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, executor, log, registry, source, sink, cleaner, copier, hasher, w), nil
}
