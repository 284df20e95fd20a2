// File path: internal/sync/orchestrator.go

// Package sync reconciles the Carlos and DBText exports against the
// Cortex DAM. Each run loads the exports, walks them in dependency
// order, and issues the minimal remote operations: people before
// programs, programs before the works performed on them, containers
// before their children. Failures on one entity are logged and the run
// moves on.
package sync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nyparchive/cortex-sync/internal/common"
	"github.com/nyparchive/cortex-sync/internal/config"
	"github.com/nyparchive/cortex-sync/internal/cortex"
	"github.com/nyparchive/cortex-sync/internal/solr"
)

// Stages selects which reconciliation passes a run performs.
type Stages struct {
	Sources         bool
	ProgramFolders  bool
	ProgramMetadata bool
	ProgramSources  bool
	ProgramWorks    bool
	Library         bool
	BusinessRecords bool
	Visibility      bool
}

// AllStages enables every pass except the visibility sweep, which is
// opt-in.
func AllStages() Stages {
	return Stages{
		Sources:         true,
		ProgramFolders:  true,
		ProgramMetadata: true,
		ProgramSources:  true,
		ProgramWorks:    true,
		Library:         true,
		BusinessRecords: true,
	}
}

// Syncer drives one reconciliation run.
type Syncer struct {
	cfg    *config.Config
	client *cortex.Client
	solr   *solr.Client
	exec   *cortex.Executor
	cache  *RunCache
	names  *identityResolver
	logger *slog.Logger
}

// New wires a Syncer with a fresh run cache.
func New(cfg *config.Config, client *cortex.Client, solrClient *solr.Client, exec *cortex.Executor) *Syncer {
	return &Syncer{
		cfg:    cfg,
		client: client,
		solr:   solrClient,
		exec:   exec,
		cache:  NewRunCache(),
		logger: common.Logger(),
	}
}

// Run executes the enabled passes in dependency order. A pass that
// cannot load its input contributes an error but does not stop later
// passes.
func (s *Syncer) Run(ctx context.Context, stages Stages) error {
	type pass struct {
		name    string
		enabled bool
		run     func(context.Context) error
	}
	passes := []pass{
		{"sources", stages.Sources, s.SyncSources},
		{"program folders", stages.ProgramFolders, s.SyncProgramFolders},
		{"program metadata", stages.ProgramMetadata, s.SyncProgramMetadata},
		{"program sources", stages.ProgramSources, s.SyncProgramSources},
		{"program works", stages.ProgramWorks, s.SyncProgramWorks},
		{"printed music", stages.Library, s.SyncLibrary},
		{"business records", stages.BusinessRecords, s.SyncBusinessRecords},
		{"visibility sweep", stages.Visibility, s.SweepVisibility},
	}
	var errs []error
	for _, p := range passes {
		if !p.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		s.logger.Info("sync: starting pass", "pass", p.name)
		if err := p.run(ctx); err != nil {
			s.logger.Error("sync: pass failed", "pass", p.name, "error", err)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("sync: pass complete", "pass", p.name)
	}
	return errors.Join(errs...)
}

// apply sends one remote mutation through the executor and reports
// whether it succeeded. Failures are already logged and audited by the
// executor; callers continue either way.
func (s *Syncer) apply(ctx context.Context, req *cortex.Request, id, desc string) bool {
	outcome := s.exec.Do(ctx, cortex.Operation{
		Entity: req.Entity,
		ID:     id,
		Desc:   desc,
		Call: func(ctx context.Context) error {
			return s.client.Apply(ctx, req)
		},
	})
	return outcome.OK()
}
