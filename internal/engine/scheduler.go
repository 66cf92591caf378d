package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// Scheduler fires schedule-node triggers for active workflows. It is a
// convenience dispatcher for deployments without an external trigger
// service; entries are rebuilt from the database on an interval so
// activations and pauses take effect without restarts.
type Scheduler struct {
	workflows  usecase.WorkflowRepository
	graphs     GraphProvider
	dispatcher *Dispatcher
	logger     zerolog.Logger

	refreshEvery time.Duration
	cron         *cron.Cron
	entries      []cron.EntryID
}

// NewScheduler creates a new Scheduler.
func NewScheduler(
	workflows usecase.WorkflowRepository,
	graphs GraphProvider,
	dispatcher *Dispatcher,
	logger zerolog.Logger,
	refreshEvery time.Duration,
) *Scheduler {
	if refreshEvery <= 0 {
		refreshEvery = time.Minute
	}

	return &Scheduler{
		workflows:    workflows,
		graphs:       graphs,
		dispatcher:   dispatcher,
		logger:       logger,
		refreshEvery: refreshEvery,
		cron:         cron.New(),
	}
}

// Run loads schedules, starts the cron loop, and refreshes entries until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.refresh(ctx); err != nil {
		s.logger.Error().Err(err).Msg("initial schedule refresh failed")
	}

	s.cron.Start()
	defer s.cron.Stop()

	ticker := time.NewTicker(s.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				s.logger.Error().Err(err).Msg("schedule refresh failed")
			}
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) error {
	workflows, err := s.workflows.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	for _, workflow := range workflows {
		graph, err := s.graphs.GetGraph(ctx, workflow.ID, workflow.Version)
		if err != nil {
			s.logger.Error().Err(err).Str("workflow_id", workflow.ID).Msg("failed to load graph for scheduling")
			continue
		}

		for _, node := range graph.Nodes {
			if node.Kind != domain.NodeKindSchedule {
				continue
			}

			spec := node.Schedule.Cron
			if node.Schedule.Timezone != "" {
				spec = fmt.Sprintf("CRON_TZ=%s %s", node.Schedule.Timezone, spec)
			}

			workflowID := workflow.ID
			version := workflow.Version

			entryID, err := s.cron.AddFunc(spec, func() {
				_, err := s.dispatcher.StartExecution(context.Background(), workflowID, version, domain.TriggerContext{
					Type:    domain.TriggerTypeSchedule,
					FiredAt: time.Now().UTC(),
				})
				if err != nil {
					s.logger.Error().Err(err).Str("workflow_id", workflowID).Msg("scheduled trigger failed to start execution")
				}
			})
			if err != nil {
				// Activation validated the cron spec; a parse failure here
				// means the stored document was edited out of band.
				s.logger.Error().Err(err).Str("workflow_id", workflowID).Str("spec", spec).Msg("invalid schedule spec")
				continue
			}

			s.entries = append(s.entries, entryID)
		}
	}

	s.logger.Debug().Int("entries", len(s.entries)).Msg("schedules refreshed")

	return nil
}
