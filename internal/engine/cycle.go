package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seatsniper/seatsniper/internal/classify"
	"github.com/seatsniper/seatsniper/internal/domain"
)

// searchPhase looks up every pending course. Courses the portal cannot find
// become Unavailable and leave the pending set once the pass is over; found
// courses stay staged for the enroll phase.
func (e *Engine) searchPhase(ctx context.Context, st *run, log zerolog.Logger) error {
	var resolved []domain.CourseID
	defer func() { st.roster.Prune(resolved) }()

	for _, id := range st.roster.Pending() {
		res, err := e.portal.SearchAndStage(ctx, id)
		if err != nil {
			if e.fatal(ctx, err) {
				return fmt.Errorf("searching %s: %w", id, err)
			}
			log.Warn().Err(err).Str("course", string(id)).Msg("search failed, treating course as unavailable")
			res = SearchResult{}
		}

		if !res.Found {
			if err := e.record(st, id, domain.Unavailable(), log); err != nil {
				return err
			}
			resolved = append(resolved, id)
			continue
		}

		if name := normalizeName(res.DisplayName); name != "" {
			st.roster.SetName(id, name)
		}
	}
	return nil
}

// enrollPhase submits the staged courses and classifies each result block.
// A course with no block is NotFoundInResults; terminal outcomes leave the
// pending set after the pass.
func (e *Engine) enrollPhase(ctx context.Context, st *run, log zerolog.Logger) error {
	staged := st.roster.Pending()
	if len(staged) == 0 {
		return nil
	}

	results, err := e.portal.SubmitAndCollectResults(ctx)
	if err != nil {
		if e.fatal(ctx, err) {
			return fmt.Errorf("submitting enrollment: %w", err)
		}
		log.Warn().Err(err).Int("staged", len(staged)).Msg("submit failed, no results collected")
		results = nil
	}

	var resolved []domain.CourseID
	for _, id := range staged {
		outcome := domain.NotFoundInResults()
		if raw, ok := results[id]; ok {
			outcome = classify.Classify(raw)
		}
		if err := e.record(st, id, outcome, log); err != nil {
			st.roster.Prune(resolved)
			return err
		}
		if outcome.Terminal() {
			resolved = append(resolved, id)
		}
	}
	st.roster.Prune(resolved)
	return nil
}

func (e *Engine) record(st *run, id domain.CourseID, outcome domain.Outcome, log zerolog.Logger) error {
	rec, err := st.roster.Record(id, outcome)
	if err != nil {
		return err
	}

	ev := log.Debug()
	if outcome.Terminal() {
		ev = log.Info()
	}
	ev.Int("round", st.round).
		Str("course", string(id)).
		Str("outcome", outcome.Kind.String()).
		Str("class", classify.ClassOf(outcome).String()).
		Msg(outcome.Label())

	e.observer.CourseUpdated(st.round, rec)
	return nil
}

// normalizeName joins the non-blank lines of a multi-line portal title with " - "
func normalizeName(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " - ")
}
