package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/tatianab/narrator/internal/models"
	"github.com/tatianab/narrator/internal/requests"
	"github.com/tatianab/narrator/internal/router"
)

// ExecuteImmediate applies a mode transition or quest change to the
// session.
func (e *Engine) ExecuteImmediate(ctx context.Context, cmd requests.Command) (router.Result, error) {
	if err := ctx.Err(); err != nil {
		return router.Result{}, err
	}
	req, err := requestFor(cmd)
	if err != nil {
		return router.Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var summary string
	switch r := req.(type) {
	case requests.ModeTransition:
		summary, err = e.transition(r)
	case requests.QuestUpdate:
		summary, err = e.updateObjective(r)
	case requests.QuestStatus:
		summary, err = e.updateQuest(r)
	default:
		err = fmt.Errorf("%w: %s is not immediate", ErrUnsupported, cmd.Name)
	}
	if err != nil {
		return router.Result{}, err
	}
	e.log.Info("immediate command applied", "command", cmd.Name, "summary", summary)
	return router.Result{Summary: summary}, nil
}

func (e *Engine) transition(r requests.ModeTransition) (string, error) {
	mode := strings.ToUpper(strings.TrimSpace(r.TargetMode))
	if mode == "" {
		return "", fmt.Errorf("mode transition: missing target mode")
	}
	st := &e.session.State
	from := st.Mode
	st.Mode = mode

	switch mode {
	case models.ModeCombat:
		st.Enemies = st.Enemies[:0]
		for _, s := range r.Enemies {
			st.Enemies = append(st.Enemies, models.Enemy{Name: s.Name, Keywords: s.Keywords})
		}
		if r.Surprise {
			st.Flags = setFlag(st.Flags, "surprise", "true")
		}
		return fmt.Sprintf("%s -> %s with %d enemies", from, mode, len(st.Enemies)), nil
	case models.ModeNarrative:
		st.Enemies = nil
		delete(st.Flags, "surprise")
	}
	return fmt.Sprintf("%s -> %s", from, mode), nil
}

func validStatus(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case models.StatusActive, models.StatusCompleted, models.StatusFailed:
		return s, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidStatus, s)
}

func (e *Engine) checkConfidence(c float64) error {
	if c < e.opts.MinQuestConfidence {
		return fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, c, e.opts.MinQuestConfidence)
	}
	return nil
}

func (e *Engine) updateObjective(r requests.QuestUpdate) (string, error) {
	if err := e.checkConfidence(r.Confidence); err != nil {
		return "", err
	}
	status, err := validStatus(r.NewStatus)
	if err != nil {
		return "", err
	}
	q := e.session.Quest(r.QuestID)
	if q == nil {
		return "", fmt.Errorf("%w %q", ErrUnknownQuest, r.QuestID)
	}

	var obj *models.Objective
	for i := range q.Objectives {
		if strings.EqualFold(q.Objectives[i].ID, r.ObjectiveID) {
			obj = &q.Objectives[i]
			break
		}
	}
	if obj == nil {
		return "", fmt.Errorf("%w %q in quest %q", ErrUnknownObjective, r.ObjectiveID, q.ID)
	}
	obj.Status = status
	summary := fmt.Sprintf("%s: %s is %s", q.Title, obj.Description, status)

	if q.Status == models.StatusActive && allCompleted(q.Objectives) {
		q.Status = models.StatusCompleted
		summary += "; quest completed"
	}
	return summary, nil
}

func (e *Engine) updateQuest(r requests.QuestStatus) (string, error) {
	if err := e.checkConfidence(r.Confidence); err != nil {
		return "", err
	}
	status, err := validStatus(r.NewStatus)
	if err != nil {
		return "", err
	}
	q := e.session.Quest(r.QuestID)
	if q == nil {
		return "", fmt.Errorf("%w %q", ErrUnknownQuest, r.QuestID)
	}
	q.Status = status
	return fmt.Sprintf("%s is %s", q.Title, status), nil
}

func allCompleted(objs []models.Objective) bool {
	if len(objs) == 0 {
		return false
	}
	for _, o := range objs {
		if o.Status != models.StatusCompleted {
			return false
		}
	}
	return true
}

func setFlag(flags map[string]string, k, v string) map[string]string {
	if flags == nil {
		flags = map[string]string{}
	}
	flags[k] = v
	return flags
}
