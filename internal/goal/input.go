package goal

import (
	"time"

	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/shared"
)

// SourceTemplate marks a goal created from an AI template.
const SourceTemplate = "template"

// SubGoalInput is a sub-goal as submitted by the client.
type SubGoalInput struct {
	Description string `json:"description" validate:"required,min=1,max=250"`
	Deadline    string `json:"deadline" validate:"required,isodate"`
}

// CreateInput is the "info" payload of goal creation. Description may be
// left empty for template goals that carry a shortDescription.
type CreateInput struct {
	Source           string         `json:"source" validate:"omitempty,oneof=template manual"`
	Title            string         `json:"title" validate:"required,min=1,max=100"`
	Description      string         `json:"description" validate:"max=2000"`
	ShortDescription string         `json:"shortDescription" validate:"max=200"`
	UrgencyLevel     string         `json:"urgencyLevel" validate:"omitempty,oneof=LOW AVERAGE HIGH"`
	Privacy          string         `json:"privacy" validate:"omitempty,oneof=PRIVATE PUBLIC"`
	Specific         string         `json:"specific" validate:"max=1000"`
	Measurable       string         `json:"measurable" validate:"max=1000"`
	Attainable       string         `json:"attainable" validate:"max=1000"`
	Relevant         string         `json:"relevant" validate:"max=1000"`
	Award            string         `json:"award" validate:"max=1000"`
	Deadline         string         `json:"deadline" validate:"required,oneof=3_MONTHS 6_MONTHS 1_YEAR"`
	ImageURL         string         `json:"imageUrl" validate:"omitempty,url"`
	SubGoals         []SubGoalInput `json:"subGoals" validate:"dive"`
}

// UpdateInput is the "info" payload of a goal update. Nil fields keep
// their stored value; a nil SubGoals leaves sub-goals untouched.
type UpdateInput struct {
	Title        *string        `json:"title" validate:"omitempty,min=1,max=100"`
	Description  *string        `json:"description" validate:"omitempty,min=1,max=2000"`
	UrgencyLevel *string        `json:"urgencyLevel" validate:"omitempty,oneof=LOW AVERAGE HIGH"`
	Privacy      *string        `json:"privacy" validate:"omitempty,oneof=PRIVATE PUBLIC"`
	Specific     *string        `json:"specific" validate:"omitempty,max=1000"`
	Measurable   *string        `json:"measurable" validate:"omitempty,max=1000"`
	Attainable   *string        `json:"attainable" validate:"omitempty,max=1000"`
	Relevant     *string        `json:"relevant" validate:"omitempty,max=1000"`
	Award        *string        `json:"award" validate:"omitempty,max=1000"`
	Deadline     *string        `json:"deadline" validate:"omitempty,oneof=3_MONTHS 6_MONTHS 1_YEAR"`
	ImageURL     *string        `json:"imageUrl" validate:"omitempty,url"`
	SubGoals     []SubGoalInput `json:"subGoals" validate:"omitempty,dive"`
}

// Image is an uploaded image file.
type Image struct {
	Data     []byte
	MIMEType string
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func subGoalsFrom(in []SubGoalInput) ([]domain.SubGoal, error) {
	out := make([]domain.SubGoal, 0, len(in))
	for _, sg := range in {
		deadline, err := shared.ParseISOTime(sg.Deadline)
		if err != nil {
			return nil, shared.BadRequest(err.Error())
		}
		out = append(out, domain.SubGoal{Description: sg.Description, Deadline: deadline})
	}
	return out, nil
}

// apply copies the set fields of in onto g. Deadline presets resolve
// relative to now.
func (in UpdateInput) apply(g *domain.Goal, now time.Time) error {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&g.Title, in.Title)
	set(&g.Description, in.Description)
	set(&g.Specific, in.Specific)
	set(&g.Measurable, in.Measurable)
	set(&g.Attainable, in.Attainable)
	set(&g.Relevant, in.Relevant)
	set(&g.Award, in.Award)
	set(&g.ImageURL, in.ImageURL)
	if in.UrgencyLevel != nil {
		g.UrgencyLevel = domain.UrgencyLevel(*in.UrgencyLevel)
	}
	if in.Privacy != nil {
		g.Privacy = domain.Privacy(*in.Privacy)
	}
	if in.Deadline != nil {
		deadline, err := domain.DeadlinePreset(*in.Deadline).Resolve(now)
		if err != nil {
			return shared.BadRequest(err.Error())
		}
		g.Deadline = deadline
	}
	return nil
}
