// Package goal implements goal and sub-goal management.
package goal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/celiscope/celiscope/internal/ai"
	"github.com/celiscope/celiscope/internal/domain"
	"github.com/celiscope/celiscope/internal/media"
	"github.com/celiscope/celiscope/internal/shared"
	"github.com/celiscope/celiscope/internal/store"
)

const smartPlaceholder = "-"

// Drafter drafts goal descriptions from templates.
type Drafter interface {
	GoalFromTemplate(ctx context.Context, in ai.TemplateInput) (ai.GoalFromTemplateResult, error)
}

// Service manages goals.
type Service struct {
	repo        store.Repository
	drafter     Drafter
	storage     media.Storage
	placeholder string
	now         func() time.Time
}

// NewService creates a goal service. placeholder is the image URL stored
// for goals created without an image.
func NewService(repo store.Repository, drafter Drafter, storage media.Storage, placeholder string) *Service {
	if placeholder == "" {
		placeholder = domain.PlaceholderImageURL
	}
	return &Service{repo: repo, drafter: drafter, storage: storage, placeholder: placeholder, now: time.Now}
}

// DecodeCreate parses the JSON "info" field of a create request.
func DecodeCreate(info string) (CreateInput, error) {
	var in CreateInput
	if info == "" {
		return in, shared.BadRequest("Поле info обязательно")
	}
	if err := json.Unmarshal([]byte(info), &in); err != nil {
		return in, shared.BadRequest(fmt.Sprintf("Ошибка парсинга JSON: %v", err))
	}
	return in, nil
}

// DecodeUpdate parses the JSON "info" field of an update request, dropping
// empty strings and nulls first.
func DecodeUpdate(info string) (UpdateInput, error) {
	var in UpdateInput
	if info == "" {
		return in, shared.BadRequest("Поле info обязательно")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(info), &fields); err != nil {
		return in, shared.BadRequest(fmt.Sprintf("Ошибка парсинга JSON: %v", err))
	}
	for k, v := range fields {
		if v == nil || v == "" {
			delete(fields, k)
		}
	}
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return in, fmt.Errorf("re-encode goal update: %w", err)
	}
	if err := json.Unmarshal(cleaned, &in); err != nil {
		return in, shared.BadRequest(fmt.Sprintf("Ошибка парсинга JSON: %v", err))
	}
	return in, nil
}

// Create validates in, drafts a description for template goals, stores the
// image and inserts the goal.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput, img *Image) (*domain.Goal, error) {
	if err := shared.Validate(in); err != nil {
		return nil, err
	}

	if in.Source == SourceTemplate && in.ShortDescription != "" && in.Description == "" {
		in.Description = s.draftDescription(ctx, in)
	}
	if in.Description == "" {
		return nil, shared.BadRequest("Описание цели обязательно. Укажите description или shortDescription")
	}

	now := s.now()
	deadline, err := domain.DeadlinePreset(in.Deadline).Resolve(now)
	if err != nil {
		return nil, shared.BadRequest(err.Error())
	}
	subGoals, err := subGoalsFrom(in.SubGoals)
	if err != nil {
		return nil, err
	}

	imageURL := in.ImageURL
	if img != nil {
		imageURL, err = s.upload(ctx, img, fmt.Sprintf("goal-%d.jpg", now.UnixMilli()))
		if err != nil {
			return nil, err
		}
	} else if imageURL == "" {
		imageURL = s.placeholder
	}

	g := &domain.Goal{
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		UrgencyLevel: domain.UrgencyLevel(orDefault(in.UrgencyLevel, string(domain.UrgencyLow))),
		Privacy:      domain.Privacy(orDefault(in.Privacy, string(domain.PrivacyPrivate))),
		Specific:     orDefault(in.Specific, smartPlaceholder),
		Measurable:   orDefault(in.Measurable, smartPlaceholder),
		Attainable:   orDefault(in.Attainable, smartPlaceholder),
		Relevant:     orDefault(in.Relevant, smartPlaceholder),
		Award:        orDefault(in.Award, smartPlaceholder),
		Deadline:     deadline,
		ImageURL:     imageURL,
		SubGoals:     subGoals,
	}
	if err := s.repo.CreateGoal(ctx, g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	slog.Info("Goal created", "user_id", userID, "goal_id", g.ID, "sub_goals", len(g.SubGoals), "source", in.Source)
	return g, nil
}

// draftDescription asks the drafter for a description and falls back to
// the short description when drafting fails.
func (s *Service) draftDescription(ctx context.Context, in CreateInput) string {
	if s.drafter == nil {
		return in.ShortDescription
	}
	res, err := s.drafter.GoalFromTemplate(ctx, ai.TemplateInput{
		Template:         in.Title,
		ShortDescription: in.ShortDescription,
		Deadline:         in.Deadline,
		Context:          in.ShortDescription,
	})
	if err != nil {
		slog.Warn("AI goal drafting failed, using short description", "error", err)
		return in.ShortDescription
	}
	if res.Description == "" {
		return in.ShortDescription
	}
	return res.Description
}

func (s *Service) upload(ctx context.Context, img *Image, key string) (string, error) {
	data, err := media.ToJPEG(img.Data, img.MIMEType)
	if err != nil {
		return "", err
	}
	url, err := s.storage.Upload(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("upload goal image: %w", err)
	}
	return url, nil
}

// List returns the user's goals.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Goal, error) {
	goals, err := s.repo.ListGoals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// ListFriends returns the public goals of the user's friends.
func (s *Service) ListFriends(ctx context.Context, userID string) ([]*domain.Goal, error) {
	friends, err := s.repo.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	ids := make([]string, 0, len(friends))
	for _, f := range friends {
		ids = append(ids, f.ID)
	}
	goals, err := s.repo.ListPublicGoals(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list friend goals: %w", err)
	}
	return goals, nil
}

// Get returns one of the user's goals.
func (s *Service) Get(ctx context.Context, userID string, goalID int64) (*domain.Goal, error) {
	g, err := s.repo.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if g == nil || g.UserID != userID {
		return nil, shared.NotFound("Цель не найдена")
	}
	return g, nil
}

// Update applies in to a goal owned by the user. Sub-goals are matched by
// description: matches keep their completion state, new ones are created
// and unmatched stored ones are deleted.
func (s *Service) Update(ctx context.Context, userID string, goalID int64, in UpdateInput, img *Image) (*domain.Goal, error) {
	if err := shared.Validate(in); err != nil {
		return nil, err
	}
	g, err := s.owned(ctx, userID, goalID, "Goal not found", "Not authorized to update this goal")
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := in.apply(g, now); err != nil {
		return nil, err
	}
	if img != nil {
		url, err := s.upload(ctx, img, fmt.Sprintf("goal-%d.jpg", now.UnixMilli()))
		if err != nil {
			return nil, err
		}
		g.ImageURL = url
	}

	var removed []int64
	if in.SubGoals != nil {
		removed, err = mergeSubGoals(g, in.SubGoals)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateGoal(ctx, g, removed); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, shared.NotFound("Goal not found")
		}
		return nil, fmt.Errorf("update goal: %w", err)
	}
	slog.Info("Goal updated", "user_id", userID, "goal_id", g.ID, "removed_sub_goals", len(removed))
	return g, nil
}

// mergeSubGoals replaces g.SubGoals with the submitted list and returns
// the IDs of stored sub-goals that are no longer present.
func mergeSubGoals(g *domain.Goal, submitted []SubGoalInput) ([]int64, error) {
	existing := make(map[string]domain.SubGoal, len(g.SubGoals))
	for _, sg := range g.SubGoals {
		existing[sg.Description] = sg
	}

	incoming, err := subGoalsFrom(submitted)
	if err != nil {
		return nil, err
	}
	kept := make(map[int64]bool, len(incoming))
	merged := make([]domain.SubGoal, 0, len(incoming))
	for _, sg := range incoming {
		if old, ok := existing[sg.Description]; ok && !kept[old.ID] {
			old.Deadline = sg.Deadline
			kept[old.ID] = true
			merged = append(merged, old)
			continue
		}
		merged = append(merged, sg)
	}

	var removed []int64
	for _, sg := range g.SubGoals {
		if !kept[sg.ID] {
			removed = append(removed, sg.ID)
		}
	}
	g.SubGoals = merged
	return removed, nil
}

// Complete closes a goal with a proof image.
func (s *Service) Complete(ctx context.Context, userID string, goalID int64, img *Image) (*domain.Goal, error) {
	if img == nil {
		return nil, shared.BadRequest("Необходимо загрузить изображение для закрытия цели")
	}
	g, err := s.owned(ctx, userID, goalID, "Goal not found", "Not authorized to complete this goal")
	if err != nil {
		return nil, err
	}

	now := s.now()
	url, err := s.upload(ctx, img, fmt.Sprintf("goal-%d-%d.jpg", goalID, now.UnixMilli()))
	if err != nil {
		return nil, err
	}
	g.ImageURL = url
	g.IsCompleted = true
	g.CompletedAt = &now

	if err := s.repo.UpdateGoal(ctx, g, nil); err != nil {
		return nil, fmt.Errorf("complete goal: %w", err)
	}
	slog.Info("Goal completed", "user_id", userID, "goal_id", goalID)
	return g, nil
}

// CompleteSubGoal marks a sub-goal of the user's goal as done.
func (s *Service) CompleteSubGoal(ctx context.Context, userID string, subGoalID int64) (*domain.SubGoal, error) {
	return s.setSubGoal(ctx, userID, subGoalID, true, "Not authorized to complete this sub-goal")
}

// UncompleteSubGoal reopens a sub-goal of the user's goal.
func (s *Service) UncompleteSubGoal(ctx context.Context, userID string, subGoalID int64) (*domain.SubGoal, error) {
	return s.setSubGoal(ctx, userID, subGoalID, false, "Not authorized to uncomplete this sub-goal")
}

func (s *Service) setSubGoal(ctx context.Context, userID string, subGoalID int64, completed bool, forbidden string) (*domain.SubGoal, error) {
	sg, err := s.repo.GetSubGoal(ctx, subGoalID)
	if err != nil {
		return nil, fmt.Errorf("get sub-goal: %w", err)
	}
	if sg == nil {
		return nil, shared.NotFound("Sub-goal not found")
	}
	g, err := s.repo.GetGoal(ctx, sg.GoalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if g == nil {
		return nil, shared.NotFound("Sub-goal not found")
	}
	if g.UserID != userID {
		return nil, shared.Forbidden(forbidden)
	}

	now := s.now()
	if err := s.repo.SetSubGoalCompleted(ctx, subGoalID, completed, now); err != nil {
		return nil, fmt.Errorf("set sub-goal completion: %w", err)
	}
	sg.IsCompleted = completed
	sg.CompletedAt = nil
	if completed {
		sg.CompletedAt = &now
	}
	sg.UpdatedAt = now
	return sg, nil
}

func (s *Service) owned(ctx context.Context, userID string, goalID int64, notFound, forbidden string) (*domain.Goal, error) {
	g, err := s.repo.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if g == nil {
		return nil, shared.NotFound(notFound)
	}
	if g.UserID != userID {
		return nil, shared.Forbidden(forbidden)
	}
	return g, nil
}
