package api

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Minute is one meeting-minutes document.
type Minute struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Title     string    `json:"title"`
	HeldAt    time.Time `json:"held_at"`
	Attendees []string  `json:"attendees"`
	Body      string    `json:"body"`
	Decisions []string  `json:"decisions"`
	TagIDs    []string  `json:"tag_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MinuteInput struct {
	ProjectID string    `json:"project_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=300"`
	HeldAt    time.Time `json:"held_at" validate:"required"`
	Attendees []string  `json:"attendees"`
	Body      string    `json:"body"`
	Decisions []string  `json:"decisions"`
	TagIDs    []string  `json:"tag_ids"`
}

func (c *Client) ListMinutes(ctx context.Context, opts ListOptions) (*Page[Minute], error) {
	var page Page[Minute]
	if err := c.get(ctx, "/v1/minutes", opts.query(), &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListMinutes]")
	}
	return &page, nil
}

// ListProjectMinutes lists the minutes held for one project.
func (c *Client) ListProjectMinutes(ctx context.Context, projectID string, opts ListOptions) (*Page[Minute], error) {
	var page Page[Minute]
	if err := c.get(ctx, "/v1/projects/"+projectID+"/minutes", opts.query(), &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListProjectMinutes]")
	}
	return &page, nil
}

func (c *Client) GetMinute(ctx context.Context, id string) (*Minute, error) {
	var out Minute
	if err := c.get(ctx, "/v1/minutes/"+id, nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.GetMinute]")
	}
	return &out, nil
}

func (c *Client) CreateMinute(ctx context.Context, input MinuteInput) (*Minute, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateMinute] invalid payload")
	}
	var out Minute
	if err := c.post(ctx, "/v1/minutes", input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateMinute]")
	}
	return &out, nil
}

func (c *Client) UpdateMinute(ctx context.Context, id string, input MinuteInput) (*Minute, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateMinute] invalid payload")
	}
	var out Minute
	if err := c.put(ctx, "/v1/minutes/"+id, input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateMinute]")
	}
	return &out, nil
}

func (c *Client) DeleteMinute(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, "/v1/minutes/"+id), "[Client.DeleteMinute]")
}
