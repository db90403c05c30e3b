package api

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectArchived ProjectStatus = "archived"
)

type Project struct {
	ID        string        `json:"id"`
	ClientID  string        `json:"client_id"`
	Name      string        `json:"name"`
	Status    ProjectStatus `json:"status"`
	TagIDs    []string      `json:"tag_ids"`
	TeamIDs   []string      `json:"team_ids"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type ProjectInput struct {
	ClientID string        `json:"client_id" validate:"required"`
	Name     string        `json:"name" validate:"required,max=200"`
	Status   ProjectStatus `json:"status" validate:"omitempty,oneof=active paused archived"`
	TagIDs   []string      `json:"tag_ids"`
	TeamIDs  []string      `json:"team_ids"`
}

func (c *Client) ListProjects(ctx context.Context, opts ListOptions) (*Page[Project], error) {
	var page Page[Project]
	if err := c.get(ctx, "/v1/projects", opts.query(), &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListProjects]")
	}
	return &page, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*Project, error) {
	var out Project
	if err := c.get(ctx, "/v1/projects/"+id, nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.GetProject]")
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, input ProjectInput) (*Project, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateProject] invalid payload")
	}
	var out Project
	if err := c.post(ctx, "/v1/projects", input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateProject]")
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, input ProjectInput) (*Project, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProject] invalid payload")
	}
	var out Project
	if err := c.put(ctx, "/v1/projects/"+id, input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProject]")
	}
	return &out, nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, "/v1/projects/"+id), "[Client.DeleteProject]")
}
