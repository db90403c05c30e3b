package api

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type TeamMember struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type Team struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Members   []TeamMember `json:"members"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type TeamInput struct {
	Name    string   `json:"name" validate:"required,max=120"`
	UserIDs []string `json:"user_ids"`
}

func (c *Client) ListTeams(ctx context.Context, opts ListOptions) (*Page[Team], error) {
	var page Page[Team]
	if err := c.get(ctx, "/v1/teams", opts.query(), &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListTeams]")
	}
	return &page, nil
}

func (c *Client) GetTeam(ctx context.Context, id string) (*Team, error) {
	var out Team
	if err := c.get(ctx, "/v1/teams/"+id, nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.GetTeam]")
	}
	return &out, nil
}

func (c *Client) CreateTeam(ctx context.Context, input TeamInput) (*Team, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateTeam] invalid payload")
	}
	var out Team
	if err := c.post(ctx, "/v1/teams", input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateTeam]")
	}
	return &out, nil
}

func (c *Client) UpdateTeam(ctx context.Context, id string, input TeamInput) (*Team, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateTeam] invalid payload")
	}
	var out Team
	if err := c.put(ctx, "/v1/teams/"+id, input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateTeam]")
	}
	return &out, nil
}

func (c *Client) DeleteTeam(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, "/v1/teams/"+id), "[Client.DeleteTeam]")
}
