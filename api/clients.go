package api

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// OrgClient is a client organisation that meetings are held for. Named to
// avoid colliding with the HTTP Client.
type OrgClient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientInput is the create/update payload for a client organisation.
type ClientInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Contact string `json:"contact" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"max=40"`
	Notes   string `json:"notes"`
}

func (c *Client) ListClients(ctx context.Context, opts ListOptions) (*Page[OrgClient], error) {
	var page Page[OrgClient]
	if err := c.get(ctx, "/v1/clients", opts.query(), &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListClients]")
	}
	return &page, nil
}

func (c *Client) GetClient(ctx context.Context, id string) (*OrgClient, error) {
	var out OrgClient
	if err := c.get(ctx, "/v1/clients/"+id, nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.GetClient]")
	}
	return &out, nil
}

func (c *Client) CreateClient(ctx context.Context, input ClientInput) (*OrgClient, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateClient] invalid payload")
	}
	var out OrgClient
	if err := c.post(ctx, "/v1/clients", input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateClient]")
	}
	return &out, nil
}

func (c *Client) UpdateClient(ctx context.Context, id string, input ClientInput) (*OrgClient, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateClient] invalid payload")
	}
	var out OrgClient
	if err := c.put(ctx, "/v1/clients/"+id, input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateClient]")
	}
	return &out, nil
}

func (c *Client) DeleteClient(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, "/v1/clients/"+id), "[Client.DeleteClient]")
}
