package api

import (
	"context"

	"github.com/pkg/errors"
)

type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Colour string `json:"colour"`
}

type TagInput struct {
	Name   string `json:"name" validate:"required,max=80"`
	Colour string `json:"colour" validate:"omitempty,hexcolor"`
}

func (c *Client) ListTags(ctx context.Context, opts ListOptions) (*Page[Tag], error) {
	var page Page[Tag]
	if err := c.get(ctx, "/v1/tags", opts.query(), &page); err != nil {
		return nil, errors.Wrap(err, "[Client.ListTags]")
	}
	return &page, nil
}

func (c *Client) CreateTag(ctx context.Context, input TagInput) (*Tag, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateTag] invalid payload")
	}
	var out Tag
	if err := c.post(ctx, "/v1/tags", input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CreateTag]")
	}
	return &out, nil
}

func (c *Client) UpdateTag(ctx context.Context, id string, input TagInput) (*Tag, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateTag] invalid payload")
	}
	var out Tag
	if err := c.put(ctx, "/v1/tags/"+id, input, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateTag]")
	}
	return &out, nil
}

func (c *Client) DeleteTag(ctx context.Context, id string) error {
	return errors.Wrap(c.delete(ctx, "/v1/tags/"+id), "[Client.DeleteTag]")
}
