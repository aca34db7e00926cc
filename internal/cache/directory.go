package cache

import (
	"context"
	"fmt"

	"skincare/internal/domain"
	"skincare/internal/models"
)

// Directory is a read-through cache in front of a domain.Directory.
// Not-found lookups are never cached.
type Directory struct {
	next  domain.Directory
	cache *Cache
}

func NewDirectory(next domain.Directory, cache *Cache) *Directory {
	return &Directory{next: next, cache: cache}
}

func (d *Directory) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	key := fmt.Sprintf("skincare:customer:%d", id)
	var c models.Customer
	if d.cache.Get(ctx, key, &c) {
		return &c, nil
	}
	res, err := d.next.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Set(ctx, key, res)
	return res, nil
}

func (d *Directory) GetService(ctx context.Context, id int64) (*models.Service, error) {
	key := fmt.Sprintf("skincare:service:%d", id)
	var s models.Service
	if d.cache.Get(ctx, key, &s) {
		return &s, nil
	}
	res, err := d.next.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Set(ctx, key, res)
	return res, nil
}

func (d *Directory) GetTherapist(ctx context.Context, id int64) (*models.Therapist, error) {
	key := fmt.Sprintf("skincare:therapist:%d", id)
	var t models.Therapist
	if d.cache.Get(ctx, key, &t) {
		return &t, nil
	}
	res, err := d.next.GetTherapist(ctx, id)
	if err != nil {
		return nil, err
	}
	d.cache.Set(ctx, key, res)
	return res, nil
}
