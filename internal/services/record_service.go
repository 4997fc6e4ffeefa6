package services

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/core"
	"stockroom/internal/ports"
)

// RecordService manages free-form stock tallies.
type RecordService struct {
	store ports.RecordStore
}

func NewRecordService(store ports.RecordStore) *RecordService {
	return &RecordService{store: store}
}

func (s *RecordService) Create(ctx context.Context, name string, quantity int) (core.Record, error) {
	r := core.Record{Name: strings.TrimSpace(name), Quantity: quantity}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	created, err := s.store.CreateRecord(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}
	return created, nil
}

func (s *RecordService) Get(ctx context.Context, id int64) (core.Record, error) {
	r, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return core.Record{}, fmt.Errorf("get record %d: %w", id, err)
	}
	return r, nil
}

// List returns one page of records. Page numbers start at 1.
func (s *RecordService) List(ctx context.Context, q ports.RecordQuery) (Page[core.Record], error) {
	q = q.Normalize()
	q.Search = strings.TrimSpace(q.Search)
	items, total, err := s.store.ListRecords(ctx, q)
	if err != nil {
		return Page[core.Record]{}, fmt.Errorf("list records: %w", err)
	}
	return Page[core.Record]{
		Items:         items,
		TotalElements: total,
		TotalPages:    ports.TotalPages(total, q.Limit),
	}, nil
}

func (s *RecordService) Update(ctx context.Context, id int64, name string, quantity int) (core.Record, error) {
	r := core.Record{ID: id, Name: strings.TrimSpace(name), Quantity: quantity}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	updated, err := s.store.UpdateRecord(ctx, r)
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %d: %w", id, err)
	}
	return updated, nil
}

func (s *RecordService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}
