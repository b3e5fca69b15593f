/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package fixture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kentakayama/afc-simulator/internal/domain"
	"github.com/kentakayama/afc-simulator/internal/domain/model"
	"github.com/kentakayama/afc-simulator/internal/domain/service"
)

// RepositorySource serves uploaded fixtures kept in a repository.
type RepositorySource struct {
	repo service.FixtureRepository
}

func NewRepositorySource(repo service.FixtureRepository) *RepositorySource {
	return &RepositorySource{repo: repo}
}

func (s *RepositorySource) Get(ctx context.Context, name string) (*Fixture, error) {
	stored, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	f, err := Parse(stored.Document)
	if err != nil {
		return nil, fmt.Errorf("stored fixture %s: %w", name, err)
	}
	return f, nil
}

// Upload validates a fixture document and stores it under the name derived
// from its testCaseID. It returns that name.
func (s *RepositorySource) Upload(ctx context.Context, domain string, document []byte) (string, error) {
	f, err := Parse(document)
	if err != nil {
		return "", err
	}
	key, err := f.Key(domain)
	if err != nil {
		return "", err
	}
	name := key.String()
	if _, err := s.repo.Upsert(ctx, &model.Fixture{Name: name, Document: document, CreatedAt: time.Now().UTC()}); err != nil {
		return "", err
	}
	return name, nil
}

// Names lists the uploaded fixtures.
func (s *RepositorySource) Names(ctx context.Context) ([]string, error) {
	return s.repo.ListNames(ctx)
}

// Delete removes an uploaded fixture by its lookup name.
func (s *RepositorySource) Delete(ctx context.Context, name string) error {
	if err := s.repo.DeleteByName(ctx, name); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}
